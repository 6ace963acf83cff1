// Package narration flattens a plan section into speakable text and tracks
// which section, if any, is being read aloud.
package narration

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"fitcoach/internal/models"
)

type Section string

const (
	SectionWorkout Section = "workout"
	SectionDiet    Section = "diet"
)

var ErrUnknownSection = errors.New("unknown narration section")

// ParseSection accepts "workout" or "diet" in any case.
func ParseSection(s string) (Section, error) {
	switch Section(strings.ToLower(strings.TrimSpace(s))) {
	case SectionWorkout:
		return SectionWorkout, nil
	case SectionDiet:
		return SectionDiet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
}

// Text renders one section of the plan as a single utterance.
func Text(section Section, plan *models.FitnessPlan) (string, error) {
	if plan == nil {
		return "", errors.New("no plan to narrate")
	}

	var days []string
	switch section {
	case SectionWorkout:
		for _, d := range plan.WorkoutPlan {
			exercises := make([]string, 0, len(d.Exercises))
			for _, ex := range d.Exercises {
				exercises = append(exercises, fmt.Sprintf("%s. %d sets of %s.", ex.Name, ex.Sets, ex.Reps))
			}
			days = append(days, fmt.Sprintf("For %s, focus on %s. Exercises: %s.", d.Day, d.Focus, strings.Join(exercises, " ")))
		}
	case SectionDiet:
		for _, d := range plan.DietPlan {
			meals := make([]string, 0, len(d.Meals))
			for _, m := range d.Meals {
				meals = append(meals, fmt.Sprintf("%s: %s.", m.Type, m.Name))
			}
			days = append(days, fmt.Sprintf("For %s, your meal plan is: %s.", d.Day, strings.Join(meals, " ")))
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}

	return strings.Join(days, " "), nil
}

// Engine speaks text. Speak replaces anything already being spoken.
type Engine interface {
	Speak(section Section, text string) error
	Cancel()
}

// BrowserEngine is used when the client does the speaking: the service only
// tracks the flag and hands the text back.
type BrowserEngine struct{}

func (BrowserEngine) Speak(Section, string) error { return nil }
func (BrowserEngine) Cancel()                     {}

// Result reports the narrator state after a Toggle.
type Result struct {
	Speaking bool    `json:"speaking"`
	Section  Section `json:"section,omitempty"`
	Text     string  `json:"text,omitempty"`
}

// Narrator allows at most one section to be spoken at a time.
type Narrator struct {
	engine Engine

	mu       sync.Mutex
	speaking Section
}

func NewNarrator(engine Engine) *Narrator {
	if engine == nil {
		engine = BrowserEngine{}
	}
	return &Narrator{engine: engine}
}

// Toggle stops the section if it is the one being read; otherwise it cancels
// whatever is playing and starts the requested section.
func (n *Narrator) Toggle(section Section, plan *models.FitnessPlan) (Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.speaking == section {
		n.engine.Cancel()
		n.speaking = ""
		return Result{}, nil
	}

	text, err := Text(section, plan)
	if err != nil {
		return Result{}, err
	}

	if n.speaking != "" {
		n.engine.Cancel()
		n.speaking = ""
	}

	if err := n.engine.Speak(section, text); err != nil {
		log.Error().Err(err).Str("section", string(section)).Msg("narration failed to start")
		return Result{}, fmt.Errorf("failed to start narration: %w", err)
	}
	n.speaking = section

	return Result{Speaking: true, Section: section, Text: text}, nil
}

// Finished is reported by the engine (or client) when playback ends naturally.
// A stale report for a section that is no longer playing is ignored.
func (n *Narrator) Finished(section Section) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.speaking == section {
		n.speaking = ""
	}
}

// Stop cancels any playback.
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.speaking != "" {
		n.engine.Cancel()
		n.speaking = ""
	}
}

// Speaking returns the section being read, or "".
func (n *Narrator) Speaking() Section {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.speaking
}
