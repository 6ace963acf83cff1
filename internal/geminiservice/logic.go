package geminiservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fitcoach/internal/models"
)

// GeneratePlan is the main entry point to this package.
// It builds the prompt from the profile, asks Gemini for a structured plan,
// and returns it only once it decodes and validates.
func (c *Client) GeneratePlan(ctx context.Context, profile models.UserProfile) (*models.FitnessPlan, error) {
	start := time.Now()

	// 1. Call Gemini
	raw, err := c.callStructuredGemini(ctx, SystemPrompt, BuildUserPrompt(profile), PlanSchema)
	if err != nil {
		log.Error().Err(err).Msg("AI Generation Error (Gemini)")
		return nil, &GenerationError{Cause: err}
	}

	// 2. Parse and validate
	plan, err := ParsePlan(raw)
	if err != nil {
		log.Error().Err(err).Msg("Gemini returned an unusable plan")
		return nil, &GenerationError{Cause: err}
	}

	log.Info().
		Dur("latency", time.Since(start)).
		Int("workout_days", len(plan.WorkoutPlan)).
		Int("diet_days", len(plan.DietPlan)).
		Msg("fitness plan generated")

	return plan, nil
}

// BuildUserPrompt renders the profile into UserPromptTemplate.
func BuildUserPrompt(p models.UserProfile) string {
	notes := strings.TrimSpace(p.MedicalHistory)
	if notes == "" {
		notes = "None"
	}
	return fmt.Sprintf(UserPromptTemplate,
		p.Name, p.Age, p.Gender,
		formatMeasure(p.Height), formatMeasure(p.Weight),
		p.Goal, p.Level, p.Location, p.Diet, notes,
	)
}

// ParsePlan strips an optional ```json fence and decodes the plan.
func ParsePlan(raw string) (*models.FitnessPlan, error) {
	text := stripFence(raw)

	var plan models.FitnessPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func formatMeasure(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
