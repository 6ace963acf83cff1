// Package planner drives the top-level plan lifecycle and owns the per-session
// image lists mounted for a displayed plan.
package planner

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"fitcoach/internal/models"
)

type State string

const (
	StateForm    State = "form"
	StateLoading State = "loading"
	StateError   State = "error"
	StateDisplay State = "display"
)

var (
	ErrBusy       = errors.New("a plan is already being generated")
	ErrPlanExists = errors.New("reset the current plan before submitting a new profile")
	ErrNoPlan     = errors.New("no plan has been generated")
	ErrNotFound   = errors.New("not found")
)

// Generator produces a complete plan for a profile in a single call.
type Generator interface {
	GeneratePlan(ctx context.Context, profile models.UserProfile) (*models.FitnessPlan, error)
}

// Snapshot is the profile/plan pair captured at the moment generation succeeded.
// Display, export, and narration read only this.
type Snapshot struct {
	Profile models.UserProfile  `json:"profile"`
	Plan    *models.FitnessPlan `json:"plan"`
}

// Status is a read-only view of the orchestrator.
type Status struct {
	State    State     `json:"state"`
	Error    string    `json:"error,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// GenerationError is the single user-visible message of a failed submit.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return "An error occurred: " + e.Cause.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Orchestrator holds one session's form/loading/error/display state.
type Orchestrator struct {
	gen Generator

	mu     sync.Mutex
	state  State
	errMsg string
	snap   *Snapshot

	// epoch changes on every submit and reset so a generation that finishes
	// after a reset is dropped.
	epoch uint64
}

func NewOrchestrator(gen Generator) *Orchestrator {
	return &Orchestrator{gen: gen, state: StateForm}
}

// Submit validates the profile and, if it passes, calls the generator exactly
// once. Validation errors leave the state untouched.
func (o *Orchestrator) Submit(ctx context.Context, profile models.UserProfile) (Snapshot, error) {
	if err := profile.Validate(); err != nil {
		return Snapshot{}, err
	}

	o.mu.Lock()
	switch o.state {
	case StateLoading:
		o.mu.Unlock()
		return Snapshot{}, ErrBusy
	case StateDisplay, StateError:
		o.mu.Unlock()
		return Snapshot{}, ErrPlanExists
	}
	o.epoch++
	epoch := o.epoch
	o.state = StateLoading
	o.errMsg = ""
	o.mu.Unlock()

	plan, err := o.gen.GeneratePlan(ctx, profile)
	if err == nil {
		err = plan.Validate()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.epoch != epoch {
		log.Info().Msg("discarding plan generated before reset")
		return Snapshot{}, ErrNoPlan
	}

	if err != nil {
		genErr := &GenerationError{Cause: err}
		o.state = StateError
		o.errMsg = genErr.Error()
		return Snapshot{}, genErr
	}

	o.snap = &Snapshot{Profile: profile, Plan: plan}
	o.state = StateDisplay
	return *o.snap, nil
}

// Reset discards profile, plan, and error and returns to the form.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.epoch++
	o.state = StateForm
	o.errMsg = ""
	o.snap = nil
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{State: o.state, Error: o.errMsg}
	if o.snap != nil {
		cp := *o.snap
		st.Snapshot = &cp
	}
	return st
}

// Snapshot returns the displayed plan, or ErrNoPlan outside StateDisplay.
func (o *Orchestrator) Snapshot() (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateDisplay || o.snap == nil {
		return Snapshot{}, ErrNoPlan
	}
	return *o.snap, nil
}
