package models

import (
	"errors"
	"fmt"
	"strings"
)

// PlanDays is the number of workout days and diet days a plan must carry.
const PlanDays = 7

type MealType string

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
	Snack     MealType = "Snack"
)

// MealTypes lists every valid MealType in display order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

func (t MealType) Valid() bool {
	for _, m := range MealTypes {
		if t == m {
			return true
		}
	}
	return false
}

// FitnessPlan is the single output of plan generation.
type FitnessPlan struct {
	MotivationQuote string         `json:"motivationQuote"`
	AITips          []string       `json:"aiTips"`
	WorkoutPlan     []DailyWorkout `json:"workoutPlan"`
	DietPlan        []DailyDiet    `json:"dietPlan"`
}

type DailyWorkout struct {
	Day              string     `json:"day"` // e.g. "Day 1: Push"
	Focus            string     `json:"focus"`
	Exercises        []Exercise `json:"exercises"`
	ImageDescription string     `json:"imageDescription"`
}

type Exercise struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
	Reps string `json:"reps"` // e.g. "8-12 reps"
	Rest string `json:"rest"` // e.g. "60s"
}

type DailyDiet struct {
	Day              string `json:"day"`
	Meals            []Meal `json:"meals"`
	ImageDescription string `json:"imageDescription"`
}

type Meal struct {
	Name        string   `json:"name"`
	Type        MealType `json:"type"`
	Description string   `json:"description"`
}

// ErrInvalidPlan is wrapped by every error returned from FitnessPlan.Validate.
var ErrInvalidPlan = errors.New("plan failed schema validation")

// Validate enforces the output contract of the plan-generation service.
// A plan that fails here must never be displayed.
func (p *FitnessPlan) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: plan is empty", ErrInvalidPlan)
	}
	if strings.TrimSpace(p.MotivationQuote) == "" {
		return fmt.Errorf("%w: motivation quote is missing", ErrInvalidPlan)
	}
	if len(p.WorkoutPlan) != PlanDays {
		return fmt.Errorf("%w: expected %d workout days, got %d", ErrInvalidPlan, PlanDays, len(p.WorkoutPlan))
	}
	if len(p.DietPlan) != PlanDays {
		return fmt.Errorf("%w: expected %d diet days, got %d", ErrInvalidPlan, PlanDays, len(p.DietPlan))
	}

	for i, w := range p.WorkoutPlan {
		if strings.TrimSpace(w.Day) == "" || strings.TrimSpace(w.ImageDescription) == "" {
			return fmt.Errorf("%w: workout day %d is incomplete", ErrInvalidPlan, i+1)
		}
		if len(w.Exercises) == 0 {
			return fmt.Errorf("%w: workout day %d has no exercises", ErrInvalidPlan, i+1)
		}
		for j, ex := range w.Exercises {
			if strings.TrimSpace(ex.Name) == "" || ex.Sets <= 0 || ex.Reps == "" || ex.Rest == "" {
				return fmt.Errorf("%w: exercise %d of workout day %d is incomplete", ErrInvalidPlan, j+1, i+1)
			}
		}
	}

	for i, d := range p.DietPlan {
		if strings.TrimSpace(d.Day) == "" || strings.TrimSpace(d.ImageDescription) == "" {
			return fmt.Errorf("%w: diet day %d is incomplete", ErrInvalidPlan, i+1)
		}
		if len(d.Meals) == 0 {
			return fmt.Errorf("%w: diet day %d has no meals", ErrInvalidPlan, i+1)
		}
		for j, m := range d.Meals {
			if strings.TrimSpace(m.Name) == "" || m.Description == "" {
				return fmt.Errorf("%w: meal %d of diet day %d is incomplete", ErrInvalidPlan, j+1, i+1)
			}
			if !m.Type.Valid() {
				return fmt.Errorf("%w: meal %d of diet day %d has unknown type %q", ErrInvalidPlan, j+1, i+1, m.Type)
			}
		}
	}

	return nil
}
