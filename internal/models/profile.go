package models

import (
	"fmt"
	"sort"
	"strings"
)

/* =================================================================================
							PROFILE ENUMERATIONS
=================================================================================*/

var (
	Genders   = []string{"Male", "Female", "Other"}
	Goals     = []string{"Weight Loss", "Muscle Gain", "Maintenance", "Toning"}
	Levels    = []string{"Beginner", "Intermediate", "Advanced"}
	Locations = []string{"Home", "Gym", "Outdoor"}
	Diets     = []string{"Veg", "Non-Veg", "Vegan", "Keto", "Paleo"}
)

// Lower bounds enforced before a profile is submitted.
const (
	MinAge    = 14
	MinHeight = 50
	MinWeight = 20
)

// UserProfile is the form payload collected from the user.
// Height is in centimetres, weight in kilograms.
type UserProfile struct {
	Name           string  `json:"name"`
	Age            int     `json:"age"`
	Gender         string  `json:"gender"`
	Height         float64 `json:"height"`
	Weight         float64 `json:"weight"`
	Goal           string  `json:"goal"`
	Level          string  `json:"level"`
	Location       string  `json:"location"`
	Diet           string  `json:"diet"`
	MedicalHistory string  `json:"medicalHistory"`
}

// ValidationErrors maps a profile field (json name) to a human-readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "invalid profile: " + strings.Join(parts, "; ")
}

// Validate checks every field of the profile and returns ValidationErrors
// listing all problems at once, or nil.
func (p UserProfile) Validate() error {
	errs := ValidationErrors{}

	if strings.TrimSpace(p.Name) == "" {
		errs["name"] = "Name is required"
	}
	if p.Age < MinAge {
		errs["age"] = fmt.Sprintf("Age must be at least %d", MinAge)
	}
	if p.Height < MinHeight {
		errs["height"] = fmt.Sprintf("Height must be at least %d cm", MinHeight)
	}
	if p.Weight < MinWeight {
		errs["weight"] = fmt.Sprintf("Weight must be at least %d kg", MinWeight)
	}

	checkEnum(errs, "gender", p.Gender, Genders)
	checkEnum(errs, "goal", p.Goal, Goals)
	checkEnum(errs, "level", p.Level, Levels)
	checkEnum(errs, "location", p.Location, Locations)
	checkEnum(errs, "diet", p.Diet, Diets)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func checkEnum(errs ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		errs[field] = "Please select a value"
		return
	}
	if !contains(allowed, value) {
		errs[field] = fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", "))
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
