// Package testutil provides shared fixtures for FitCoach tests.
package testutil

import (
	"fmt"

	"fitcoach/internal/models"
)

// AlexProfile returns the reference profile used across end-to-end tests.
func AlexProfile() models.UserProfile {
	return models.UserProfile{
		Name:           "Alex",
		Age:            30,
		Gender:         "Male",
		Height:         170,
		Weight:         65,
		Goal:           "Weight Loss",
		Level:          "Beginner",
		Location:       "Home",
		Diet:           "Veg",
		MedicalHistory: "",
	}
}

// SevenDayPlan returns a well-formed plan with 7 workout days and 7 diet days.
// Day 1's first exercise is "Push Ups" with focus "Upper Body".
func SevenDayPlan() *models.FitnessPlan {
	plan := &models.FitnessPlan{
		MotivationQuote: "Small steps every day.",
		AITips:          []string{"Drink water", "Sleep 8 hours", "Walk after meals"},
	}

	for i := 1; i <= models.PlanDays; i++ {
		plan.WorkoutPlan = append(plan.WorkoutPlan, models.DailyWorkout{
			Day:   fmt.Sprintf("Day %d", i),
			Focus: "Upper Body",
			Exercises: []models.Exercise{
				{Name: "Push Ups", Sets: 3, Reps: "8-12 reps", Rest: "60s"},
				{Name: "Plank", Sets: 3, Reps: "30s hold", Rest: "45s"},
			},
			ImageDescription: "A person doing push ups in a bright living room",
		})
		plan.DietPlan = append(plan.DietPlan, models.DailyDiet{
			Day: fmt.Sprintf("Day %d", i),
			Meals: []models.Meal{
				{Name: "Oatmeal with Berries", Type: models.Breakfast, Description: "1 cup oats, blueberries"},
				{Name: "Lentil Soup", Type: models.Lunch, Description: "1 bowl red lentil soup"},
				{Name: "Paneer Stir Fry", Type: models.Dinner, Description: "150g paneer, peppers"},
			},
			ImageDescription: "A colourful vegetarian meal on a wooden table",
		})
	}

	return plan
}
