package imagecache

import (
	"fmt"

	"fitcoach/internal/models"
)

// WorkoutItems builds the image items of a workout day. Every exercise prompt
// carries the day's focus and a fixed form-description suffix.
func WorkoutItems(w models.DailyWorkout) []Item {
	items := make([]Item, 0, len(w.Exercises))
	for _, ex := range w.Exercises {
		items = append(items, Item{
			Name:   ex.Name,
			Prompt: fmt.Sprintf("%s, %s exercise form, photorealistic, gym background", ex.Name, w.Focus),
		})
	}
	return items
}

// DietItems builds the image items of a diet day.
func DietItems(d models.DailyDiet) []Item {
	items := make([]Item, 0, len(d.Meals))
	for _, m := range d.Meals {
		items = append(items, Item{
			Name:   m.Name,
			Prompt: fmt.Sprintf("%s, realistic food photography, high angle, studio lighting", m.Name),
		})
	}
	return items
}
