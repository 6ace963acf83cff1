// Package export renders a plan snapshot as a downloadable PDF.
package export

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"

	"fitcoach/internal/models"
)

var whitespace = regexp.MustCompile(`\s+`)

// FileName is "<name with whitespace runs replaced by _>_Fitness_Plan.pdf".
func FileName(profile models.UserProfile) string {
	name := whitespace.ReplaceAllString(profile.Name, "_")
	return name + "_Fitness_Plan.pdf"
}

// WritePDF writes the profile summary, tips, and both weekly plans to w.
func WritePDF(w io.Writer, profile models.UserProfile, plan *models.FitnessPlan) error {
	if plan == nil {
		return errors.New("no plan to export")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(profile.Name+" Fitness Plan", true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	heading := func(text string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, tr(text), "B", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	body := func(text string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(text), "", "L", false)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(profile.Name+"'s 7-Day Fitness Plan"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 11)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("%q", plan.MotivationQuote)), "", "C", false)

	/* ===== Profile ===== */
	heading("Profile")
	body(fmt.Sprintf("Age: %d | Gender: %s | Height: %s cm | Weight: %s kg",
		profile.Age, profile.Gender, trimFloat(profile.Height), trimFloat(profile.Weight)))
	body(fmt.Sprintf("Goal: %s | Level: %s | Location: %s | Diet: %s",
		profile.Goal, profile.Level, profile.Location, profile.Diet))
	if notes := strings.TrimSpace(profile.MedicalHistory); notes != "" {
		body("Medical notes: " + notes)
	}

	/* ===== Tips ===== */
	if len(plan.AITips) > 0 {
		heading("AI Tips")
		for _, tip := range plan.AITips {
			body("- " + tip)
		}
	}

	/* ===== Workout ===== */
	heading("Workout Plan")
	for _, d := range plan.WorkoutPlan {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, tr(d.Day+": "+d.Focus), "", 1, "L", false, 0, "")
		for _, ex := range d.Exercises {
			body(fmt.Sprintf("%s: %d sets x %s, rest %s", ex.Name, ex.Sets, ex.Reps, ex.Rest))
		}
		pdf.Ln(2)
	}

	/* ===== Diet ===== */
	heading("Diet Plan")
	for _, d := range plan.DietPlan {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, tr(d.Day), "", 1, "L", false, 0, "")
		for _, m := range d.Meals {
			body(fmt.Sprintf("%s: %s. %s", m.Type, m.Name, m.Description))
		}
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
}
