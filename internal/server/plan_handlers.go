package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"fitcoach/internal/export"
	"fitcoach/internal/imagecache"
	"fitcoach/internal/models"
	"fitcoach/internal/narration"
	"fitcoach/internal/planner"
)

// PlanResponse is the body of every plan-level endpoint.
type PlanResponse struct {
	planner.Status
	Workout []planner.Card `json:"workout,omitempty"`
	Diet    []planner.Card `json:"diet,omitempty"`
}

/* ====================================================================
                   		Plan Lifecycle Handlers
==================================================================== */

// submitPlanHandler validates the profile and generates the 7-day plan.
func (s *Server) submitPlanHandler(c echo.Context) error {
	logger := getLogger(c)
	session := getSession(c)

	var profile models.UserProfile
	if err := c.Bind(&profile); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	_, err := session.Submit(c.Request().Context(), profile)
	if err != nil {
		var verrs models.ValidationErrors
		var genErr *planner.GenerationError
		switch {
		case errors.As(err, &verrs):
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":  "Please correct the highlighted fields.",
				"fields": verrs,
			})
		case errors.Is(err, planner.ErrBusy), errors.Is(err, planner.ErrPlanExists), errors.Is(err, planner.ErrNoPlan):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.As(err, &genErr):
			logger.Error().Err(genErr.Cause).Msg("plan generation failed")
			return c.JSON(http.StatusBadGateway, map[string]string{"error": genErr.Error()})
		default:
			logger.Error().Err(err).Msg("failed to submit plan")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "An error occurred: " + err.Error()})
		}
	}

	logger.Info().Str("name", profile.Name).Msg("plan generated")
	return c.JSON(http.StatusOK, s.planResponse(session))
}

func (s *Server) getPlanHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.planResponse(getSession(c)))
}

// resetPlanHandler backs both "try again" and "regenerate plan".
func (s *Server) resetPlanHandler(c echo.Context) error {
	session := getSession(c)
	session.Reset()
	return c.JSON(http.StatusOK, s.planResponse(session))
}

func (s *Server) planResponse(session *planner.Session) PlanResponse {
	resp := PlanResponse{Status: session.Status()}
	if resp.State != planner.StateDisplay {
		return resp
	}
	// Either may fail if a reset races this read; the status still stands.
	resp.Workout, _ = session.Cards(planner.TabWorkout)
	resp.Diet, _ = session.Cards(planner.TabDiet)
	return resp
}

func (s *Server) getTabHandler(c echo.Context) error {
	tab, err := planner.ParseTab(c.Param("tab"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown tab"})
	}

	cards, err := getSession(c).Cards(tab)
	if err != nil {
		return planError(c, err)
	}
	return c.JSON(http.StatusOK, cards)
}

/* ====================================================================
                   		Item Image Handlers
==================================================================== */

type itemAction func(s *planner.Session, tab planner.Tab, day, item int) (imagecache.ItemView, error)

func (s *Server) toggleItemHandler(c echo.Context) error {
	return s.handleItemAction(c, (*planner.Session).Toggle)
}

func (s *Server) generateItemHandler(c echo.Context) error {
	return s.handleItemAction(c, (*planner.Session).Generate)
}

func (s *Server) regenerateItemHandler(c echo.Context) error {
	return s.handleItemAction(c, (*planner.Session).Regenerate)
}

func (s *Server) handleItemAction(c echo.Context, act itemAction) error {
	tab, err := planner.ParseTab(c.Param("tab"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown tab"})
	}
	day, err1 := strconv.Atoi(c.Param("day"))
	item, err2 := strconv.Atoi(c.Param("item"))
	if err1 != nil || err2 != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Day and item must be numeric indexes"})
	}

	view, err := act(getSession(c), tab, day, item)
	if err != nil {
		return planError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

/* ====================================================================
                   		Export & Narration Handlers
==================================================================== */

func (s *Server) exportPlanHandler(c echo.Context) error {
	snap, err := getSession(c).Snapshot()
	if err != nil {
		return planError(c, err)
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, snap.Profile, snap.Plan); err != nil {
		getLogger(c).Error().Err(err).Msg("failed to export plan")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to export plan"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.FileName(snap.Profile)))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (s *Server) narrationHandler(c echo.Context) error {
	section, err := narration.ParseSection(c.Param("section"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown section"})
	}

	res, err := getSession(c).Narrate(section)
	if err != nil {
		return planError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) narrationFinishedHandler(c echo.Context) error {
	section, err := narration.ParseSection(c.Param("section"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown section"})
	}

	getSession(c).NarrationFinished(section)
	return c.NoContent(http.StatusNoContent)
}

// planError maps planner sentinels onto HTTP statuses.
func planError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, planner.ErrNoPlan):
		return c.JSON(http.StatusConflict, map[string]string{"error": "No plan has been generated yet"})
	case errors.Is(err, planner.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	getLogger(c).Error().Err(err).Msg("plan request failed")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
