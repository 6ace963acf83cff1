package server

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fitcoach/internal/planner"
)

const (
	sessionCookieName = "fitcoach_session"
	sessionIDKey      = "sid"
)

func (s *Server) RegisterRoutes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Use(LoggerMiddleware)

	e.GET("/health", s.healthHandler)

	// Raw image proxy, same contract as the browser client has always used
	e.POST("/api/image", s.imageProxyHandler)

	// Session-scoped routes
	api := e.Group("/api", s.SessionMiddleware)

	api.POST("/plan", s.submitPlanHandler)
	api.GET("/plan", s.getPlanHandler)
	api.DELETE("/plan", s.resetPlanHandler)
	api.GET("/plan/export.pdf", s.exportPlanHandler)
	api.GET("/plan/:tab", s.getTabHandler)
	api.POST("/plan/:tab/:day/items/:item/toggle", s.toggleItemHandler)
	api.POST("/plan/:tab/:day/items/:item/generate", s.generateItemHandler)
	api.POST("/plan/:tab/:day/items/:item/regenerate", s.regenerateItemHandler)

	api.POST("/narration/:section", s.narrationHandler)
	api.POST("/narration/:section/finished", s.narrationFinishedHandler)

	// Websocket for item state pushes
	api.GET("/ws", s.wsHandler)

	return e
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}

// SessionMiddleware resolves the browser session from its signed cookie,
// creating one on first contact.
func (s *Server) SessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		// A cookie signed with an old key decodes with an error but still
		// yields a fresh session, so the error is only logged.
		cookie, err := s.cookies.Get(req, sessionCookieName)
		if err != nil {
			getLogger(c).Debug().Err(err).Msg("discarding unreadable session cookie")
		}

		id, _ := cookie.Values[sessionIDKey].(string)
		session := s.registry.Get(id)

		if session.ID != id {
			cookie.Values[sessionIDKey] = session.ID
			if err := cookie.Save(req, c.Response()); err != nil {
				getLogger(c).Error().Err(err).Msg("failed to save session cookie")
			}
		}

		c.Set("session", session)
		logger := getLogger(c).With().Str("session_id", session.ID).Logger()
		c.Set("logger", &logger)

		return next(c)
	}
}

func getLogger(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get("logger").(*zerolog.Logger); ok {
		return l
	}
	return &log.Logger
}

func getSession(c echo.Context) *planner.Session {
	return c.Get("session").(*planner.Session)
}
