package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"fitcoach/internal/imagecache"
	"fitcoach/internal/utility"
)

type imageRequest struct {
	Description string `json:"description"`
}

// imageProxyHandler renders one description without touching any session or
// cache. Each client IP gets a small token bucket.
func (s *Server) imageProxyHandler(c echo.Context) error {
	logger := getLogger(c)

	ip := utility.GetRealIP(c)
	if err := s.limiter.CheckIPRateLimit(ip); err != nil {
		logger.Warn().Str("ip", ip).Msg("image proxy rate limited")
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": imagecache.ErrRateLimited.Error()})
	}

	var req imageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Description) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Image description is required."})
	}

	imageURL, err := imagecache.Fetch(c.Request().Context(), s.renderer, req.Description, s.cfg.ImageTimeout)
	if err != nil {
		var timeout *imagecache.TimeoutError
		var upstream interface{ HTTPStatus() int }
		switch {
		case errors.As(err, &timeout):
			return c.JSON(http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
		case errors.Is(err, imagecache.ErrRateLimited):
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		case errors.As(err, &upstream):
			return c.JSON(upstream.HTTPStatus(), map[string]string{"error": err.Error()})
		}
		logger.Error().Err(err).Msg("Image Generation API Error")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate image."})
	}

	return c.JSON(http.StatusOK, map[string]string{"imageUrl": imageURL})
}

// wsHandler upgrades the connection and registers it for the session's item updates.
func (s *Server) wsHandler(c echo.Context) error {
	session := getSession(c)

	conn, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		getLogger(c).Error().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	s.hub.RegisterClient(session.ID, conn)
	defer s.hub.UnregisterClient(session.ID, conn)

	// The client never sends anything meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
