/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the plan
sessions, image cache, and push channel to the router.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"fitcoach/internal/config"
	"fitcoach/internal/database"
	"fitcoach/internal/imagecache"
	"fitcoach/internal/planner"
	"fitcoach/internal/utility"
)

// StartTime is reported by the health endpoint.
var StartTime = time.Now()

// Deps are the collaborators built by main (or by tests).
type Deps struct {
	Store     imagecache.Store
	Generator planner.Generator
	Renderer  imagecache.Renderer

	// DB is set only when the cache lives in Postgres.
	DB database.Service

	// Now overrides the cooldown clock.
	Now func() time.Time
}

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int
	cfg  *config.Config

	store    imagecache.Store
	renderer imagecache.Renderer
	db       database.Service

	registry *planner.Registry
	hub      *utility.Hub
	limiter  *utility.IPRateLimiter
	cookies  *sessions.CookieStore

	// Echo is the underlying web framework instance.
	*echo.Echo
}

// New builds the Server and its routes.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	s := &Server{
		port:     cfg.Port,
		cfg:      cfg,
		store:    deps.Store,
		renderer: deps.Renderer,
		db:       deps.DB,
		hub:      utility.NewHub(),
	}

	registry, err := planner.NewRegistry(cfg.SessionLimit, planner.SessionOptions{
		Generator: deps.Generator,
		Store:     deps.Store,
		Renderer:  deps.Renderer,
		Timeout:   cfg.ImageTimeout,
		Cooldown:  cfg.ImageCooldown,
		Now:       deps.Now,
		Notify: func(sessionID string, u planner.ItemUpdate) {
			s.hub.Push(sessionID, u)
		},
	})
	if err != nil {
		return nil, err
	}
	s.registry = registry

	limiter, err := utility.NewIPRateLimiter(cfg.ImageProxyRPS, cfg.ImageProxyBurst, 4096)
	if err != nil {
		return nil, err
	}
	s.limiter = limiter

	s.cookies = newCookieStore(cfg)
	s.Echo = s.RegisterRoutes()

	return s, nil
}

// HTTPServer wraps the router in an http.Server with production timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Echo,
		IdleTimeout:  time.Minute,      // Time to wait for the next request on keep-alive connections.
		ReadTimeout:  10 * time.Second, // Maximum duration for reading the entire request.
		WriteTimeout: 2 * time.Minute,  // Plan generation can take most of a minute.
	}
}

// Close cancels every session's in-flight fetches.
func (s *Server) Close() {
	s.registry.Close()
}

func newCookieStore(cfg *config.Config) *sessions.CookieStore {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		// Sessions will not survive a restart.
		log.Warn().Msg("SESSION_SECRET not set, using a random key")
		secret = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(secret)
	store.MaxAge(7 * 24 * 3600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.IsProduction()
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}
