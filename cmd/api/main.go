package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fitcoach/internal/config"
	"fitcoach/internal/database"
	"fitcoach/internal/geminiservice"
	"fitcoach/internal/imagecache"
	"fitcoach/internal/imageservice"
	"fitcoach/internal/server"
)

func gracefulShutdown(apiServer *http.Server, app *server.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Cancel image fetches still running for open sessions.
	app.Close()

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openStore builds the persistent image cache selected by CACHE_BACKEND,
// fronted by an in-memory LRU. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (imagecache.Store, database.Service, func(), error) {
	var (
		backing imagecache.Store
		db      database.Service
		closeFn = func() {}
	)

	switch cfg.CacheBackend {
	case config.BackendMemory:
		backing = imagecache.NewMemoryStore()

	case config.BackendSQLite:
		s, err := imagecache.NewSQLiteStore(cfg.CacheSQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		backing = s
		closeFn = func() { s.Close() }

	case config.BackendPostgres:
		svc, err := database.NewService(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		s, err := imagecache.NewPostgresStore(ctx, svc.Pool())
		if err != nil {
			svc.Close()
			return nil, nil, nil, err
		}
		backing, db = s, svc
		closeFn = svc.Close

	default:
		return nil, nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}

	if cfg.CacheLRUSize <= 0 {
		return backing, db, closeFn, nil
	}
	front, err := imagecache.NewLRUStore(backing, cfg.CacheLRUSize)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return front, db, closeFn, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogger(cfg)

	// 1. Cache store
	store, db, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.CacheBackend).Msg("could not open image cache")
	}
	defer closeStore()

	// 2. External services
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; plan generation will fail")
	}
	gemini := geminiservice.NewClient(cfg.GeminiAPIURL, cfg.GeminiModel, cfg.GeminiAPIKey)
	images := imageservice.NewClient(cfg.ImageAPIURL)

	// 3. HTTP server
	app, err := server.New(cfg, server.Deps{
		Store:     store,
		Generator: gemini,
		Renderer:  images,
		DB:        db,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("could not build server")
	}
	apiServer := app.HTTPServer()

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, app, done)

	log.Info().
		Int("port", cfg.Port).
		Str("env", cfg.AppEnv).
		Str("cache", cfg.CacheBackend).
		Msg("server starting")

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
