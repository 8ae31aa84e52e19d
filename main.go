// ABOUTME: Entry point for the IndiExport storefront gateway
// ABOUTME: Wires config, session store, upstream client, chat sync, and the HTTP API

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/prit1626/IndiExport-B2B-sub001/cache"
	"github.com/prit1626/IndiExport-B2B-sub001/config"
	"github.com/prit1626/IndiExport-B2B-sub001/handlers"
	"github.com/prit1626/IndiExport-B2B-sub001/logger"
	"github.com/prit1626/IndiExport-B2B-sub001/middleware"
	"github.com/prit1626/IndiExport-B2B-sub001/services"
	"github.com/prit1626/IndiExport-B2B-sub001/store"
)

func main() {
	// Load .env if present; real environment variables win.
	godotenv.Load()

	// Initialize structured logging
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting IndiExport storefront gateway")
	slog.Info("Upstream API configured", "url", cfg.UpstreamAPIURL)
	if cfg.UpstreamAllProxy != "" {
		slog.Info("Upstream proxy configured")
	}

	// Initialize cache
	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	c := cache.New(cacheTTL)
	slog.Info("Cache initialized", "ttl", cacheTTL)

	// Durable session store
	sessionStore, err := store.NewSQLite(cfg.SessionDBPath)
	if err != nil {
		slog.Error("Failed to open session store", "path", cfg.SessionDBPath, "error", err)
		os.Exit(1)
	}
	defer sessionStore.Close()

	// Services
	sessions := services.NewSessionService(c, sessionStore)
	upstream := services.NewUpstreamClient(cfg)
	market := services.NewMarketplaceClient(upstream)
	chats := services.NewChatManager(cfg.ChatPollInterval, cfg.ChatPageSize)

	// A session destroyed anywhere (logout, failed refresh, idle sweep) tears
	// down its chat synchronizer too.
	sessions.OnInvalidate(chats.Drop)

	h := handlers.NewHandler(cfg, c, sessions, market, chats)

	// Rate limiters per endpoint class
	var authLimiter, writeLimiter, defaultLimiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		authLimiter = middleware.NewRateLimiter(cfg.RateLimitAuth, time.Minute)
		writeLimiter = middleware.NewRateLimiter(cfg.RateLimitWrite, time.Minute)
		defaultLimiter = middleware.NewRateLimiter(cfg.RateLimitDefault, time.Minute)
		slog.Info("Rate limiting enabled",
			"auth", cfg.RateLimitAuth, "write", cfg.RateLimitWrite, "default", cfg.RateLimitDefault)
	} else {
		slog.Warn("Rate limiting disabled")
	}

	limiterFor := func(class handlers.LimitClass) func(http.HandlerFunc) http.HandlerFunc {
		switch class {
		case handlers.LimitAuth:
			return middleware.RateLimit(authLimiter, middleware.ClientIP)
		case handlers.LimitWrite:
			return middleware.RateLimit(writeLimiter, middleware.SessionKey)
		default:
			return middleware.RateLimit(defaultLimiter, middleware.SessionKey)
		}
	}

	router := chi.NewRouter()
	for _, route := range h.Routes() {
		wrapped := middleware.Chain(route.Handler,
			middleware.LogRequest,
			middleware.CORS(cfg.CORSAllowedOrigins),
			limiterFor(route.Limit),
			middleware.CSRF(),
		)
		router.MethodFunc(route.Method, route.Path, wrapped)
	}

	// Periodic sweep of sessions idle past their TTL
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepIdleSessions(sweepCtx, sessionStore, time.Duration(cfg.SessionTTL)*time.Second)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

// sweepIdleSessions removes long-idle sessions from the durable store once an
// hour. Active sessions keep their updated_at fresh via token rotation.
func sweepIdleSessions(ctx context.Context, s *store.SessionStore, ttl time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.DeleteIdle(ctx, ttl)
			if err != nil {
				slog.Warn("Idle session sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("Swept idle sessions", "deleted", deleted)
			}
		}
	}
}
