// Package main is the entry point for the speaker agency site.
package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/auth"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/email"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/firmoffers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/handlers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/media"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/middleware"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/proposals"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/speakers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/templates"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/config"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/db"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/r2"
	"github.com/robert-strong/speak-about-ai-website-sub005/web"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	slog.Info("connected to database")

	if err := database.Migrate(ctx); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	// Initialize template engine
	tmpl, err := templates.New(web.TemplatesFS)
	if err != nil {
		slog.Error("failed to initialize templates", "error", err)
		os.Exit(1)
	}

	// Initialize services
	authService := auth.NewService(database)
	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		Agency:   cfg.AgencyNotifyEmail,
	})
	if !mailer.IsConfigured() {
		slog.Warn("SMTP not configured, notifications will be skipped")
	}

	proposalService := proposals.NewService(proposals.NewPGStore(database), mailer, cfg.BaseURL)
	offerService := firmoffers.NewService(firmoffers.NewPGStore(database), mailer, cfg.BaseURL)
	speakerService := speakers.NewService(speakers.NewPGStore(database))

	var mediaStore *media.Store
	if cfg.R2Configured() {
		client, err := r2.NewClient(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Bucket, cfg.R2PublicBaseURL)
		if err != nil {
			slog.Error("failed to create R2 client", "error", err)
			os.Exit(1)
		}
		mediaStore = media.NewStore(client)
		slog.Info("object storage enabled", "bucket", cfg.R2Bucket)
	} else {
		slog.Warn("R2 not configured, uploads are disabled")
	}

	limiter := middleware.NewRateLimiter(cfg.PublicRateLimit, time.Minute)
	go limiter.Cleanup(ctx, 5*time.Minute)
	go cleanSessions(ctx, authService, time.Hour)

	// Initialize handlers
	h := handlers.New(handlers.Deps{
		Proposals: proposalService,
		Offers:    offerService,
		Speakers:  speakerService,
		Media:     mediaStore,
		Auth:      authService,
		Templates: tmpl,
		Limiter:   limiter,
	})

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Serve static files from embedded FS
	staticFS, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		slog.Error("failed to create static file sub-filesystem", "error", err)
		os.Exit(1)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	h.Routes(r)
	r.NotFound(h.NotFound)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.Addr, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// cleanSessions deletes expired admin sessions every interval.
func cleanSessions(ctx context.Context, svc *auth.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.CleanExpiredSessions(ctx)
			if err != nil {
				slog.Error("failed to clean sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("cleaned expired sessions", "count", n)
			}
		}
	}
}
