package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-quiz/internal/api"
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/examprep"
	"github.com/p-n-ai/pai-quiz/internal/library"
	"github.com/p-n-ai/pai-quiz/internal/platform/cache"
	"github.com/p-n-ai/pai-quiz/internal/platform/config"
	"github.com/p-n-ai/pai-quiz/internal/platform/database"
	"github.com/p-n-ai/pai-quiz/internal/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	client := examprep.New(
		examprep.WithBaseURL(cfg.ExamPrep.BaseURL),
		examprep.WithHTTPClient(&http.Client{Timeout: cfg.ExamPrep.Timeout}),
	)

	var source curriculum.Source = client
	if cfg.ExamPrep.FixturePath != "" {
		fixture, err := curriculum.NewFixtureSource(cfg.ExamPrep.FixturePath)
		if err != nil {
			slog.Error("failed to load taxonomy fixture", "error", err)
			os.Exit(1)
		}
		source = fixture
	}

	var checks []readinessCheck

	var store library.Store = library.NewMemoryStore()
	var events library.EventLogger = library.NopEventLogger{}
	if cfg.UsesDatabase() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx, library.Schema); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		pgStore, err := library.NewPostgresStore(db.Pool)
		if err != nil {
			slog.Error("failed to create quiz library", "error", err)
			os.Exit(1)
		}
		store = pgStore
		events = library.NewPostgresEventLogger(db.Pool)
		checks = append(checks, readinessCheck{name: "database", check: db.HealthCheck})
		slog.Info("quiz library using PostgreSQL")
	} else {
		slog.Warn("LEARN_DATABASE_URL not set; saved quizzes are kept in memory")
	}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.UsesCache() {
		c, err := cache.New(ctx, cfg.Cache.URL, "paiquiz")
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		sessions = session.NewRedisStore(c)
		checks = append(checks, readinessCheck{name: "cache", check: c.HealthCheck})
		slog.Info("sessions using Redis")
	} else {
		slog.Warn("LEARN_CACHE_URL not set; sessions are kept in memory")
	}

	app := api.New(api.Config{
		Sessions:     session.NewManager(sessions, client, cfg.Session.TTL),
		Source:       source,
		Generator:    client,
		Library:      store,
		Events:       events,
		FetchTimeout: cfg.Compose.FetchTimeout,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	// Generation can take as long as the upstream timeout.
	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(app, checks...),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.ExamPrep.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr, "examprep", cfg.ExamPrep.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		app.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

type readinessCheck struct {
	name  string
	check func(context.Context) error
}

// newMux creates the HTTP router with health check endpoints and, when app is
// non-nil, the quiz API.
func newMux(app *api.Server, checks ...readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(checks))
	if app != nil {
		app.Register(mux)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks []readinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				slog.Warn("readiness check failed", "check", c.name, "error", err)
				failed[c.name] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(failed) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
