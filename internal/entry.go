// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/lberthe/dicolex/internal/api"
	"github.com/lberthe/dicolex/internal/classifier"
	"github.com/lberthe/dicolex/internal/dictionary"
	"github.com/lberthe/dicolex/internal/index"
	"github.com/lberthe/dicolex/internal/mcpserver"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/sse"
	"github.com/lberthe/dicolex/internal/storage"
	"github.com/lberthe/dicolex/internal/termservice"
	"github.com/lberthe/dicolex/internal/writer"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logOut := app.logOutput
	if logOut == nil {
		logOut = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("languages", cfg.Languages.Target+"/"+cfg.Languages.Source),
		slog.Bool("classification", cfg.AI.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	apiRouter := api.NewRouter(st.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher. Disk changes drop the dictionary snapshot and
	// fan out over SSE.
	g.Go(func() error {
		err := index.Watch(gCtx, st.db, st.store, cfg.Vault.Path, st.langs, logger, func(kind, path string) {
			st.cache.Invalidate()
			broker.PublishTermEvent(kind, path)
		})
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the dictionary tools over MCP stdio. Logs go to stderr so
// stdout stays reserved for the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	logOut := app.logOutput
	if logOut == nil {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	st, err := buildStack(app.config, logger)
	if err != nil {
		return err
	}
	defer st.close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(st.svc).ServeStdio()
}

// stack is the shared service wiring used by both the HTTP server and the
// MCP stdio mode.
type stack struct {
	svc   *termservice.Service
	db    *index.DB
	store storage.Provider
	cache *dictionary.Cache
	langs models.Languages
}

func (s *stack) close() { s.db.Close() }

// buildStack assembles storage, index, cache, writer and the optional
// classifier into a term service.
func buildStack(cfg *Config, logger *slog.Logger) (*stack, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	langs := languagesFor(cfg)

	if err := index.Sync(db, store, langs, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	cache := dictionary.NewCache(store, dictionary.Config{
		Languages:     langs,
		DictionaryDir: cfg.Vault.DictionaryDir,
		TemplatesDir:  cfg.Vault.TemplatesDir,
		TTL:           cfg.Cache.TTL(),
	}, logger)

	w := writer.New(store, writer.Config{
		Languages:     langs,
		DictionaryDir: cfg.Vault.DictionaryDir,
		TemplateFile:  cfg.Vault.TemplateFile,
	}, logger)

	var orch termservice.Classifier
	if cfg.AI.Enabled() {
		factory := func() (classifier.Client, error) {
			return classifier.NewOpenAI(classifier.OpenAIConfig{
				APIKey:    cfg.AI.APIKey,
				Model:     cfg.AI.Model,
				BaseURL:   cfg.AI.BaseURL,
				Languages: langs,
			}, logger)
		}
		orch = classifier.NewOrchestrator(factory, w, classifier.OrchestratorConfig{
			MaxAttempts:  cfg.AI.MaxAttempts,
			PollInterval: cfg.AI.PollInterval(),
		}, logger)
	} else {
		logger.Info("classification disabled: no API key configured")
	}

	svc := termservice.NewService(cache, w, db, store, orch, cfg.Languages.Locale)
	return &stack{svc: svc, db: db, store: store, cache: cache, langs: langs}, nil
}

func languagesFor(cfg *Config) models.Languages {
	return models.Languages{
		Target: cfg.Languages.Target,
		Source: cfg.Languages.Source,
		Locale: cfg.Languages.Locale,
	}
}
