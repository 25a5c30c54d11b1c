package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/fishgraph/fishgraph-api/internal/config"
	"github.com/fishgraph/fishgraph-api/internal/database"
	"github.com/fishgraph/fishgraph-api/internal/database/bunstore"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
	"github.com/fishgraph/fishgraph-api/internal/infrastructure/graphdb"
	"github.com/fishgraph/fishgraph-api/internal/infrastructure/llm"
	httpserver "github.com/fishgraph/fishgraph-api/internal/interface/http"
	"github.com/fishgraph/fishgraph-api/internal/usecase/qa"
	"github.com/fishgraph/fishgraph-api/internal/usecase/query"
)

const shutdownTimeout = 10 * time.Second

// App is the wired object graph shared by the HTTP server and the CLI commands.
// QA is nil for graph-only apps.
type App struct {
	Graph   *query.GraphService
	QA      *qa.Service
	Manager *graphdb.Manager

	builder *query.Builder
	llm     *llm.GuardedClient
	history *bunstore.BunStore
}

// BuildGraph connects to Neo4j and constructs the graph read side only. It
// needs no model credentials and opens no history store.
func BuildGraph(ctx context.Context, cfg *config.Config) (*App, error) {
	manager := graphdb.NewManager(graphdb.Config{
		URI:                          cfg.Neo4jURI,
		Username:                     cfg.Neo4jUser,
		Password:                     cfg.Neo4jPassword,
		Database:                     cfg.Neo4jDatabase,
		MaxConnectionLifetime:        cfg.Neo4jMaxConnLifetime,
		MaxConnectionPoolSize:        cfg.Neo4jMaxPoolSize,
		ConnectionAcquisitionTimeout: cfg.Neo4jAcquireTimeout,
		RetryAttempts:                cfg.RetryAttempts,
		RetryDelay:                   cfg.RetryDelay,
		RetryAllErrors:               cfg.RetryAllErrors,
	})
	log.Printf("[System] Connecting to Neo4j at %s...", cfg.Neo4jURI)
	if err := manager.Connect(ctx); err != nil {
		return nil, err
	}

	if cfg.EnsureFulltextIndex {
		if err := manager.EnsureFulltextIndex(ctx, cfg.FulltextIndex); err != nil {
			log.Printf("[Warning] Failed to ensure fulltext index %q: %v", cfg.FulltextIndex, err)
		}
	}

	builder := query.NewBuilder(query.BuilderConfig{
		DefaultGraphLimit: cfg.DefaultGraphLimit,
		MaxGraphLimit:     cfg.MaxGraphLimit,
		ExpansionLimit:    cfg.ExpansionLimit,
		InitialFishLimit:  cfg.InitialFishLimit,
		SearchLimit:       cfg.SearchLimit,
		FulltextIndex:     cfg.FulltextIndex,
	})
	return &App{
		Graph:   query.NewGraphService(manager, builder),
		Manager: manager,
		builder: builder,
	}, nil
}

// Build wires the graph read side plus question answering: the model client
// and, when enabled, the history store. Answering settings are checked before
// anything is opened. The caller owns the returned App and must Close it.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.ValidateAnswering(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	app, err := BuildGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(ctx, llm.ProviderConfig{
		Provider:         cfg.LLMProvider,
		Temperature:      cfg.LLMTemperature,
		TopP:             cfg.LLMTopP,
		Timeout:          cfg.LLMTimeout,
		LogLevel:         cfg.LogLevel,
		ChatGLMURL:       cfg.ChatGLMURL,
		ChatGLMAPIKey:    cfg.ChatGLMAPIKey,
		ChatGLMModel:     cfg.ChatGLMModel,
		OllamaHost:       cfg.OllamaHost,
		OllamaModel:      cfg.OllamaModel,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		GeminiModel:      cfg.GeminiModel,
		BreakerThreshold: cfg.LLMBreakerThreshold,
		BreakerCooldown:  cfg.LLMBreakerCooldown,
	})
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.llm = client
	log.Printf("[System] Answer model: %s", client.Name())

	// A nil *BunStore must not reach the interface.
	var history repository.HistoryStore
	if cfg.HistoryEnabled {
		db, err := database.Open(cfg.HistoryDSN)
		if err != nil {
			app.Close(ctx)
			return nil, err
		}
		store, err := bunstore.NewBunStore(ctx, db, sqlitedialect.New())
		if err != nil {
			_ = db.Close()
			app.Close(ctx)
			return nil, err
		}
		app.history = store
		history = store
	}

	app.QA = qa.NewService(app.Manager, app.builder, client, history)
	return app, nil
}

// Close releases the history store, the model client and the driver pool.
// Safe to call more than once.
func (a *App) Close(ctx context.Context) {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			log.Printf("[Warning] Failed to close history store: %v", err)
		}
		a.history = nil
	}
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			log.Printf("[Warning] Failed to close model client: %v", err)
		}
		a.llm = nil
	}
	if err := a.Manager.Close(ctx); err != nil {
		log.Printf("[Warning] Failed to close Neo4j driver: %v", err)
	}
}

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
}

func New(cfg *config.Config) *Server {
	return &Server{
		cfg: cfg,
	}
}

// Run serves the REST API until ctx is cancelled or SIGINT/SIGTERM arrives,
// then drains in-flight requests and closes the pool.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := Build(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer app.Close(context.WithoutCancel(ctx))

	apiServer := httpserver.NewServer(app.Graph, app.QA, app.Manager)
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           apiServer.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[System] Starting REST API Server on %s", s.cfg.HTTPAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("[System] Shutdown signal received. Draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Error] HTTP shutdown error: %v", err)
	}

	log.Println("[System] Server stopped gracefully.")
	return nil
}
