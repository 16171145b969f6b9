// Package server is the composition root: it wires the database, the
// external service clients, the services, and the HTTP routes together, and
// owns startup and graceful shutdown of both the HTTP listener and the
// status-stream consumer.
//
// main.go constructs the external clients (blob store, permission service,
// language service, stream backend) because those depend on environment
// details; everything internal is assembled here so a test can stand up the
// whole server against in-memory fakes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ingsis/snippet-manager/internal/asset"
	"github.com/ingsis/snippet-manager/internal/auth"
	"github.com/ingsis/snippet-manager/internal/handler"
	"github.com/ingsis/snippet-manager/internal/middleware"
	"github.com/ingsis/snippet-manager/internal/permission"
	sqliteRepo "github.com/ingsis/snippet-manager/internal/repository/sqlite"
	"github.com/ingsis/snippet-manager/internal/service"
	"github.com/ingsis/snippet-manager/internal/status"
	"github.com/ingsis/snippet-manager/internal/stream"
	"github.com/ingsis/snippet-manager/internal/validator"
)

// Config holds everything the server needs beyond its collaborators.
type Config struct {
	Port         int
	DBPath       string
	JWTSecret    string
	LintStream   string
	FormatStream string
}

// Dependencies are the external collaborators, constructed by main (or by
// tests, with fakes). StatusConsumer may be nil: the server then serves only
// the synchronous status endpoint, which is how integration tests run it
// without a stream backend.
type Dependencies struct {
	Assets         asset.Client
	Permissions    permission.Client
	Validators     validator.Client
	Publisher      stream.Publisher
	StatusConsumer *stream.Consumer
}

// Server owns the router, the database handle, and the status consumer.
type Server struct {
	router         *chi.Mux
	config         Config
	logger         *slog.Logger
	db             *sqliteRepo.DB
	statusConsumer *stream.Consumer
	statusHandler  stream.Handler
}

// New assembles the full dependency chain:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Services receive interfaces, handlers receive services; nothing below the
// handler layer ever sees HTTP.
func New(cfg Config, deps Dependencies, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, err
	}

	configService := service.NewConfigService(deps.Assets, logger)
	jobService := service.NewJobService(deps.Publisher, configService, deps.Permissions, service.JobStreams{
		Lint:   cfg.LintStream,
		Format: cfg.FormatStream,
	}, logger)
	snippetService := service.NewSnippetService(db, deps.Assets, deps.Permissions, deps.Validators, jobService, logger)
	testService := service.NewTestService(db, db, deps.Permissions, deps.Validators, logger)

	s := &Server{
		router:         chi.NewRouter(),
		config:         cfg,
		logger:         logger,
		db:             db,
		statusConsumer: deps.StatusConsumer,
		statusHandler:  status.Handler(snippetService, logger),
	}
	s.setupRoutes(tokens, snippetService, configService, jobService, testService)

	return s, nil
}

// Router exposes the handler chain for tests that drive the server with
// httptest instead of a real listener.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the database. Only needed when Start is never called.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes(
	tokens *auth.TokenService,
	snippets *service.SnippetService,
	configs *service.ConfigService,
	jobs *service.JobService,
	tests *service.TestService,
) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	snippetHandler := handler.NewSnippetHandler(snippets, s.logger)
	configHandler := handler.NewConfigHandler(configs, jobs, s.logger)
	testHandler := handler.NewTestHandler(tests, s.logger)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Route("/snippet", func(r chi.Router) {
			r.Post("/", snippetHandler.HandleCreate)
			r.Get("/user", snippetHandler.HandleList)
			r.Post("/status", snippetHandler.HandleStatus)
			r.Get("/format/{id}", snippetHandler.HandleGetFormatted)
			r.Get("/test/{testId}", testHandler.HandleRun)
			r.Get("/{id}", snippetHandler.HandleGet)
			r.Post("/{id}", snippetHandler.HandleEdit)
			r.Put("/{id}", snippetHandler.HandleUpdateContent)
			r.Delete("/{id}", snippetHandler.HandleDelete)
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/linting", configHandler.HandleGetLinting)
			r.Put("/linting", configHandler.HandlePutLinting)
			r.Get("/formatting", configHandler.HandleGetFormatting)
			r.Put("/formatting", configHandler.HandlePutFormatting)
		})

		r.Route("/tests", func(r chi.Router) {
			r.Post("/", testHandler.HandleCreate)
			r.Get("/snippet/{snippetId}", testHandler.HandleListBySnippet)
			r.Get("/{id}", testHandler.HandleGet)
			r.Put("/{id}", testHandler.HandleUpdate)
			r.Delete("/{id}", testHandler.HandleDelete)
		})
	})
}

// Start runs the HTTP server and the status-stream consumer until a signal
// arrives, then drains in-flight requests (30s budget), stops the consumer,
// and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The consumer shares this context; cancelling it on shutdown stops the
	// poll loop.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerErrors := make(chan error, 1)
	if s.statusConsumer != nil {
		go func() {
			consumerErrors <- s.statusConsumer.Run(ctx, s.statusHandler)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case err := <-consumerErrors:
		// The consumer only exits on its own when group creation failed;
		// without it lint results never land, so treat it as fatal.
		return fmt.Errorf("status consumer error: %w", err)

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		cancel() // stop the status consumer
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
