package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/TabSuspender/internal/api/http"
	"github.com/GriffinCanCode/TabSuspender/internal/api/middleware"
	"github.com/GriffinCanCode/TabSuspender/internal/bridge"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/activity"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/command"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/placeholder"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/policy"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/safety"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/snapshot"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/suspension"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/usage"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/config"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/hostmem"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/paths"
	"github.com/GriffinCanCode/TabSuspender/internal/storage/kv"
)

const (
	shutdownTimeout = 5 * time.Second
	storeCooldown   = 10 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	db         *kv.BadgerStore
	store      *kv.Guarded
	controller *suspension.Controller
	hub        *bridge.Hub
	policy     *policy.Service
	policyFile string
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing tab suspension daemon",
		zap.String("addr", cfg.Addr()),
		zap.Duration("scan_interval", cfg.Scan.Interval),
		zap.Bool("in_memory", cfg.Storage.InMemory),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New(logger.Logger)

	layout, err := paths.New(cfg.Storage.Path)
	if err != nil {
		tracer.Close()
		return nil, err
	}

	db, err := openStore(cfg, layout, logger)
	if err != nil {
		tracer.Close()
		return nil, err
	}
	store := kv.NewGuarded(db, storeCooldown, logger.Component("kv"))

	hub := bridge.NewHub(cfg.Bridge.Timeout, metrics, logger.Component("bridge"))
	policyService := policy.NewService(store, logger.Component("policy"))

	policyFile := cfg.Policy.File
	if policyFile == "" {
		if _, err := os.Stat(layout.Policy()); err == nil {
			policyFile = layout.Policy()
		}
	}
	if policyFile != "" {
		// The file only seeds sections the store has never held; a broken
		// file leaves the stored policy in place
		if err := policyService.ImportFile(context.Background(), policyFile, policy.SeedMissing); err != nil {
			logger.Warn("Policy file not imported", zap.String("path", policyFile), zap.Error(err))
		}
	}

	snapshots := snapshot.NewStore(store, hub, cfg.Snapshot.ScrollTimeout,
		snapshot.WithMetrics(metrics),
		snapshot.WithLogger(logger.Component("snapshot")))
	accountant := usage.NewAccountant(store, hostmem.New("", logger.Component("hostmem")),
		cfg.Usage.MemoryPerTab, logger.Component("usage"))

	controller := suspension.NewController(suspension.Config{
		ScanInterval:       cfg.Scan.Interval,
		Concurrency:        cfg.Scan.Concurrency,
		PurgeInterval:      cfg.Snapshot.PurgeInterval,
		Retention:          cfg.Snapshot.Retention,
		ScrollRestoreDelay: cfg.Snapshot.ScrollRestoreDelay,
		ScrollTimeout:      cfg.Snapshot.ScrollTimeout,
	}, suspension.Deps{
		Host:        hub,
		Messenger:   hub,
		Tracker:     activity.NewTracker(nil),
		Policy:      policyService,
		Verifier:    safety.NewVerifier(hub, cfg.Scan.SafetyTimeout, metrics, logger.Component("safety")),
		Snapshots:   snapshots,
		Usage:       accountant,
		Placeholder: placeholder.NewCodec(cfg.Snapshot.PlaceholderURL),
	}).WithMetrics(metrics).WithLogger(logger.Component("controller"))

	dispatcher := command.NewDispatcher(controller, policyService, accountant, metrics, logger.Component("command")).
		WithTracer(tracer)
	hub.SetHandler(dispatcher)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.Middleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limit.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limit))
	}

	handlers := api.NewHandlers(dispatcher, metrics, api.Status{
		Bridge:   hub,
		Scanner:  controller,
		Breakers: []api.Breaker{store},
	})
	handlers.Register(router, hub.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		router:     router,
		db:         db,
		store:      store,
		controller: controller,
		hub:        hub,
		policy:     policyService,
		policyFile: policyFile,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
		tracer:     tracer,
	}, nil
}

func openStore(cfg *config.Config, layout paths.Layout, logger *logging.Logger) (*kv.BadgerStore, error) {
	if cfg.Storage.InMemory {
		db, err := kv.OpenInMemory()
		if err != nil {
			return nil, fmt.Errorf("failed to open in-memory store: %w", err)
		}
		return db, nil
	}
	db, err := kv.Open(kv.DefaultConfig(layout.DB()), logger.Component("badger"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", layout.DB(), err)
	}
	logger.Info("Store opened", zap.String("path", layout.DB()))
	return db, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Controller returns the suspension controller
func (s *Server) Controller() *suspension.Controller {
	return s.controller
}

// Run serves HTTP, drives the controller and, when enabled, watches the
// policy file until ctx is cancelled or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return s.controller.Run(ctx)
	})

	if s.policyFile != "" && s.config.Policy.Watch {
		g.Go(func() error {
			if err := s.policy.Watch(ctx, s.policyFile); err != nil {
				// Losing the watcher is not fatal; the stored policy stays usable
				s.logger.Warn("Policy watch stopped", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.hub.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases the store and flushes logs
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
		return fmt.Errorf("failed to close store: %w", err)
	}

	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()

	return nil
}
