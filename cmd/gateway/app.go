package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"netgate/internal/audit"
	"netgate/internal/config"
	"netgate/internal/constants"
	"netgate/internal/event"
	"netgate/internal/gateway"
	"netgate/internal/logger"
	"netgate/internal/validator"
	"netgate/pkg/bootstrap"
	"netgate/pkg/circuitbreaker"
	"netgate/pkg/health"
	"netgate/pkg/metrics"
	"netgate/pkg/middleware"
	"netgate/pkg/ratelimit"
	"netgate/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	kafkaSink      *audit.KafkaSink
	service        *gateway.Service
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "validation-gateway")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("validation-gateway"))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.Config.RateLimit.RPS,
			Burst:           a.Config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.Config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.Config.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		metrics.RegisterRateLimitMetrics()
		a.Logger.Infow("Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	store, composite := a.buildSinks()

	classifier := event.NewClassifier(a.Config.Validation, a.Logger)
	sessions := validator.NewManager(a.Config.Validation, a.Logger)
	client := validator.NewClient(a.Config.Validation, a.Logger)

	var breaker *circuitbreaker.Wrapper
	if a.Config.CircuitBreaker.Enabled {
		breaker = circuitbreaker.NewWrapper(a.breakerConfig())
		metrics.RegisterCircuitBreakerMetrics()
	}

	forwarder := gateway.NewHTTPForwarder(a.Config.Downstream, a.Logger)

	a.service = gateway.NewService(classifier, sessions, client, forwarder, composite, breaker, a.Logger)

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.Config.Validation.Enabled {
		healthRegistry.Register(health.NewHTTPChecker("validator", a.Config.Validation.BaseURL))
	}
	healthRegistry.Register(health.NewHTTPChecker("downstream", a.Config.Downstream.URL))

	handler := gateway.NewHandler(a.service, store, healthRegistry, a.Logger)
	handler.RegisterRoutes(router)

	metrics.RegisterGatewayMetrics()
	if a.db != nil {
		metrics.RegisterDatabaseMetrics()
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

// buildSinks assembles the decision fan-out. The in-memory ring always
// exists so the decisions API works without PostgreSQL; when a database is
// configured it becomes the store of record for reads instead.
func (a *App) buildSinks() (gateway.DecisionStore, gateway.Sink) {
	composite := audit.NewComposite(a.Logger)
	composite.Add("log", audit.NewLogSink(a.Logger))

	memory := audit.NewMemoryStore(constants.DecisionRingSize)
	composite.Add("memory", memory)

	var store gateway.DecisionStore = memory

	if a.db != nil {
		postgres := audit.NewPostgresStore(a.db)
		composite.Add("postgres", postgres)
		store = postgres
	}

	if len(a.Config.Audit.Kafka.Brokers) > 0 && a.Config.Audit.Kafka.Topic != "" {
		a.kafkaSink = audit.NewKafkaSink(a.Config.Audit.Kafka, a.Logger)
		composite.Add("kafka", a.kafkaSink)
		metrics.RegisterBrokerMetrics()
		a.Logger.Infow("Decision audit stream enabled",
			"brokers", a.Config.Audit.Kafka.Brokers,
			"topic", a.Config.Audit.Kafka.Topic,
		)
	}

	return store, composite
}

func (a *App) breakerConfig() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig("validator")
	if a.Config.CircuitBreaker.MaxRequests > 0 {
		cfg.MaxRequests = a.Config.CircuitBreaker.MaxRequests
	}
	if a.Config.CircuitBreaker.Interval > 0 {
		cfg.Interval = a.Config.CircuitBreaker.Interval
	}
	if a.Config.CircuitBreaker.Timeout > 0 {
		cfg.Timeout = a.Config.CircuitBreaker.Timeout
	}
	if a.Config.CircuitBreaker.FailureRatio > 0 && a.Config.CircuitBreaker.MinRequests > 0 {
		ratio := a.Config.CircuitBreaker.FailureRatio
		minRequests := a.Config.CircuitBreaker.MinRequests
		cfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		}
	}
	return cfg
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(gCtx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.kafkaSink != nil {
		if err := a.kafkaSink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka sink close error: %w", err))
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.db)...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.Logger.InfowCtx(ctx, "Shutdown complete")
	return nil
}
