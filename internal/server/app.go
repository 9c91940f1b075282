// Package server wires and runs the remote document store: storage,
// change notification, metrics and the gRPC endpoint.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/config"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/documents"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/metrics"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/notify"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/nutrikeeper/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *notify.RedisNotifier
	metrics *metrics.Metrics
	grpc    *gs.GRPCServer
}

// NewApp connects the configured backends. Without a DSN documents live in
// memory; without a Redis address change events stay in process.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, "nutrikeeper-server", logging.ParseLevel(c.LogLevel))
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger, metrics: metrics.New()}

	var repo documents.Repository = documents.NewMemoryRepository()
	if c.DatabaseDSN != "" {
		db, err := documents.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		repo = documents.NewPostgresRepository(db)
	} else {
		logger.Warn(ctx, "No database configured, documents are kept in memory")
	}

	hub := notify.NewHub()
	var publisher documents.Publisher = hub
	if c.RedisAddr != "" {
		rn, err := notify.NewRedisNotifier(ctx, c.RedisAddr, hub, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = rn
		publisher = rn
	}

	svc := documents.NewService(repo, publisher, logger)
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, svc, hub, app.metrics, c.SecretKey)

	return app, nil
}

func (app *App) initSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
}

func (app *App) startMetricsServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              app.config.MetricsAddr,
		Handler:           app.metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Run serves until a signal arrives, ctx is done or a component fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := app.initSignalHandler(ctx)
	defer stop()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.grpc.Run(ctx) })

	if app.config.MetricsAddr != "" {
		g.Go(func() error { return app.startMetricsServer(ctx) })
	}

	if app.redis != nil {
		g.Go(func() error { return app.redis.Run(ctx) })
	}

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
