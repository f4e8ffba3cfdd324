package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trev125/FlickPick/internal/adapters/http/api"
	app "github.com/trev125/FlickPick/internal/app"
	"github.com/trev125/FlickPick/internal/config"
	"github.com/trev125/FlickPick/internal/supervisor"
	"github.com/trev125/FlickPick/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Initialize logging with defaults until the configured format is known
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "flickpick exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run starts the service and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc := app.New(cfg, app.WithLogger(logger.Named("service")))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	engine, err := svc.Engine()
	if err != nil {
		return err
	}
	sweeper, err := svc.Sweeper()
	if err != nil {
		return err
	}

	apiServer := api.NewServer(engine, svc,
		api.WithCORSOrigins(cfg.CORSOrigins...),
		api.WithCreateRateLimit(cfg.CreateRateLimit),
	)
	srv := newHTTPServer(cfg, apiServer.Router())

	tree := supervisor.NewTree(logger.Slog(), supervisor.TreeConfig{ShutdownTimeout: shutdownTimeout})
	tree.AddAPIService(supervisor.NewHTTPService(srv, shutdownTimeout))
	tree.AddMaintenanceService(sweeper)
	tree.AddMaintenanceService(supervisor.NewMetricsService(systemMetricsInterval, svc))

	log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
	err = tree.Serve(ctx)

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, u := range report {
			log.Warn(context.Background(), "service did not stop in time", logger.String("service", u.Name))
		}
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info(context.Background(), "server stopped")
	return nil
}

// newHTTPServer allows a write to last as long as a full match computation.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.MatchTimeout + readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
