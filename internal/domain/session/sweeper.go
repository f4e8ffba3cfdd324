package session

import (
	"context"
	"time"

	"github.com/trev125/FlickPick/pkg/logger"
)

// Sweeper periodically removes expired sessions. It implements suture.Service.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	logger   logger.Logger
}

// NewSweeper creates a sweeper running every interval (hourly when zero).
func NewSweeper(engine *Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		engine:   engine,
		interval: interval,
		logger:   logger.Named("sweeper"),
	}
}

// Serve runs until ctx is done.
func (s *Sweeper) Serve(ctx context.Context) error {
	s.logger.Info(ctx, "session sweeper started", logger.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.engine.SweepExpired(ctx)
		}
	}
}

// String names the service in supervisor logs.
func (s *Sweeper) String() string { return "session-sweeper" }
