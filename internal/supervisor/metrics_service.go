package supervisor

import (
	"context"
	"runtime"
	"time"

	"github.com/trev125/FlickPick/pkg/metrics"
)

const nanosecondsPerMillisecond = 1e6

// StatsProvider refreshes service-level gauges as a side effect of GetStats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// MetricsService periodically publishes runtime and service gauges.
type MetricsService struct {
	interval time.Duration
	stats    StatsProvider
}

// NewMetricsService creates the publisher. stats may be nil.
func NewMetricsService(interval time.Duration, stats StatsProvider) *MetricsService {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &MetricsService{interval: interval, stats: stats}
}

// Serve publishes once immediately and then on every tick.
func (m *MetricsService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.publish()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.publish()
		}
	}
}

func (m *MetricsService) publish() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(ms.PauseTotalNs) / float64(ms.NumGC) / nanosecondsPerMillisecond)
	}
	if m.stats != nil {
		m.stats.GetStats()
	}
}

func (m *MetricsService) String() string { return "metrics-publisher" }
