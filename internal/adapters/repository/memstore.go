package repository

import (
	"context"
	"sync"
	"time"

	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/pkg/metrics"
)

// MemoryStore is an in-memory Store. The table lock only guards membership;
// session contents are guarded by each session's own mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session

	metricsUpdateInterval time.Duration
	capacityHint          int

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a store and starts its metrics updater, which
// stops when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		metricsUpdateInterval: metrics.RefreshInterval(),
		capacityHint:          64,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = make(map[string]*model.Session, s.capacityHint)
	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, code string) (*model.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[code]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, ErrNotFound
	}
	return sess, nil
}

// Insert implements Store.Insert.
func (s *MemoryStore) Insert(ctx context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.Code]; ok {
		return ErrExists
	}
	s.sessions[sess.Code] = sess
	return nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(ctx context.Context, code string) error {
	s.mu.Lock()
	delete(s.sessions, code)
	s.mu.Unlock()
	return nil
}

// Range implements Store.Range over a snapshot of the table, so fn may
// take session locks without holding the table lock.
func (s *MemoryStore) Range(ctx context.Context, fn func(*model.Session) bool) {
	s.mu.RLock()
	snapshot := make([]*model.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		snapshot = append(snapshot, sess)
	}
	s.mu.RUnlock()

	for _, sess := range snapshot {
		if ctx.Err() != nil || !fn(sess) {
			return
		}
	}
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateActiveSessions(s.Count(ctx))
			}
		}
	}()
}
