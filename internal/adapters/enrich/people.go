package enrich

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// personMemo caches person image lookups for the process lifetime.
// Concurrent lookups of the same name share one upstream call.
type personMemo struct {
	mu     sync.RWMutex
	images map[string]*string
	group  singleflight.Group
}

func newPersonMemo() *personMemo {
	return &personMemo{images: make(map[string]*string)}
}

type imageFunc func(ctx context.Context, name string) (*string, error)

// get returns the cached image for name, fetching it once on a miss.
// Failed lookups are not remembered.
func (m *personMemo) get(ctx context.Context, name string, fetch imageFunc) (*string, error) {
	m.mu.RLock()
	img, ok := m.images[name]
	m.mu.RUnlock()
	if ok {
		return img, nil
	}

	v, err, _ := m.group.Do(name, func() (any, error) {
		img, err := fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.images[name] = img
		m.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*string), nil
}

func (m *personMemo) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}
