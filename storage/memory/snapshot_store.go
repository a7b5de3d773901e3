// Package memorystore provides in-process implementations of the kit's
// storage interfaces, for single-node deployments and tests.
package memorystore

import (
	"context"
	"sync"
	"time"

	metakit "github.com/open-rails/entrakit/metadata"
)

// SnapshotStore is an in-memory metakit.SnapshotStore with TTL eviction.
type SnapshotStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	data   map[string]item
	closed chan struct{}
}

type item struct {
	v   metakit.StoredSnapshot
	exp time.Time
}

// NewSnapshotStore creates an in-memory snapshot store. If ttl <= 0, a
// default of 24 hours is used. A background goroutine cleans out expired
// entries every minute until Close.
func NewSnapshotStore(ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &SnapshotStore{ttl: ttl, data: make(map[string]item), closed: make(chan struct{})}
	go s.cleanupLoop()
	return s
}

func (s *SnapshotStore) Put(ctx context.Context, key string, snap metakit.StoredSnapshot) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = item{v: snap, exp: time.Now().Add(s.ttl)}
	return nil
}

func (s *SnapshotStore) Get(ctx context.Context, key string) (metakit.StoredSnapshot, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[key]
	if !ok {
		return metakit.StoredSnapshot{}, false, nil
	}
	if time.Now().After(it.exp) {
		delete(s.data, key)
		return metakit.StoredSnapshot{}, false, nil
	}
	return it.v, true, nil
}

func (s *SnapshotStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.closed:
			return
		}
	}
}

func (s *SnapshotStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.data {
		if now.After(v.exp) {
			delete(s.data, k)
		}
	}
}

// Close stops the background cleanup goroutine.
func (s *SnapshotStore) Close() error {
	close(s.closed)
	return nil
}
