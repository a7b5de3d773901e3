// Package redisstore provides Redis-backed implementations of the kit's
// storage interfaces, so replicas share fetched provider state.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	metakit "github.com/open-rails/entrakit/metadata"
)

// SnapshotStore persists metadata snapshots in Redis, keyed by discovery
// URL under a configurable namespace.
type SnapshotStore struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

// NewSnapshotStore creates a Redis snapshot store. Empty keyPrefix
// defaults to "entrakit:metadata:"; ttl <= 0 defaults to 7 days, long
// enough to restart warm through a provider outage.
func NewSnapshotStore(rdb *redis.Client, keyPrefix string, ttl time.Duration) *SnapshotStore {
	if keyPrefix == "" {
		keyPrefix = "entrakit:metadata:"
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SnapshotStore{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (s *SnapshotStore) key(discoveryURL string) string { return s.keyNS + discoveryURL }

func (s *SnapshotStore) Put(ctx context.Context, key string, snap metakit.StoredSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(key), b, s.ttl).Err()
}

func (s *SnapshotStore) Get(ctx context.Context, key string) (metakit.StoredSnapshot, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return metakit.StoredSnapshot{}, false, nil
	}
	if err != nil {
		return metakit.StoredSnapshot{}, false, err
	}
	var snap metakit.StoredSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return metakit.StoredSnapshot{}, false, err
	}
	return snap, true, nil
}
