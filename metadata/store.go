package metakit

import (
	"context"
	"time"
)

// StoredSnapshot is the serialized form of a snapshot, keyed by discovery
// URL so one store can back several caches. Keys travel as the raw JWKS
// body and are re-parsed on load.
type StoredSnapshot struct {
	Document  Document  `json:"document"`
	RawJWKS   []byte    `json:"jwks"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SnapshotStore persists the last known good snapshot outside the process,
// so restarts begin warm and replicas share one fetch. Implementations live
// in storage/memory and storage/redis. All methods are best-effort from the
// cache's point of view: a failing store degrades to plain lazy fetching.
type SnapshotStore interface {
	Put(ctx context.Context, key string, snap StoredSnapshot) error
	Get(ctx context.Context, key string) (StoredSnapshot, bool, error)
}
