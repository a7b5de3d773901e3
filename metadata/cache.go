package metakit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/open-rails/entrakit/core"
)

// Snapshot is one immutable fetch result: the discovery document plus the
// signing key set retrieved through its jwks_uri. Snapshots are replaced
// wholesale; readers always observe a complete one.
type Snapshot struct {
	Document  Document
	FetchedAt time.Time

	keys jwk.Set
	raw  []byte
}

func (s *Snapshot) fresh(ttl time.Duration) bool {
	return time.Since(s.FetchedAt) < ttl
}

// SigningKey returns the raw public key for kid, if present.
func (s *Snapshot) SigningKey(kid string) (any, bool) {
	key, ok := s.keys.LookupKeyID(kid)
	if !ok {
		return nil, false
	}
	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, false
	}
	return raw, true
}

// Keys returns the key ids in the snapshot, for observability.
func (s *Snapshot) Keys() []string {
	out := make([]string, 0, s.keys.Len())
	for i := 0; i < s.keys.Len(); i++ {
		if k, ok := s.keys.Key(i); ok {
			out = append(out, k.KeyID())
		}
	}
	return out
}

// refresh modes. They share one singleflight key, so concurrent callers of
// any mode join a single in-flight fetch.
const (
	modeStale   = iota // fetch only if the snapshot is no longer fresh
	modeKeyMiss        // forced fetch for an unknown kid, cooldown-gated
	modeEager          // unconditional fetch (warm-up schedule)
)

// Cache lazily fetches and caches the provider's metadata and signing keys.
// It is safe for concurrent use; the snapshot swap is atomic and refreshes
// are coalesced so at most one fetch is in flight per cache.
type Cache struct {
	cfg    core.Config
	client *http.Client
	log    *logrus.Logger
	store  SnapshotStore

	snap      atomic.Pointer[Snapshot]
	group     singleflight.Group
	lastMiss  atomic.Int64 // unix nanos of the last key-miss fetch
	storeOnce sync.Once

	cron *cron.Cron
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient replaces the HTTP client used for discovery and JWKS
// fetches. The configured HTTPTimeout still bounds each refresh.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// WithLogger sets the logger used for degraded-fallback and store warnings.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithStore persists the last good snapshot so restarts begin warm and
// replicas share one fetch. Store failures are logged, never propagated.
func WithStore(store SnapshotStore) Option {
	return func(c *Cache) { c.store = store }
}

// WithRefreshEvery schedules an eager background re-warm at the given
// interval. The cache still refreshes lazily without it.
func WithRefreshEvery(interval time.Duration) Option {
	return func(c *Cache) {
		c.cron = cron.New()
		_, _ = c.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HTTPTimeout)
			defer cancel()
			if _, err := c.refresh(ctx, modeEager); err != nil {
				c.log.WithError(err).Warn("scheduled metadata refresh failed")
			}
		})
	}
}

// New builds a cache for the tenant described by cfg. No network call is
// made until the first lookup (or Warm).
func New(cfg core.Config, opts ...Option) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Cache{cfg: cfg.Defaulted()}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.cfg.HTTPTimeout}
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.cron != nil {
		c.cron.Start()
	}
	return c, nil
}

// Close stops the eager-refresh schedule, if one was configured.
func (c *Cache) Close() {
	if c.cron != nil {
		c.cron.Stop()
	}
}

// Warm fetches the snapshot now. Hosts call it at startup when they prefer
// eager warm-up over first-request latency; it is never required.
func (c *Cache) Warm(ctx context.Context) error {
	_, err := c.snapshot(ctx)
	return err
}

// Invalidate marks the current snapshot stale. It remains available as a
// degraded fallback until the next successful fetch replaces it.
func (c *Cache) Invalidate() {
	if s := c.snap.Load(); s != nil {
		stale := *s
		stale.FetchedAt = time.Time{}
		c.snap.Store(&stale)
	}
}

// GetMetadata returns the discovery document, fetching or refreshing it if
// the cached snapshot is missing or past its TTL.
func (c *Cache) GetMetadata(ctx context.Context) (Document, error) {
	s, err := c.snapshot(ctx)
	if err != nil {
		return Document{}, err
	}
	return s.Document, nil
}

// SigningKey resolves kid against the current key set. On a miss it
// performs one refresh to pick up rotated keys and retries once; a second
// miss is ErrUnknownSigningKey.
func (c *Cache) SigningKey(ctx context.Context, kid string) (any, error) {
	s, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := s.SigningKey(kid); ok {
		return key, nil
	}

	s, err = c.refresh(ctx, modeKeyMiss)
	if err != nil {
		return nil, fmt.Errorf("%w: kid %q (refresh failed: %v)", core.ErrUnknownSigningKey, kid, err)
	}
	if key, ok := s.SigningKey(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", core.ErrUnknownSigningKey, kid)
}

// snapshot returns a usable snapshot, preferring fresh, then newly fetched,
// then stale-but-available. Only a cold cache propagates fetch failures.
func (c *Cache) snapshot(ctx context.Context) (*Snapshot, error) {
	c.loadFromStore(ctx)

	if s := c.snap.Load(); s != nil && s.fresh(c.cfg.CacheTTL) {
		return s, nil
	}
	s, err := c.refresh(ctx, modeStale)
	if err == nil {
		return s, nil
	}
	if prev := c.snap.Load(); prev != nil && c.withinStaleBound(prev) {
		c.log.WithError(err).WithField("fetched_at", prev.FetchedAt).
			Warn("provider metadata refresh failed, serving stale snapshot")
		return prev, nil
	}
	return nil, err
}

func (c *Cache) withinStaleBound(s *Snapshot) bool {
	if c.cfg.MaxStale == 0 {
		return true
	}
	return time.Since(s.FetchedAt) < c.cfg.CacheTTL+c.cfg.MaxStale
}

// refresh coalesces concurrent callers onto a single fetch and swaps the
// snapshot atomically on success.
func (c *Cache) refresh(ctx context.Context, mode int) (*Snapshot, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		cur := c.snap.Load()
		switch mode {
		case modeStale:
			// Another caller may have refreshed while we waited.
			if cur != nil && cur.fresh(c.cfg.CacheTTL) {
				return cur, nil
			}
		case modeKeyMiss:
			last := time.Unix(0, c.lastMiss.Load())
			if cur != nil && time.Since(last) < c.cfg.KeyRefreshCooldown {
				return cur, nil
			}
			c.lastMiss.Store(time.Now().UnixNano())
		}

		snap, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.snap.Store(snap)
		c.persist(ctx, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *Cache) fetch(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()

	doc, err := fetchDocument(ctx, c.client, c.cfg.DiscoveryURL(), c.cfg.Issuer())
	if err != nil {
		return nil, err
	}
	set, raw, err := fetchJWKS(ctx, c.client, doc.JWKSURI)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Document:  doc,
		FetchedAt: time.Now(),
		keys:      set,
		raw:       raw,
	}, nil
}

// loadFromStore seeds the snapshot from the shared store once, before the
// first fetch. Failures degrade to plain lazy fetching.
func (c *Cache) loadFromStore(ctx context.Context) {
	if c.store == nil {
		return
	}
	c.storeOnce.Do(func() {
		stored, ok, err := c.store.Get(ctx, c.cfg.DiscoveryURL())
		if err != nil {
			c.log.WithError(err).Warn("snapshot store read failed")
			return
		}
		if !ok {
			return
		}
		set, err := jwk.Parse(stored.RawJWKS)
		if err != nil || set.Len() == 0 {
			c.log.WithError(err).Warn("snapshot store held unparseable JWKS")
			return
		}
		if c.snap.Load() == nil {
			c.snap.Store(&Snapshot{
				Document:  stored.Document,
				FetchedAt: stored.FetchedAt,
				keys:      set,
				raw:       stored.RawJWKS,
			})
		}
	})
}

func (c *Cache) persist(ctx context.Context, snap *Snapshot) {
	if c.store == nil {
		return
	}
	err := c.store.Put(ctx, c.cfg.DiscoveryURL(), StoredSnapshot{
		Document:  snap.Document,
		RawJWKS:   snap.raw,
		FetchedAt: snap.FetchedAt,
	})
	if err != nil {
		c.log.WithError(err).Warn("snapshot store write failed")
	}
}
