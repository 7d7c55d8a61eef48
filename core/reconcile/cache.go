package reconcile

import (
	"context"
	"strings"
	"sync"
	"time"

	"sniffstore/core/storage"

	"golang.org/x/sync/singleflight"
)

// Snapshot holds both sides of an audit, indexed by key.
type Snapshot struct {
	// LedgerIndex holds the recorded objects.
	LedgerIndex map[string]Entry

	// StorageIndex holds the listed objects.
	StorageIndex map[string]storage.ObjectInfo

	// Truncated is set when the listing returned a full page.
	Truncated bool

	// Built is the timestamp when this snapshot was built.
	Built time.Time

	// TTL is the time-to-live for this snapshot.
	TTL time.Duration
}

// IsExpired returns true if this snapshot has expired based on its TTL.
func (s *Snapshot) IsExpired() bool {
	if s.TTL == 0 {
		return true // No caching
	}
	return time.Since(s.Built) > s.TTL
}

// BuildSnapshot loads the ledger and the storage listing concurrently.
func BuildSnapshot(ctx context.Context, spec Spec, ledger Ledger, store storage.Store) (*Snapshot, error) {
	var (
		entries    []Entry
		objects    []storage.ObjectInfo
		ledgerErr  error
		storageErr error
		wg         sync.WaitGroup
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		entries, ledgerErr = ledger.Entries(ctx, spec.Bucket, spec.Prefix)
	}()

	go func() {
		defer wg.Done()
		objects, storageErr = store.List(ctx, storage.ListOptions{Prefix: spec.Prefix, MaxKeys: storage.MaxListKeys})
	}()

	wg.Wait()

	if ledgerErr != nil {
		return nil, ledgerErr
	}
	if storageErr != nil {
		return nil, storageErr
	}

	snap := &Snapshot{
		LedgerIndex:  make(map[string]Entry, len(entries)),
		StorageIndex: make(map[string]storage.ObjectInfo, len(objects)),
		Truncated:    len(objects) >= storage.MaxListKeys,
		Built:        time.Now(),
		TTL:          spec.CacheTTL,
	}
	for _, e := range entries {
		snap.LedgerIndex[e.Key] = e
	}
	for _, o := range objects {
		// Folder markers are not objects anyone uploaded.
		if strings.HasSuffix(o.Key, "/") {
			continue
		}
		snap.StorageIndex[o.Key] = o
	}
	return snap, nil
}

// BuildTimeout bounds a shared snapshot build. The build does not follow the
// context of the caller that started it, since other callers may be waiting.
const BuildTimeout = 5 * time.Minute

// Cache keeps snapshots per spec and rebuilds them at most once at a time.
type Cache struct {
	mu    sync.RWMutex
	snaps map[string]*Snapshot
	sf    singleflight.Group
}

// NewCache creates an empty snapshot cache.
func NewCache() *Cache {
	return &Cache{snaps: make(map[string]*Snapshot)}
}

// GetOrBuild returns a fresh cached snapshot for spec, or builds one.
// Concurrent callers for the same spec share a single build.
func (c *Cache) GetOrBuild(ctx context.Context, spec Spec, ledger Ledger, store storage.Store) (*Snapshot, error) {
	key := spec.CacheKey()

	c.mu.RLock()
	snap, ok := c.snaps[key]
	c.mu.RUnlock()
	if ok && !snap.IsExpired() {
		return snap, nil
	}

	ch := c.sf.DoChan(key, func() (any, error) {
		c.mu.RLock()
		snap, ok := c.snaps[key]
		c.mu.RUnlock()
		if ok && !snap.IsExpired() {
			return snap, nil
		}

		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), BuildTimeout)
		defer cancel()
		fresh, err := BuildSnapshot(bctx, spec, ledger, store)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.snaps[key] = fresh
		c.mu.Unlock()
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Invalidate drops the cached snapshot for spec.
func (c *Cache) Invalidate(spec Spec) {
	c.mu.Lock()
	delete(c.snaps, spec.CacheKey())
	c.mu.Unlock()
}
