package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sniffstore/core/storage"
	"sniffstore/core/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var listAll = storage.ListOptions{Prefix: "img/", MaxKeys: storage.MaxListKeys}

func TestSpecCacheKey(t *testing.T) {
	assert.Equal(t, "uploads|img/", Spec{Bucket: "uploads", Prefix: "img/", CacheTTL: time.Hour}.CacheKey())
	assert.NotEqual(t, Spec{Bucket: "a", Prefix: "b"}.CacheKey(), Spec{Bucket: "a"}.CacheKey())
}

func TestSnapshotIsExpired(t *testing.T) {
	assert.True(t, (&Snapshot{Built: time.Now()}).IsExpired(), "zero ttl never caches")
	assert.False(t, (&Snapshot{Built: time.Now(), TTL: time.Hour}).IsExpired())
	assert.True(t, (&Snapshot{Built: time.Now().Add(-2 * time.Hour), TTL: time.Hour}).IsExpired())
}

func TestBuildSnapshot(t *testing.T) {
	ledger := newMemLedger(Entry{Key: "img/a.png", Size: 1})
	store := new(mocks.Store)
	store.On("List", mock.Anything, listAll).Return([]storage.ObjectInfo{
		{Key: "img/"},
		{Key: "img/a.png", Size: 1},
		{Key: "img/b.png", Size: 2},
	}, nil)

	snap, err := BuildSnapshot(context.Background(), Spec{Bucket: "b", Prefix: "img/"}, ledger, store)
	require.NoError(t, err)

	assert.Len(t, snap.LedgerIndex, 1)
	assert.Len(t, snap.StorageIndex, 2, "folder markers are skipped")
	assert.False(t, snap.Truncated)
	store.AssertExpectations(t)
}

func TestBuildSnapshot_Truncated(t *testing.T) {
	objects := make([]storage.ObjectInfo, storage.MaxListKeys)
	for i := range objects {
		objects[i] = storage.ObjectInfo{Key: fmt.Sprintf("img/%04d", i)}
	}
	store := new(mocks.Store)
	store.On("List", mock.Anything, listAll).Return(objects, nil)

	snap, err := BuildSnapshot(context.Background(), Spec{Prefix: "img/"}, newMemLedger(), store)
	require.NoError(t, err)
	assert.True(t, snap.Truncated)
}

func TestBuildSnapshot_Errors(t *testing.T) {
	ledger := newMemLedger()
	ledger.err = errors.New("ledger down")
	store := new(mocks.Store)
	store.On("List", mock.Anything, listAll).Return([]storage.ObjectInfo{}, nil)

	_, err := BuildSnapshot(context.Background(), Spec{Prefix: "img/"}, ledger, store)
	assert.ErrorContains(t, err, "ledger down")

	failing := new(mocks.Store)
	failing.On("List", mock.Anything, listAll).Return(nil, storage.ErrAccessDenied)

	_, err = BuildSnapshot(context.Background(), Spec{Prefix: "img/"}, newMemLedger(), failing)
	assert.ErrorIs(t, err, storage.ErrAccessDenied)
}

func TestCache_ReusesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger()
	store := new(mocks.Store)
	store.On("List", mock.Anything, listAll).Return([]storage.ObjectInfo{}, nil)

	cache := NewCache()
	spec := Spec{Bucket: "b", Prefix: "img/", CacheTTL: time.Hour}

	first, err := cache.GetOrBuild(ctx, spec, ledger, store)
	require.NoError(t, err)
	second, err := cache.GetOrBuild(ctx, spec, ledger, store)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), ledger.reads.Load())

	cache.Invalidate(spec)
	third, err := cache.GetOrBuild(ctx, spec, ledger, store)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int32(2), ledger.reads.Load())
}

func TestCache_NoTTLAlwaysRebuilds(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger()
	store := new(mocks.Store)
	store.On("List", mock.Anything, listAll).Return([]storage.ObjectInfo{}, nil)

	cache := NewCache()
	spec := Spec{Prefix: "img/"}
	for range 3 {
		_, err := cache.GetOrBuild(ctx, spec, ledger, store)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), ledger.reads.Load())
}

func TestCache_Concurrent(t *testing.T) {
	ledger := newMemLedger(Entry{Key: "img/a"})
	store := new(mocks.Store)
	store.On("List", mock.Anything, listAll).Return([]storage.ObjectInfo{{Key: "img/a"}}, nil)

	cache := NewCache()
	spec := Spec{Prefix: "img/", CacheTTL: time.Hour}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := cache.GetOrBuild(context.Background(), spec, ledger, store)
			assert.NoError(t, err)
			assert.Len(t, snap.LedgerIndex, 1)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, ledger.reads.Load(), int32(20))
}

func TestCache_BuildSurvivesCancelledCaller(t *testing.T) {
	ledger := newMemLedger(Entry{Key: "img/a"})
	store := new(mocks.Store)

	entered := make(chan struct{})
	release := make(chan struct{})
	buildErr := make(chan error, 1)
	store.On("List", mock.Anything, listAll).Run(func(args mock.Arguments) {
		close(entered)
		<-release
		buildErr <- args.Get(0).(context.Context).Err()
	}).Return([]storage.ObjectInfo{{Key: "img/a"}}, nil).Once()

	cache := NewCache()
	spec := Spec{Prefix: "img/", CacheTTL: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cache.GetOrBuild(ctx, spec, ledger, store)
		first <- err
	}()

	<-entered
	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	require.NoError(t, <-buildErr)

	// The detached build still lands in the cache for the next caller.
	snap, err := cache.GetOrBuild(context.Background(), spec, ledger, store)
	require.NoError(t, err)
	assert.Len(t, snap.StorageIndex, 1)
	store.AssertExpectations(t)
}

func TestCachePlan(t *testing.T) {
	ledger := newMemLedger(Entry{Key: "img/old"})
	store := new(mocks.Store)
	store.On("List", mock.Anything, listAll).Return([]storage.ObjectInfo{{Key: "img/new"}}, nil)

	plan, err := NewCache().Plan(context.Background(), Spec{Prefix: "img/"}, ledger, store)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.Summary.TotalItems)
	assert.Len(t, plan.Actions, 2)
}
