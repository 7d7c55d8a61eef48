// Package reconcile audits the upload ledger against the bucket it describes.
//
// Uploads and deletes keep the ledger current, but objects written by other
// tools, failed ledger writes or manual deletes let the two drift apart. The
// audit finds the drift and plans the ledger changes that remove it.
//
// # Architecture
//
//  1. Snapshot: the ledger rows and the storage listing for a prefix, loaded
//     concurrently and indexed by key.
//
//  2. Engine: builds the union of keys, detects presence on each side and
//     compares recorded size and content type.
//
//  3. Plan: turns results into record, forget and refresh actions. Apply runs
//     them only when confirmed and not a dry run.
//
//  4. Cache: TTL-based snapshot cache with stampede protection.
//
// Storage is never modified; only ledger rows change.
//
// # Usage Example
//
//	cache := reconcile.NewCache()
//	spec := reconcile.Spec{Bucket: "uploads", Prefix: "img/", CacheTTL: time.Minute}
//
//	plan, err := cache.Plan(ctx, spec, ledger, store)
//	n, err := reconcile.Apply(ctx, spec, ledger, store, plan, reconcile.Options{Confirmed: true})
package reconcile
