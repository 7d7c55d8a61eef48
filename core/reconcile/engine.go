package reconcile

import (
	"fmt"
	"sort"
)

// Reconcile compares both sides of snap and returns one result per key,
// sorted by key.
func Reconcile(snap *Snapshot) []Result {
	union := make(map[string]struct{}, len(snap.LedgerIndex)+len(snap.StorageIndex))
	for key := range snap.LedgerIndex {
		union[key] = struct{}{}
	}
	for key := range snap.StorageIndex {
		union[key] = struct{}{}
	}

	results := make([]Result, 0, len(union))
	for key := range union {
		results = append(results, buildResult(key, snap))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})
	return results
}

func buildResult(key string, snap *Snapshot) Result {
	entry, ledgerPresent := snap.LedgerIndex[key]
	obj, storagePresent := snap.StorageIndex[key]

	result := Result{
		Key:            key,
		LedgerPresent:  ledgerPresent,
		StoragePresent: storagePresent,
		Mismatch:       []string{},
	}
	if ledgerPresent && storagePresent {
		result.Mismatch = compare(entry, obj.Size, obj.ContentType)
	}
	return result
}

// compare lists recorded fields that disagree with storage. Listings do not
// always carry a content type, so an empty one is not a mismatch.
func compare(e Entry, size int64, contentType string) []string {
	mismatch := []string{}
	if e.Size != size {
		mismatch = append(mismatch, fmt.Sprintf("size: ledger=%d storage=%d", e.Size, size))
	}
	if contentType != "" && e.ContentType != contentType {
		mismatch = append(mismatch, fmt.Sprintf("content_type: ledger=%s storage=%s", e.ContentType, contentType))
	}
	return mismatch
}
