package reconcile

import (
	"context"
	"time"
)

// Entry is the ledger's view of one object.
type Entry struct {
	Key         string
	ContentType string
	Size        int64
	ACL         string
}

// Ledger is the recorded side of the audit.
type Ledger interface {
	// Entries returns every recorded object of bucket under prefix.
	Entries(ctx context.Context, bucket, prefix string) ([]Entry, error)
	// Put inserts or refreshes a recorded object.
	Put(ctx context.Context, bucket string, e Entry) error
	// Remove drops a recorded object.
	Remove(ctx context.Context, bucket, key string) error
}

// Result is the reconciliation output for a single key.
type Result struct {
	// Key is the object key.
	Key string `json:"key"`

	// LedgerPresent indicates whether the upload ledger has a row for the key.
	LedgerPresent bool `json:"ledger_present"`

	// StoragePresent indicates whether the object exists in the bucket.
	StoragePresent bool `json:"storage_present"`

	// Mismatch describes recorded fields that disagree with storage,
	// e.g. "size: ledger=10 storage=12".
	Mismatch []string `json:"mismatch"`
}

// Spec selects what to reconcile.
type Spec struct {
	// Bucket is the bucket being audited.
	Bucket string

	// Prefix limits the audit to keys under it.
	Prefix string

	// CacheTTL is the time-to-live for cached snapshots.
	// If zero, caching is disabled.
	CacheTTL time.Duration
}

// CacheKey returns a unique key for caching based on spec parameters.
func (s Spec) CacheKey() string {
	return s.Bucket + "|" + s.Prefix
}

// ActionType represents the type of repair action.
type ActionType string

const (
	// ActionRecord adds a ledger row for an object that was never recorded.
	ActionRecord ActionType = "record"
	// ActionForget drops a ledger row whose object is gone.
	ActionForget ActionType = "forget"
	// ActionRefresh rewrites a ledger row from the object's current metadata.
	ActionRefresh ActionType = "refresh"
)

// Action represents a planned ledger mutation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the object key.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// Plan contains reconciliation results and planned actions.
type Plan struct {
	// Results contains per-key reconciliation data.
	Results []Result `json:"results"`

	// Actions contains planned mutation operations.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary Summary `json:"summary"`
}

// Summary provides aggregate statistics for a plan.
type Summary struct {
	// TotalItems is the total number of unique keys.
	TotalItems int `json:"total_items"`

	// MissingLedger counts objects without a ledger row.
	MissingLedger int `json:"missing_ledger"`

	// MissingStorage counts ledger rows without an object.
	MissingStorage int `json:"missing_storage"`

	// Mismatches counts keys with field discrepancies.
	Mismatches int `json:"mismatches"`

	// Truncated is set when the storage listing hit its page cap, so keys
	// past it were not audited.
	Truncated bool `json:"truncated"`
}

// Options controls whether a plan is executed.
type Options struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// Confirmed indicates the caller agreed to mutate the ledger.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}
