package reconcile

import (
	"context"
	"errors"
	"fmt"

	"sniffstore/core/storage"
)

// BuildPlan turns results into a summary and the ledger actions that would
// make the ledger agree with storage.
func BuildPlan(results []Result, snap *Snapshot) *Plan {
	plan := &Plan{
		Results: results,
		Actions: []Action{},
		Summary: Summary{TotalItems: len(results), Truncated: snap.Truncated},
	}

	for _, r := range results {
		switch {
		case r.StoragePresent && !r.LedgerPresent:
			plan.Summary.MissingLedger++
			plan.Actions = append(plan.Actions, Action{Type: ActionRecord, Key: r.Key, Reason: "object has no ledger row"})
		case r.LedgerPresent && !r.StoragePresent:
			// A truncated listing cannot prove absence.
			if snap.Truncated {
				continue
			}
			plan.Summary.MissingStorage++
			plan.Actions = append(plan.Actions, Action{Type: ActionForget, Key: r.Key, Reason: "object no longer exists"})
		case len(r.Mismatch) > 0:
			plan.Summary.Mismatches++
			plan.Actions = append(plan.Actions, Action{Type: ActionRefresh, Key: r.Key, Reason: r.Mismatch[0]})
		}
	}
	return plan
}

// Plan builds a snapshot through cache and returns the audit plan.
// It does NOT execute actions; use Apply for that.
func (c *Cache) Plan(ctx context.Context, spec Spec, ledger Ledger, store storage.Store) (*Plan, error) {
	snap, err := c.GetOrBuild(ctx, spec, ledger, store)
	if err != nil {
		return nil, err
	}
	return BuildPlan(Reconcile(snap), snap), nil
}

// Apply executes the actions of plan against the ledger. Records and
// refreshes stat the object so the row carries its real content type.
// Requires opts.Confirmed=true and opts.DryRun=false to actually execute.
// A failed action does not stop the others; the failures are joined into err
// and executed counts only the actions that succeeded.
func Apply(ctx context.Context, spec Spec, ledger Ledger, store storage.Store, plan *Plan, opts Options) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}

	var failures []error
	for _, action := range plan.Actions {
		if ctxErr := ctx.Err(); ctxErr != nil {
			failures = append(failures, ctxErr)
			break
		}
		if err := applyAction(ctx, spec, ledger, store, action); err != nil {
			failures = append(failures, err)
			continue
		}
		executed++
	}
	return executed, errors.Join(failures...)
}

func applyAction(ctx context.Context, spec Spec, ledger Ledger, store storage.Store, action Action) error {
	switch action.Type {
	case ActionForget:
		if err := ledger.Remove(ctx, spec.Bucket, action.Key); err != nil {
			return fmt.Errorf("failed to forget %s: %w", action.Key, err)
		}
	case ActionRecord, ActionRefresh:
		info, err := store.Stat(ctx, action.Key)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", action.Key, err)
		}
		acl := ""
		if aclInfo, err := store.GetACL(ctx, action.Key); err == nil {
			acl = string(aclInfo.Canned)
		}
		if err := ledger.Put(ctx, spec.Bucket, Entry{
			Key:         action.Key,
			ContentType: info.ContentType,
			Size:        info.Size,
			ACL:         acl,
		}); err != nil {
			return fmt.Errorf("failed to record %s: %w", action.Key, err)
		}
	default:
		return fmt.Errorf("unknown action %q", action.Type)
	}
	return nil
}
