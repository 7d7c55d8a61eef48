package files

import (
	"context"
	"time"

	"sniffstore/core/reconcile"

	"go.uber.org/zap"
)

// DefaultAuditCacheTTL is how long an audit snapshot is reused.
const DefaultAuditCacheTTL = 30 * time.Second

// ledger exposes a Recorder as the recorded side of an audit.
type ledger struct {
	recorder Recorder
}

func (l ledger) Entries(ctx context.Context, bucket, prefix string) ([]reconcile.Entry, error) {
	rows, err := l.recorder.Entries(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, reconcile.Entry{
			Key:         row.Key,
			ContentType: row.ContentType,
			Size:        row.Size,
			ACL:         row.ACL,
		})
	}
	return out, nil
}

func (l ledger) Put(ctx context.Context, bucket string, e reconcile.Entry) error {
	return l.recorder.Record(ctx, Upload{
		Bucket:      bucket,
		Key:         e.Key,
		ContentType: e.ContentType,
		Size:        e.Size,
		ACL:         e.ACL,
	})
}

func (l ledger) Remove(ctx context.Context, bucket, key string) error {
	return l.recorder.Forget(ctx, bucket, key)
}

func (s *Service) auditSpec(prefix string) reconcile.Spec {
	return reconcile.Spec{Bucket: s.store.Bucket(), Prefix: prefix, CacheTTL: s.auditTTL}
}

// Audit compares the upload ledger with the objects stored under prefix and
// returns the ledger changes that would make them agree.
func (s *Service) Audit(ctx context.Context, prefix string) (*reconcile.Plan, error) {
	plan, err := s.audits.Plan(ctx, s.auditSpec(prefix), ledger{s.recorder}, s.store)
	if err != nil {
		return nil, err
	}
	if plan.Summary.Truncated {
		s.logger.Warn("Audit listing truncated, missing objects were not checked", zap.String("prefix", prefix))
	}
	return plan, nil
}

// Repair audits prefix from a fresh snapshot and applies the resulting plan
// to the ledger. Objects are never modified.
func (s *Service) Repair(ctx context.Context, prefix string, opts reconcile.Options) (*reconcile.Plan, int, error) {
	spec := s.auditSpec(prefix)
	s.audits.Invalidate(spec)

	plan, err := s.audits.Plan(ctx, spec, ledger{s.recorder}, s.store)
	if err != nil {
		return nil, 0, err
	}

	executed, err := reconcile.Apply(ctx, spec, ledger{s.recorder}, s.store, plan, opts)
	if executed > 0 {
		s.audits.Invalidate(spec)
	}
	if err != nil {
		s.logger.Error("Ledger repair incomplete", zap.String("prefix", prefix), zap.Int("executed", executed), zap.Error(err))
		return plan, executed, err
	}

	s.logger.Info("Ledger repaired",
		zap.String("prefix", prefix),
		zap.Int("planned", len(plan.Actions)),
		zap.Int("executed", executed),
		zap.Bool("dry_run", opts.DryRun),
	)
	return plan, executed, nil
}
