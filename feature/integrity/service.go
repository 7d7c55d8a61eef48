package integrity

import (
	"context"

	"sniffstore/core/storage"
	"sniffstore/feature/files"
	"sniffstore/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultConcurrency is the number of objects a content check reads at once.
const DefaultConcurrency = 8

// Service handles integrity checks.
type Service struct {
	files  checks.Objects
	store  checks.Pinger
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new integrity service. db may be nil when the upload
// ledger is disabled.
func NewService(filesSvc *files.Service, store storage.Store, db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		files:  filesSvc,
		store:  store,
		db:     db,
		logger: logger,
	}
}

// CheckStorage reports whether the bucket is reachable.
func (s *Service) CheckStorage(ctx context.Context) checks.StorageReport {
	return checks.CheckStorage(ctx, s.store)
}

// CheckLedger verifies the uploads table schema.
func (s *Service) CheckLedger() (*checks.LedgerReport, error) {
	return checks.CheckLedger(s.db, &files.Upload{})
}

// CheckContent re-detects up to limit objects under prefix.
func (s *Service) CheckContent(ctx context.Context, prefix string, limit int) (*checks.ContentReport, error) {
	return checks.CheckContent(ctx, s.files, prefix, limit, DefaultConcurrency)
}

// FixContent rewrites the mismatched objects with their detected type.
func (s *Service) FixContent(ctx context.Context, mismatches []checks.ContentMismatch) (int, error) {
	return checks.FixContent(ctx, s.files, s.logger, mismatches)
}
