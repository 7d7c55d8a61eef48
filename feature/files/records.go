package files

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLedgerDisabled is returned by ledger reads when no database is configured.
var ErrLedgerDisabled = errors.New("upload ledger is disabled")

// DefaultRecentLimit is the number of records Recent returns when asked for none.
const DefaultRecentLimit = 50

// Upload is a row of the upload ledger. Keys may be MaxKeyLength bytes, which
// is over the InnoDB index limit in utf8mb4, so uniqueness is enforced on a
// digest of the key and the key itself only gets a prefix index.
type Upload struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Bucket      string    `gorm:"size:63;not null;uniqueIndex:idx_uploads_bucket_key" json:"bucket"`
	Key         string    `gorm:"column:object_key;size:1024;not null;index:idx_uploads_object_key,length:191" json:"key"`
	KeyHash     string    `gorm:"size:64;not null;uniqueIndex:idx_uploads_bucket_key" json:"-"`
	ContentType string    `gorm:"size:255" json:"content_type"`
	Size        int64     `json:"size"`
	ACL         string    `gorm:"column:acl;size:32" json:"acl"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`
}

func (Upload) TableName() string {
	return "uploads"
}

// BeforeSave keeps KeyHash in step with Key.
func (u *Upload) BeforeSave(*gorm.DB) error {
	u.KeyHash = KeyHash(u.Key)
	return nil
}

// KeyHash is the hex SHA-256 of an object key.
func KeyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Recorder keeps the upload ledger.
type Recorder interface {
	// Record inserts or refreshes the row for an upload.
	Record(ctx context.Context, u Upload) error
	// SetACL updates the ACL of a recorded object.
	SetACL(ctx context.Context, bucket, key, acl string) error
	// Forget removes the row of a deleted object.
	Forget(ctx context.Context, bucket, key string) error
	// Recent lists the most recently written rows.
	Recent(ctx context.Context, limit int) ([]Upload, error)
	// Entries lists every row of bucket whose key starts with prefix.
	Entries(ctx context.Context, bucket, prefix string) ([]Upload, error)
}

// NewRecorder returns a gorm backed recorder, or a no-op one when db is nil.
func NewRecorder(db *gorm.DB) Recorder {
	if db == nil {
		return nopRecorder{}
	}
	return &gormRecorder{db: db}
}

// Migrate creates or updates the uploads table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Upload{})
}

type gormRecorder struct {
	db *gorm.DB
}

func (r *gormRecorder) Record(ctx context.Context, u Upload) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bucket"}, {Name: "key_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_type", "size", "acl", "updated_at"}),
	}).Create(&u).Error
}

func (r *gormRecorder) SetACL(ctx context.Context, bucket, key, acl string) error {
	return r.db.WithContext(ctx).Model(&Upload{}).
		Where("bucket = ? AND key_hash = ?", bucket, KeyHash(key)).
		Update("acl", acl).Error
}

func (r *gormRecorder) Forget(ctx context.Context, bucket, key string) error {
	return r.db.WithContext(ctx).
		Where("bucket = ? AND key_hash = ?", bucket, KeyHash(key)).
		Delete(&Upload{}).Error
}

func (r *gormRecorder) Recent(ctx context.Context, limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	var rows []Upload
	err := r.db.WithContext(ctx).Order("updated_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *gormRecorder) Entries(ctx context.Context, bucket, prefix string) ([]Upload, error) {
	q := r.db.WithContext(ctx).Where("bucket = ?", bucket)
	if prefix != "" {
		q = q.Where("object_key LIKE ?", likeEscaper.Replace(prefix)+"%")
	}
	var rows []Upload
	err := q.Order("object_key").Find(&rows).Error
	return rows, err
}

// likeEscaper quotes LIKE wildcards using MySQL's default escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Upload) error                 { return nil }
func (nopRecorder) SetACL(context.Context, string, string, string) error { return nil }
func (nopRecorder) Forget(context.Context, string, string) error         { return nil }
func (nopRecorder) Recent(context.Context, int) ([]Upload, error)        { return []Upload{}, nil }
func (nopRecorder) Entries(context.Context, string, string) ([]Upload, error) {
	return nil, ErrLedgerDisabled
}
