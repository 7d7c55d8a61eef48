package files

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestNewRecorder_NilDB(t *testing.T) {
	r := NewRecorder(nil)
	assert.IsType(t, nopRecorder{}, r)

	ctx := context.Background()
	assert.NoError(t, r.Record(ctx, Upload{Key: "k"}))
	assert.NoError(t, r.SetACL(ctx, "b", "k", "private"))
	assert.NoError(t, r.Forget(ctx, "b", "k"))
	rows, err := r.Recent(ctx, 5)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGormRecorder_Record(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `uploads` (`bucket`,`object_key`,`key_hash`,`content_type`,`size`,`acl`,`created_at`,`updated_at`) VALUES (?,?,?,?,?,?,?,?) ON DUPLICATE KEY UPDATE")).
		WithArgs("uploads", "img/a.png", KeyHash("img/a.png"), "image/png", int64(16), "private", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := r.Record(context.Background(), Upload{
		Bucket: "uploads", Key: "img/a.png", ContentType: "image/png", Size: 16, ACL: "private",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecorder_RecordLongestKey(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(db)
	key := strings.Repeat("k", MaxKeyLength)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `uploads`")).
		WithArgs("uploads", key, KeyHash(key), "", int64(0), "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, r.Record(context.Background(), Upload{Bucket: "uploads", Key: key}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadSchema_FitsIndexLimit(t *testing.T) {
	s, err := schema.Parse(&Upload{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	// utf8mb4 spends up to four bytes per character; InnoDB caps keys at 3072.
	for _, idx := range s.ParseIndexes() {
		width := 0
		for _, opt := range idx.Fields {
			n := opt.Size
			if opt.Length > 0 {
				n = opt.Length
			}
			width += 4 * n
		}
		assert.LessOrEqual(t, width, 3072, idx.Name)
	}
	assert.Equal(t, MaxKeyLength, s.LookUpField("object_key").Size)
	assert.Len(t, KeyHash(strings.Repeat("k", MaxKeyLength)), 64)
}

func TestGormRecorder_SetACL(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `uploads` SET `acl`=?,`updated_at`=? WHERE bucket = ? AND key_hash = ?")).
		WithArgs("public-read", sqlmock.AnyArg(), "uploads", KeyHash("a")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.SetACL(context.Background(), "uploads", "a", "public-read"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecorder_Forget(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `uploads` WHERE bucket = ? AND key_hash = ?")).
		WithArgs("uploads", KeyHash("a")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.Forget(context.Background(), "uploads", "a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecorder_Recent(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "bucket", "object_key", "content_type", "size", "acl", "created_at", "updated_at"}).
		AddRow(2, "uploads", "b.pdf", "application/pdf", 10, "private", now, now).
		AddRow(1, "uploads", "a.png", "image/png", 16, "public-read", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `uploads` ORDER BY updated_at DESC LIMIT")).
		WillReturnRows(rows)

	got, err := r.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b.pdf", got[0].Key)
	assert.Equal(t, "public-read", got[1].ACL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecorder_Entries(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "bucket", "object_key", "content_type", "size", "acl", "created_at", "updated_at"}).
		AddRow(1, "uploads", "img_1/a.png", "image/png", 16, "private", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `uploads` WHERE bucket = ? AND object_key LIKE ? ORDER BY object_key")).
		WithArgs("uploads", `img\_1/%`).
		WillReturnRows(rows)

	got, err := r.Entries(context.Background(), "uploads", "img_1/")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "img_1/a.png", got[0].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecorder_EntriesWithoutPrefix(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `uploads` WHERE bucket = ? ORDER BY object_key")).
		WithArgs("uploads").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := r.Entries(context.Background(), "uploads", "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNopRecorder_Entries(t *testing.T) {
	_, err := NewRecorder(nil).Entries(context.Background(), "uploads", "")
	assert.ErrorIs(t, err, ErrLedgerDisabled)
}

func TestLikeEscaper(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, likeEscaper.Replace(`a%b_c\d`))
}
