package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"sniffstore/core/detect"
	"sniffstore/core/reconcile"
	"sniffstore/core/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ErrInvalidKey is returned for object keys that are empty, absolute or
// escape their prefix.
var ErrInvalidKey = errors.New("invalid object key")

// MaxKeyLength is the longest object key S3 accepts, in bytes.
const MaxKeyLength = 1024

// SharedStatTimeout bounds a Stat shared by concurrent callers.
const SharedStatTimeout = time.Minute

// DefaultDownloadExpiry is the validity of download URLs requested without one.
const DefaultDownloadExpiry = 15 * time.Minute

// UploadOptions controls a single upload.
type UploadOptions struct {
	// ACL overrides the service default.
	ACL storage.ACL
	// Metadata is stored as user metadata on the object.
	Metadata map[string]string
}

// UploadResult describes a stored object and the ACL it was written with.
type UploadResult struct {
	storage.ObjectInfo
	ACL storage.ACL `json:"acl"`
}

// Options configures a Service.
type Options struct {
	// DefaultACL applies to uploads that do not name one. Empty means private.
	DefaultACL storage.ACL
	// FileACL applies to PutFile calls that do not name one. Empty means
	// bucket-owner-read.
	FileACL storage.ACL
	// PollInterval is the delay between checks in WaitUntilExists.
	PollInterval time.Duration
	// AuditCacheTTL is how long Audit reuses a snapshot. Zero means
	// DefaultAuditCacheTTL, negative disables reuse.
	AuditCacheTTL time.Duration
}

// Service uploads files with a content type detected from their bytes and
// forwards the remaining object operations to the store.
type Service struct {
	store        storage.Store
	matcher      *detect.Matcher
	recorder     Recorder
	logger       *zap.Logger
	defaultACL   storage.ACL
	fileACL      storage.ACL
	pollInterval time.Duration
	auditTTL     time.Duration
	audits       *reconcile.Cache
	stats        singleflight.Group
}

// NewService creates a new files service. db may be nil, in which case
// uploads are not recorded.
func NewService(store storage.Store, matcher *detect.Matcher, logger *zap.Logger, db *gorm.DB, opts Options) (*Service, error) {
	acl := opts.DefaultACL
	if acl == "" {
		acl = storage.ACLPrivate
	}
	if !acl.Valid() {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidACL, acl)
	}
	fileACL := opts.FileACL
	if fileACL == "" {
		fileACL = storage.ACLBucketOwnerRead
	}
	if !fileACL.Valid() {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidACL, fileACL)
	}
	auditTTL := opts.AuditCacheTTL
	switch {
	case auditTTL == 0:
		auditTTL = DefaultAuditCacheTTL
	case auditTTL < 0:
		auditTTL = 0
	}
	return &Service{
		store:        store,
		matcher:      matcher,
		recorder:     NewRecorder(db),
		logger:       logger,
		defaultACL:   acl,
		fileACL:      fileACL,
		pollInterval: opts.PollInterval,
		auditTTL:     auditTTL,
		audits:       reconcile.NewCache(),
	}, nil
}

// Bucket is the bucket the service writes to.
func (s *Service) Bucket() string {
	return s.store.Bucket()
}

// Detect resolves the media type of src without storing anything.
func (s *Service) Detect(src detect.Source) (string, error) {
	return s.matcher.Detect(src)
}

// Upload stores src under key. The content type is always the detected one.
// A Path is sniffed and then uploaded as a seekable file of known size, a
// Stream is sniffed and replayed with unknown size and Bytes are resolved in
// memory.
func (s *Service) Upload(ctx context.Context, key string, src detect.Source, opts UploadOptions) (*UploadResult, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	acl := opts.ACL
	if acl == "" {
		acl = s.defaultACL
	}
	if !acl.Valid() {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidACL, acl)
	}

	var (
		body        io.Reader
		size        int64
		contentType string
		err         error
	)
	switch src := src.(type) {
	case detect.Path:
		if contentType, err = s.matcher.Detect(src); err != nil {
			return nil, err
		}
		f, openErr := os.Open(string(src))
		if openErr != nil {
			return nil, &detect.ReadError{Source: string(src), Err: openErr}
		}
		defer f.Close()

		st, statErr := f.Stat()
		if statErr != nil {
			return nil, &detect.ReadError{Source: string(src), Err: statErr}
		}
		// The file itself is the body so the store can seek and sign it.
		size = st.Size()
		body = f
	case detect.Stream:
		if src.Reader == nil {
			return nil, &detect.ReadError{Source: "stream", Err: detect.ErrUnknownSource}
		}
		size = -1
		contentType, body, err = s.matcher.Sniff(src.Reader)
	case detect.Bytes:
		size = int64(len(src))
		contentType = s.matcher.Resolve(src)
		body = bytes.NewReader(src)
	default:
		return nil, &detect.ReadError{Source: "unknown", Err: detect.ErrUnknownSource}
	}
	if err != nil {
		return nil, err
	}

	info, err := s.store.Put(ctx, storage.PutInput{
		Key:         key,
		Body:        body,
		Size:        size,
		ContentType: contentType,
		ACL:         acl,
		Metadata:    opts.Metadata,
	})
	if err != nil {
		s.logger.Error("Upload failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	if err := s.recorder.Record(ctx, Upload{
		Bucket:      s.store.Bucket(),
		Key:         key,
		ContentType: contentType,
		Size:        info.Size,
		ACL:         string(acl),
	}); err != nil {
		s.logger.Warn("Failed to record upload", zap.String("key", key), zap.Error(err))
	}

	s.logger.Info("Uploaded object",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int64("size", info.Size),
		zap.String("acl", string(acl)),
	)
	return &UploadResult{ObjectInfo: info, ACL: acl}, nil
}

// PutFile uploads the file at filePath under key. Without an explicit ACL the
// file ACL applies, not the upload default.
func (s *Service) PutFile(ctx context.Context, key, filePath string, opts UploadOptions) (*UploadResult, error) {
	if opts.ACL == "" {
		opts.ACL = s.fileACL
	}
	return s.Upload(ctx, key, detect.Path(filePath), opts)
}

// Get opens an object for reading. Callers must close the reader.
func (s *Service) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, key)
}

// Stat returns object metadata. Concurrent calls for the same key share one
// round trip.
func (s *Service) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return storage.ObjectInfo{}, err
	}
	// The shared call outlives a caller that gives up; the others still wait on it.
	ch := s.stats.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SharedStatTimeout)
		defer cancel()
		return s.store.Stat(sctx, key)
	})
	select {
	case <-ctx.Done():
		return storage.ObjectInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return storage.ObjectInfo{}, res.Err
		}
		return res.Val.(storage.ObjectInfo), nil
	}
}

// Exists reports whether key is stored.
func (s *Service) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	return s.store.Exists(ctx, key)
}

// Delete removes key from the store and the ledger.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.recorder.Forget(ctx, s.store.Bucket(), key); err != nil {
		s.logger.Warn("Failed to remove upload record", zap.String("key", key), zap.Error(err))
	}
	s.logger.Info("Deleted object", zap.String("key", key))
	return nil
}

// GetACL returns the access control of key.
func (s *Service) GetACL(ctx context.Context, key string) (storage.ACLInfo, error) {
	if err := ValidateKey(key); err != nil {
		return storage.ACLInfo{}, err
	}
	return s.store.GetACL(ctx, key)
}

// PutACL applies a canned ACL to key.
func (s *Service) PutACL(ctx context.Context, key string, acl storage.ACL) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if !acl.Valid() {
		return fmt.Errorf("%w: %q", storage.ErrInvalidACL, acl)
	}
	if err := s.store.PutACL(ctx, key, acl); err != nil {
		return err
	}
	if err := s.recorder.SetACL(ctx, s.store.Bucket(), key, string(acl)); err != nil {
		s.logger.Warn("Failed to update upload record", zap.String("key", key), zap.Error(err))
	}
	s.logger.Info("Changed object acl", zap.String("key", key), zap.String("acl", string(acl)))
	return nil
}

// Share makes key publicly readable and returns its unsigned URL.
func (s *Service) Share(ctx context.Context, key string) (string, error) {
	if err := s.PutACL(ctx, key, storage.ACLPublicRead); err != nil {
		return "", err
	}
	return s.store.URL(ctx, key, storage.URLOptions{})
}

// FileURL returns the URL of key, presigned for expires when it is positive.
func (s *Service) FileURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return s.store.URL(ctx, key, storage.URLOptions{Expires: expires})
}

// DownloadURL returns a presigned URL that makes browsers save key as
// filename instead of rendering it. filename defaults to the key's base name.
func (s *Service) DownloadURL(ctx context.Context, key, filename string, expires time.Duration) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if filename == "" {
		filename = path.Base(key)
	}
	if expires <= 0 {
		expires = DefaultDownloadExpiry
	}
	return s.store.URL(ctx, key, storage.URLOptions{
		Expires:                    expires,
		ResponseContentType:        detect.DefaultType,
		ResponseContentDisposition: mime.FormatMediaType("attachment", map[string]string{"filename": filename}),
	})
}

// List returns up to limit objects under prefix.
func (s *Service) List(ctx context.Context, prefix string, limit int) ([]storage.ObjectInfo, error) {
	return s.store.List(ctx, storage.ListOptions{Prefix: prefix, MaxKeys: limit})
}

// WaitUntilExists blocks until key is stored or ctx is done.
func (s *Service) WaitUntilExists(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return storage.WaitUntilExists(ctx, s.store, key, s.pollInterval)
}

// Recent returns the newest upload records.
func (s *Service) Recent(ctx context.Context, limit int) ([]Upload, error) {
	return s.recorder.Recent(ctx, limit)
}

// ValidateKey rejects keys that are empty, too long, absolute or contain a
// ".." segment.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > MaxKeyLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, MaxKeyLength)
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("%w: %q starts with a slash", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q contains a parent segment", ErrInvalidKey, key)
		}
	}
	return nil
}
