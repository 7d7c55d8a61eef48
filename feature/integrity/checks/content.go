package checks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"sniffstore/core/detect"
	"sniffstore/core/storage"
	"sniffstore/feature/files"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrACLNotPreserved is returned for objects whose access control has no
// canned equivalent or cannot be read; rewriting them would change it.
var ErrACLNotPreserved = errors.New("object ACL cannot be preserved")

// Objects is what the content check needs from the files service.
type Objects interface {
	List(ctx context.Context, prefix string, limit int) ([]storage.ObjectInfo, error)
	Stat(ctx context.Context, key string) (storage.ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	GetACL(ctx context.Context, key string) (storage.ACLInfo, error)
	Detect(src detect.Source) (string, error)
	Upload(ctx context.Context, key string, src detect.Source, opts files.UploadOptions) (*files.UploadResult, error)
}

// ContentMismatch is an object whose stored type differs from its bytes.
type ContentMismatch struct {
	Key      string `json:"key"`
	Stored   string `json:"stored"`
	Detected string `json:"detected"`
}

// ContentReport is the result of a content type check.
type ContentReport struct {
	Prefix     string            `json:"prefix"`
	Checked    int               `json:"checked"`
	Truncated  bool              `json:"truncated"`
	Mismatches []ContentMismatch `json:"mismatches"`
	Errors     []string          `json:"errors"`
}

// CheckContent re-detects the type of up to limit objects under prefix and
// reports those stored with a different Content-Type. Per-object failures
// are collected in the report; only a failed listing is an error.
func CheckContent(ctx context.Context, objects Objects, prefix string, limit, concurrency int) (*ContentReport, error) {
	listed, err := objects.List(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}

	report := &ContentReport{
		Prefix:     prefix,
		Truncated:  len(listed) >= storage.ListOptions{MaxKeys: limit}.Limit(),
		Mismatches: []ContentMismatch{},
		Errors:     []string{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for _, obj := range listed {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		g.Go(func() error {
			mismatch, err := checkObject(gctx, objects, obj)

			mu.Lock()
			defer mu.Unlock()
			report.Checked++
			switch {
			case err != nil:
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", obj.Key, err))
			case mismatch != nil:
				report.Mismatches = append(report.Mismatches, *mismatch)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Mismatches, func(i, j int) bool {
		return report.Mismatches[i].Key < report.Mismatches[j].Key
	})
	sort.Strings(report.Errors)
	return report, nil
}

func checkObject(ctx context.Context, objects Objects, obj storage.ObjectInfo) (*ContentMismatch, error) {
	stored := obj.ContentType
	if stored == "" {
		// Listings do not always carry the type.
		info, err := objects.Stat(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		stored = info.ContentType
	}

	rc, err := objects.Get(ctx, obj.Key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	detected, err := objects.Detect(detect.Stream{Reader: rc})
	if err != nil {
		return nil, err
	}
	if mediaType(stored) == detected {
		return nil, nil
	}
	return &ContentMismatch{Key: obj.Key, Stored: stored, Detected: detected}, nil
}

// mediaType drops parameters such as charset.
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// FixContent rewrites each mismatched object through the upload pipeline so
// it is stored with its detected type. ACL and user metadata are kept.
// Objects whose ACL cannot be reproduced are skipped and reported in the
// returned error; any other failure stops the run.
func FixContent(ctx context.Context, objects Objects, logger *zap.Logger, mismatches []ContentMismatch) (int, error) {
	fixed := 0
	var skipped []error
	for _, m := range mismatches {
		err := rewrite(ctx, objects, m.Key)
		if errors.Is(err, ErrACLNotPreserved) {
			logger.Warn("Skipped object with unreproducible ACL", zap.String("key", m.Key), zap.Error(err))
			skipped = append(skipped, fmt.Errorf("skipped %s: %w", m.Key, err))
			continue
		}
		if err != nil {
			logger.Error("Failed to rewrite object", zap.String("key", m.Key), zap.Error(err))
			return fixed, fmt.Errorf("failed to rewrite %s: %w", m.Key, err)
		}
		logger.Info("Rewrote object with detected type",
			zap.String("key", m.Key),
			zap.String("stored", m.Stored),
			zap.String("detected", m.Detected),
		)
		fixed++
	}
	return fixed, errors.Join(skipped...)
}

func rewrite(ctx context.Context, objects Objects, key string) error {
	info, err := objects.Stat(ctx, key)
	if err != nil {
		return err
	}

	acl, err := objects.GetACL(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrACLNotPreserved, err)
	}
	if !acl.Canned.Valid() {
		return fmt.Errorf("%w: grants have no canned equivalent", ErrACLNotPreserved)
	}
	opts := files.UploadOptions{ACL: acl.Canned, Metadata: info.Metadata}

	rc, err := objects.Get(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	// Spool to disk before writing back: the source is the key being overwritten.
	tmp, err := os.CreateTemp("", "sniffstore-fix-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, rc)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return &detect.ReadError{Source: key, Err: err}
	}
	_, err = objects.Upload(ctx, key, detect.Path(tmp.Name()), opts)
	return err
}
