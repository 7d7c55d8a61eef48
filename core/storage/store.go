package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// Store is the object storage contract used by the upload workflow.
// Every call is scoped to the bucket the store was built for.
type Store interface {
	// Put uploads an object with the given content type, ACL and metadata.
	Put(ctx context.Context, in PutInput) (ObjectInfo, error)
	// Get opens an object for reading. Callers must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Stat returns an object's metadata without its content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Exists reports whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes an object.
	Delete(ctx context.Context, key string) error
	// GetACL returns an object's access control.
	GetACL(ctx context.Context, key string) (ACLInfo, error)
	// PutACL applies a canned ACL to an existing object.
	PutACL(ctx context.Context, key string, acl ACL) error
	// URL returns an unsigned URL, or a presigned one when opts.Expires > 0.
	URL(ctx context.Context, key string, opts URLOptions) (string, error)
	// List returns objects whose keys start with opts.Prefix.
	List(ctx context.Context, opts ListOptions) ([]ObjectInfo, error)
	// Ping verifies that the bucket is reachable.
	Ping(ctx context.Context) error
	// Bucket is the bucket this store operates on.
	Bucket() string
}

// PutInput describes an upload.
type PutInput struct {
	Key string
	// Body is read to EOF.
	Body io.Reader
	// Size is the body length in bytes, or -1 when unknown.
	Size        int64
	ContentType string
	ACL         ACL
	Metadata    map[string]string
}

// ObjectInfo is the metadata of a stored object.
type ObjectInfo struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ETag         string            `json:"etag,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified time.Time         `json:"last_modified,omitzero"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// URLOptions controls URL generation.
type URLOptions struct {
	// Expires is the validity of a presigned URL; zero means unsigned.
	Expires time.Duration
	// ResponseContentType overrides Content-Type on download (presigned only).
	ResponseContentType string
	// ResponseContentDisposition overrides Content-Disposition (presigned only).
	ResponseContentDisposition string
}

// MaxListKeys is the largest page S3 returns.
const MaxListKeys = 1000

// ListOptions filters a listing.
type ListOptions struct {
	Prefix string
	// MaxKeys caps the result; zero or anything above MaxListKeys means MaxListKeys.
	MaxKeys int
}

// Limit is the effective number of keys a listing returns at most.
func (o ListOptions) Limit() int {
	if o.MaxKeys <= 0 || o.MaxKeys > MaxListKeys {
		return MaxListKeys
	}
	return o.MaxKeys
}

// objectURL joins base, optional bucket and key, escaping each key segment.
func objectURL(base *url.URL, bucket, key string) string {
	u := *base
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	path := strings.TrimSuffix(u.Path, "/")
	if bucket != "" {
		path += "/" + url.PathEscape(bucket)
	}
	u.Path = ""
	u.RawPath = ""
	return fmt.Sprintf("%s%s/%s", strings.TrimSuffix(u.String(), "/"), path, strings.Join(segments, "/"))
}
