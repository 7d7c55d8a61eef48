package storage

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"

	"github.com/minio/minio-go/v7"
)

// Compile-time check that MinioStore implements Store.
var _ Store = (*MinioStore)(nil)

const aclHeader = "x-amz-acl"

// MinioStore implements Store on top of the minio client. It works with
// MinIO and any S3-compatible service.
type MinioStore struct {
	client  MinioAPI
	bucket  string
	baseURL *url.URL
}

// NewMinioStore wraps client for bucket. baseURL may be empty, in which case
// unsigned URLs use the client endpoint in path style.
func NewMinioStore(client MinioAPI, bucket, baseURL string) (*MinioStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	s := &MinioStore{client: client, bucket: bucket}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
		}
		s.baseURL = u
	}
	return s, nil
}

func (s *MinioStore) Bucket() string {
	return s.bucket
}

func (s *MinioStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classifyMinioError(err, "check bucket")
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, s.bucket)
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, in PutInput) (ObjectInfo, error) {
	meta := make(map[string]string, len(in.Metadata)+1)
	maps.Copy(meta, in.Metadata)
	if in.ACL != "" {
		meta[aclHeader] = string(in.ACL)
	}

	size := in.Size
	if size < 0 {
		size = -1
	}

	info, err := s.client.PutObject(ctx, s.bucket, in.Key, in.Body, size, minio.PutObjectOptions{
		ContentType:  in.ContentType,
		UserMetadata: meta,
	})
	if err != nil {
		return ObjectInfo{}, classifyMinioError(err, "upload object")
	}

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  in.ContentType,
		LastModified: info.LastModified,
		Metadata:     in.Metadata,
	}, nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	// GetObject is lazy; stat first so a missing key fails here, not on Read.
	if _, err := s.Stat(ctx, key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinioError(err, "get object")
	}
	return obj, nil
}

func (s *MinioStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, classifyMinioError(err, "stat object")
	}
	return fromMinioInfo(info), nil
}

func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return false, nil
	}
	return false, classifyMinioError(err, "check object")
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classifyMinioError(err, "delete object")
	}
	return nil
}

func (s *MinioStore) GetACL(ctx context.Context, key string) (ACLInfo, error) {
	info, err := s.client.GetObjectACL(ctx, s.bucket, key)
	if err != nil {
		return ACLInfo{}, classifyMinioError(err, "get object acl")
	}

	out := ACLInfo{Owner: info.Owner.DisplayName, Grants: make([]Grant, 0, len(info.Grant))}
	for _, g := range info.Grant {
		grantee := g.Grantee.URI
		if grantee == "" {
			grantee = g.Grantee.ID
		}
		out.Grants = append(out.Grants, Grant{Grantee: grantee, Permission: g.Permission})
	}

	if canned := ACL(info.Metadata.Get(aclHeader)); canned.Valid() {
		out.Canned = canned
	} else {
		out.Canned = cannedFromGrants(info.Owner.ID, out.Grants)
	}
	return out, nil
}

// PutACL rewrites the object onto itself with a new x-amz-acl header,
// preserving its content type and user metadata.
func (s *MinioStore) PutACL(ctx context.Context, key string, acl ACL) error {
	if !acl.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidACL, acl)
	}

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return classifyMinioError(err, "stat object")
	}

	meta := make(map[string]string, len(info.UserMetadata)+2)
	maps.Copy(meta, info.UserMetadata)
	meta["Content-Type"] = info.ContentType
	meta[aclHeader] = string(acl)

	_, err = s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: key, ReplaceMetadata: true, UserMetadata: meta},
		minio.CopySrcOptions{Bucket: s.bucket, Object: key},
	)
	if err != nil {
		return classifyMinioError(err, "put object acl")
	}
	return nil
}

func (s *MinioStore) URL(ctx context.Context, key string, opts URLOptions) (string, error) {
	if opts.Expires <= 0 {
		if s.baseURL != nil {
			return objectURL(s.baseURL, "", key), nil
		}
		return objectURL(s.client.EndpointURL(), s.bucket, key), nil
	}

	params := url.Values{}
	if opts.ResponseContentType != "" {
		params.Set("response-content-type", opts.ResponseContentType)
	}
	if opts.ResponseContentDisposition != "" {
		params.Set("response-content-disposition", opts.ResponseContentDisposition)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, opts.Expires, params)
	if err != nil {
		return "", classifyMinioError(err, "presign object")
	}
	return u.String(), nil
}

func (s *MinioStore) List(ctx context.Context, opts ListOptions) ([]ObjectInfo, error) {
	limit := opts.Limit()

	// Cancel the listing goroutine once enough keys are read.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: true,
		MaxKeys:   limit,
	}) {
		if obj.Err != nil {
			return nil, classifyMinioError(obj.Err, "list objects")
		}
		out = append(out, fromMinioInfo(obj))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func fromMinioInfo(info minio.ObjectInfo) ObjectInfo {
	var meta map[string]string
	if len(info.UserMetadata) > 0 {
		meta = make(map[string]string, len(info.UserMetadata))
		maps.Copy(meta, info.UserMetadata)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		Metadata:     meta,
	}
}
