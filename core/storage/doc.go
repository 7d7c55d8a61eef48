// Package storage provides an abstraction layer for object storage services.
//
// The Store interface covers the object operations the upload workflow needs:
// uploads with content type, ACL and metadata, downloads, metadata lookups,
// deletion, canned ACLs, public and presigned URLs and prefix listings.
//
// # Drivers
//
//   - minio: the MinIO Go client, for MinIO and any S3-compatible service.
//   - s3: the AWS SDK v2, for Amazon S3 or a custom endpoint.
//
// Both drivers take credentials from a secrets.Provider instead of the
// storage configuration, and both map service failures onto the sentinel
// errors in this package (ErrNotFound, ErrAccessDenied and so on) so callers
// can branch with errors.Is.
//
// # Usage
//
//	store, err := storage.New(ctx, cfg.Storage, provider)
//	info, err := store.Put(ctx, storage.PutInput{Key: "a.png", Body: r, Size: -1})
package storage
