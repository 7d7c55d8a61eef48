package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"sniffstore/core/secrets"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Compile-time check that S3Store implements Store.
var _ Store = (*S3Store)(nil)

// S3API defines the S3 operations used by S3Store.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3aws.HeadBucketInput, optFns ...func(*s3aws.Options)) (*s3aws.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3aws.HeadObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3aws.DeleteObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectOutput, error)
	GetObjectAcl(ctx context.Context, params *s3aws.GetObjectAclInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectAclOutput, error)
	PutObjectAcl(ctx context.Context, params *s3aws.PutObjectAclInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectAclOutput, error)
	ListObjectsV2(ctx context.Context, params *s3aws.ListObjectsV2Input, optFns ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error)
}

// Presigner signs download requests.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store implements Store for Amazon S3 and S3-compatible services.
type S3Store struct {
	client    S3API
	presigner Presigner
	bucket    string
	baseURL   *url.URL
}

// NewS3Store wraps an S3 client. baseURL is the prefix of unsigned object URLs.
func NewS3Store(client S3API, presigner Presigner, bucket, baseURL string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", ErrInvalidConfig, baseURL)
	}
	return &S3Store{client: client, presigner: presigner, bucket: bucket, baseURL: u}, nil
}

// NewS3FromConfig builds an S3Store with the AWS SDK default configuration,
// static credentials from provider and an optional custom endpoint.
func NewS3FromConfig(ctx context.Context, cfg Config, provider secrets.Provider) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidConfig)
	}

	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage credentials: %w", err)
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken,
		)),
		// The buildable client keeps AWS_CA_BUNDLE and other transport options working.
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(time.Duration(timeout)*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := endpointWithScheme(cfg.Endpoint, cfg.UseSSL)
	client := s3aws.NewFromConfig(awsCfg, func(o *s3aws.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewS3Store(client, s3aws.NewPresignClient(client), cfg.Bucket, s3BaseURL(cfg, endpoint))
}

func endpointWithScheme(endpoint string, useSSL bool) string {
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// s3BaseURL picks the prefix of unsigned URLs: explicit base URL, custom
// endpoint (path or virtual-hosted style), or the regional AWS host.
func s3BaseURL(cfg Config, endpoint string) string {
	switch {
	case cfg.BaseURL != "":
		return strings.TrimSuffix(cfg.BaseURL, "/")
	case endpoint != "" && cfg.ForcePathStyle:
		return strings.TrimSuffix(endpoint, "/") + "/" + cfg.Bucket
	case endpoint != "":
		scheme, host, _ := strings.Cut(endpoint, "://")
		return scheme + "://" + cfg.Bucket + "." + strings.TrimSuffix(host, "/")
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

func (s *S3Store) Bucket() string {
	return s.bucket
}

func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3aws.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		err = classifyS3Error(err, "check bucket")
		// HeadBucket has no body, so a missing bucket surfaces as NotFound.
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrBucketNotFound, s.bucket)
		}
		return err
	}
	return nil
}

// Put uploads in.Body. Without TLS the SDK can only sign a seekable body of
// known length, so anything else is spooled to a temporary file first.
func (s *S3Store) Put(ctx context.Context, in PutInput) (ObjectInfo, error) {
	body := in.Body
	size := in.Size
	if _, seekable := body.(io.ReadSeeker); !seekable || size < 0 {
		f, n, err := spool(in.Body)
		if err != nil {
			return ObjectInfo{}, err
		}
		defer func() {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}()
		body = f
		size = n
	}

	input := &s3aws.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(in.Key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(in.ContentType),
		Metadata:      in.Metadata,
	}
	if in.ACL != "" {
		input.ACL = types.ObjectCannedACL(in.ACL)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return ObjectInfo{}, classifyS3Error(err, "upload object")
	}

	return ObjectInfo{
		Key:         in.Key,
		Size:        size,
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
		ContentType: in.ContentType,
		Metadata:    in.Metadata,
	}, nil
}

func spool(r io.Reader) (*os.File, int64, error) {
	f, err := os.CreateTemp("", "sniffstore-put-*")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to buffer upload body: %w", err)
	}
	n, err := io.Copy(f, r)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, 0, fmt.Errorf("failed to buffer upload body: %w", err)
	}
	return f, n, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3aws.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(err, "get object")
	}
	return out.Body, nil
}

func (s *S3Store) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3aws.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectInfo{}, classifyS3Error(err, "stat object")
	}
	return ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     out.Metadata,
	}, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3aws.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyS3Error(err, "delete object")
	}
	return nil
}

func (s *S3Store) GetACL(ctx context.Context, key string) (ACLInfo, error) {
	out, err := s.client.GetObjectAcl(ctx, &s3aws.GetObjectAclInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ACLInfo{}, classifyS3Error(err, "get object acl")
	}

	info := ACLInfo{Grants: make([]Grant, 0, len(out.Grants))}
	var ownerID string
	if out.Owner != nil {
		ownerID = aws.ToString(out.Owner.ID)
		info.Owner = aws.ToString(out.Owner.DisplayName)
		if info.Owner == "" {
			info.Owner = aws.ToString(out.Owner.ID)
		}
	}
	for _, g := range out.Grants {
		var grantee string
		if g.Grantee != nil {
			grantee = aws.ToString(g.Grantee.URI)
			if grantee == "" {
				grantee = aws.ToString(g.Grantee.ID)
			}
		}
		info.Grants = append(info.Grants, Grant{Grantee: grantee, Permission: string(g.Permission)})
	}
	info.Canned = cannedFromGrants(ownerID, info.Grants)
	return info, nil
}

func (s *S3Store) PutACL(ctx context.Context, key string, acl ACL) error {
	if !acl.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidACL, acl)
	}
	_, err := s.client.PutObjectAcl(ctx, &s3aws.PutObjectAclInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		ACL:    types.ObjectCannedACL(acl),
	})
	if err != nil {
		return classifyS3Error(err, "put object acl")
	}
	return nil
}

func (s *S3Store) URL(ctx context.Context, key string, opts URLOptions) (string, error) {
	if opts.Expires <= 0 {
		return objectURL(s.baseURL, "", key), nil
	}

	input := &s3aws.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if opts.ResponseContentType != "" {
		input.ResponseContentType = aws.String(opts.ResponseContentType)
	}
	if opts.ResponseContentDisposition != "" {
		input.ResponseContentDisposition = aws.String(opts.ResponseContentDisposition)
	}

	req, err := s.presigner.PresignGetObject(ctx, input, s3aws.WithPresignExpires(opts.Expires))
	if err != nil {
		return "", classifyS3Error(err, "presign object")
	}
	return req.URL, nil
}

func (s *S3Store) List(ctx context.Context, opts ListOptions) ([]ObjectInfo, error) {
	limit := opts.Limit()
	paginator := s3aws.NewListObjectsV2Paginator(s.client, &s3aws.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(opts.Prefix),
		MaxKeys: aws.Int32(int32(limit)),
	})

	var out []ObjectInfo
	for paginator.HasMorePages() && len(out) < limit {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Error(err, "list objects")
		}
		for _, obj := range page.Contents {
			out = append(out, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified),
			})
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
