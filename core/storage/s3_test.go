package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"sniffstore/core/storage"
	"sniffstore/core/storage/mocks"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newS3Store(t *testing.T) (*storage.S3Store, *mocks.S3API, *mocks.Presigner) {
	t.Helper()
	client := new(mocks.S3API)
	presigner := new(mocks.Presigner)
	store, err := storage.NewS3Store(client, presigner, "uploads", "https://uploads.s3.eu-west-1.amazonaws.com")
	require.NoError(t, err)
	return store, client, presigner
}

func TestNewS3Store_Validation(t *testing.T) {
	_, err := storage.NewS3Store(new(mocks.S3API), new(mocks.Presigner), "", "https://example.com")
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)

	_, err = storage.NewS3Store(new(mocks.S3API), new(mocks.Presigner), "uploads", "not a url")
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)
}

func TestS3Store_Ping(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		store, client, _ := newS3Store(t)
		client.On("HeadBucket", ctx, mock.Anything).Return(&s3.HeadBucketOutput{}, nil)
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("Missing", func(t *testing.T) {
		store, client, _ := newS3Store(t)
		client.On("HeadBucket", ctx, mock.Anything).Return(nil, &types.NotFound{})
		assert.ErrorIs(t, store.Ping(ctx), storage.ErrBucketNotFound)
	})
}

func TestS3Store_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("KnownSize", func(t *testing.T) {
		store, client, _ := newS3Store(t)
		client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return aws.ToString(in.Key) == "a.png" &&
				aws.ToInt64(in.ContentLength) == 4 &&
				aws.ToString(in.ContentType) == "image/png" &&
				in.ACL == types.ObjectCannedACLPublicRead
		})).Return(&s3.PutObjectOutput{ETag: aws.String(`"etag"`)}, nil)

		info, err := store.Put(ctx, storage.PutInput{
			Key: "a.png", Body: strings.NewReader("data"), Size: 4,
			ContentType: "image/png", ACL: storage.ACLPublicRead,
		})
		require.NoError(t, err)
		assert.Equal(t, "etag", info.ETag)
		assert.Equal(t, int64(4), info.Size)
	})

	t.Run("UnknownSizeIsBuffered", func(t *testing.T) {
		store, client, _ := newS3Store(t)
		client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return aws.ToInt64(in.ContentLength) == 11 && in.ACL == ""
		})).Return(&s3.PutObjectOutput{}, nil)

		info, err := store.Put(ctx, storage.PutInput{Key: "b", Body: strings.NewReader("hello world"), Size: -1})
		require.NoError(t, err)
		assert.Equal(t, int64(11), info.Size)
	})

	t.Run("Denied", func(t *testing.T) {
		store, client, _ := newS3Store(t)
		client.On("PutObject", ctx, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"})

		_, err := store.Put(ctx, storage.PutInput{Key: "b", Body: strings.NewReader("x"), Size: 1})
		assert.ErrorIs(t, err, storage.ErrAccessDenied)
	})
}

func TestS3Store_GetAndStat(t *testing.T) {
	ctx := context.Background()
	store, client, _ := newS3Store(t)
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	client.On("GetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Key) == "a.txt"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("body"))}, nil)
	client.On("HeadObject", ctx, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "a.txt"
	})).Return(&s3.HeadObjectOutput{
		ContentLength: aws.Int64(4),
		ContentType:   aws.String("text/plain"),
		ETag:          aws.String(`"e"`),
		LastModified:  aws.Time(modified),
	}, nil)
	client.On("HeadObject", ctx, mock.Anything).Return(nil, &types.NotFound{})

	rc, err := store.Get(ctx, "a.txt")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "body", string(data))

	info, err := store.Stat(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", info.ContentType)
	assert.Equal(t, modified, info.LastModified)

	ok, err := store.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Store_GetMissing(t *testing.T) {
	ctx := context.Background()
	store, client, _ := newS3Store(t)
	client.On("GetObject", ctx, mock.Anything).Return(nil, &types.NoSuchKey{})

	_, err := store.Get(ctx, "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestS3Store_ACL(t *testing.T) {
	ctx := context.Background()

	t.Run("Get", func(t *testing.T) {
		store, client, _ := newS3Store(t)
		client.On("GetObjectAcl", ctx, mock.Anything).Return(&s3.GetObjectAclOutput{
			Owner: &types.Owner{ID: aws.String("owner-id")},
			Grants: []types.Grant{
				{Grantee: &types.Grantee{ID: aws.String("owner-id")}, Permission: types.PermissionFullControl},
				{Grantee: &types.Grantee{URI: aws.String("http://acs.amazonaws.com/groups/global/AllUsers")}, Permission: types.PermissionRead},
			},
		}, nil)

		acl, err := store.GetACL(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, storage.ACLPublicRead, acl.Canned)
		assert.Equal(t, "owner-id", acl.Owner)
		assert.Len(t, acl.Grants, 2)
	})

	t.Run("Put", func(t *testing.T) {
		store, client, _ := newS3Store(t)
		client.On("PutObjectAcl", ctx, mock.MatchedBy(func(in *s3.PutObjectAclInput) bool {
			return in.ACL == types.ObjectCannedACLAuthenticatedRead
		})).Return(&s3.PutObjectAclOutput{}, nil)

		require.NoError(t, store.PutACL(ctx, "k", storage.ACLAuthenticatedRead))
		client.AssertExpectations(t)
	})

	t.Run("PutInvalid", func(t *testing.T) {
		store, _, _ := newS3Store(t)
		assert.ErrorIs(t, store.PutACL(ctx, "k", "nobody"), storage.ErrInvalidACL)
	})
}

func TestS3Store_URL(t *testing.T) {
	ctx := context.Background()

	t.Run("Unsigned", func(t *testing.T) {
		store, _, _ := newS3Store(t)
		u, err := store.URL(ctx, "img/a b.png", storage.URLOptions{})
		require.NoError(t, err)
		assert.Equal(t, "https://uploads.s3.eu-west-1.amazonaws.com/img/a%20b.png", u)
	})

	t.Run("Presigned", func(t *testing.T) {
		store, _, presigner := newS3Store(t)
		presigner.On("PresignGetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return aws.ToString(in.Key) == "a.png" && aws.ToString(in.ResponseContentType) == "image/png"
		})).Return(&v4.PresignedHTTPRequest{URL: "https://signed.example/a.png?sig=1"}, nil)

		u, err := store.URL(ctx, "a.png", storage.URLOptions{Expires: time.Minute, ResponseContentType: "image/png"})
		require.NoError(t, err)
		assert.Equal(t, "https://signed.example/a.png?sig=1", u)
	})

	t.Run("PresignFails", func(t *testing.T) {
		store, _, presigner := newS3Store(t)
		presigner.On("PresignGetObject", ctx, mock.Anything).Return(nil, errors.New("boom"))

		_, err := store.URL(ctx, "a.png", storage.URLOptions{Expires: time.Minute})
		assert.ErrorContains(t, err, "boom")
	})
}

func TestS3Store_List(t *testing.T) {
	ctx := context.Background()
	store, client, _ := newS3Store(t)

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []types.Object{{Key: aws.String("a"), Size: aws.Int64(1)}, {Key: aws.String("b"), Size: aws.Int64(2)}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next"),
	}, nil).Once()
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "next"
	})).Return(&s3.ListObjectsV2Output{
		Contents:    []types.Object{{Key: aws.String("c"), Size: aws.Int64(3)}},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	out, err := store.List(ctx, storage.ListOptions{Prefix: ""})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[2].Key)
	client.AssertExpectations(t)
}
