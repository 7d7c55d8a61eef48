package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

var (
	ErrNotFound       = errors.New("storage: object not found")
	ErrBucketNotFound = errors.New("storage: bucket not found")
	ErrAccessDenied   = errors.New("storage: access denied")
	ErrInvalidACL     = errors.New("storage: invalid acl")
	ErrInvalidConfig  = errors.New("storage: invalid configuration")
	ErrTimeout        = errors.New("storage: operation timed out")
	ErrCanceled       = errors.New("storage: operation canceled")
	ErrUnavailable    = errors.New("storage: service unavailable")
)

// classifyCode maps S3 error codes shared by both drivers.
func classifyCode(code, operation string, err error) error {
	switch code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %s: %v", ErrNotFound, operation, err)
	case "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrBucketNotFound, operation)
	case "AccessDenied", "Forbidden":
		return fmt.Errorf("%w: %s", ErrAccessDenied, operation)
	case "RequestTimeout":
		return fmt.Errorf("%w: %s", ErrTimeout, operation)
	case "SlowDown", "ServiceUnavailable":
		return fmt.Errorf("%w: %s", ErrUnavailable, operation)
	default:
		return nil
	}
}

func classifyContext(err error, operation string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s", ErrCanceled, operation)
	}
	return nil
}

// classifyMinioError converts minio errors to storage errors.
func classifyMinioError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if cerr := classifyContext(err, operation); cerr != nil {
		return cerr
	}

	resp := minio.ToErrorResponse(err)
	if cerr := classifyCode(resp.Code, operation, err); cerr != nil {
		return cerr
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// classifyS3Error converts AWS SDK errors to storage errors.
func classifyS3Error(err error, operation string) error {
	if err == nil {
		return nil
	}
	if cerr := classifyContext(err, operation); cerr != nil {
		return cerr
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, operation, err)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, operation, err)
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, operation)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if cerr := classifyCode(apiErr.ErrorCode(), operation, err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("%s failed (code: %s): %w", operation, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
