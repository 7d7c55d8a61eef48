package storage

import (
	"context"
	"fmt"

	"sniffstore/core/secrets"
)

// New builds the Store selected by cfg.Driver.
func New(ctx context.Context, cfg Config, provider secrets.Provider) (Store, error) {
	switch cfg.Driver {
	case DriverMinio, "":
		client, err := NewMinioAPI(ctx, cfg, provider)
		if err != nil {
			return nil, err
		}
		return NewMinioStore(client, cfg.Bucket, cfg.BaseURL)
	case DriverS3:
		return NewS3FromConfig(ctx, cfg, provider)
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", ErrInvalidConfig, cfg.Driver)
	}
}
