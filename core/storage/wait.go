package storage

import (
	"context"
	"time"
)

// DefaultPollInterval is used by WaitUntilExists when interval is not positive.
const DefaultPollInterval = 500 * time.Millisecond

// WaitUntilExists polls store until key exists or ctx is done.
func WaitUntilExists(ctx context.Context, store Store, key string, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := store.Exists(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return classifyContext(ctx.Err(), "wait for object")
		case <-ticker.C:
		}
	}
}
