package checks

import (
	"context"
	"time"
)

// Pinger is the part of a store the storage check needs.
type Pinger interface {
	Ping(ctx context.Context) error
	Bucket() string
}

// StorageReport is the result of a storage reachability check.
type StorageReport struct {
	Bucket    string `json:"bucket"`
	Status    string `json:"status"` // "ok", "error"
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// OK reports whether the bucket answered.
func (r StorageReport) OK() bool {
	return r.Status == StatusOK
}

// CheckStorage pings the bucket and times the round trip.
func CheckStorage(ctx context.Context, store Pinger) StorageReport {
	report := StorageReport{Bucket: store.Bucket(), Status: StatusOK}

	start := time.Now()
	err := store.Ping(ctx)
	report.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		report.Status = StatusError
		report.Error = err.Error()
	}
	return report
}
