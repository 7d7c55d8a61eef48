package storage

import "time"

// Config holds configuration for the storage provider.
// Credentials are not part of it; they come from a secrets.Provider.
type Config struct {
	// Driver selects the client implementation: minio or s3.
	Driver string `mapstructure:"driver" default:"minio"`
	// Endpoint is the URL of the storage service. Empty means AWS for the s3 driver.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket files are stored in.
	Bucket string `mapstructure:"bucket" default:"uploads"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:"us-east-1"`
	// ForcePathStyle addresses objects as endpoint/bucket/key (s3 driver).
	ForcePathStyle bool `mapstructure:"force_path_style" default:"true"`
	// BaseURL overrides the host of unsigned object URLs (e.g. a CDN).
	BaseURL string `mapstructure:"base_url" default:""`
	// DefaultACL is applied to uploads that do not name one.
	DefaultACL string `mapstructure:"default_acl" default:"private"`
	// FileACL is applied to local files uploaded without one.
	FileACL string `mapstructure:"file_acl" default:"bucket-owner-read"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// PollIntervalMillis is the delay between checks while waiting for an object.
	PollIntervalMillis int `mapstructure:"poll_interval_millis" default:"500"`
}

const (
	DriverMinio = "minio"
	DriverS3    = "s3"
)

// IsValidDriver checks if the configured driver is known.
func (c Config) IsValidDriver() bool {
	switch c.Driver {
	case DriverMinio, DriverS3:
		return true
	default:
		return false
	}
}

// PollInterval converts PollIntervalMillis to a duration.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMillis <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}
