package detect

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every ConfigError.
	ErrInvalidConfig = errors.New("detect: invalid matcher configuration")
	// ErrUnknownSource is returned for a nil or unsupported Source variant.
	ErrUnknownSource = errors.New("detect: unknown source")
)

// ConfigError reports a malformed or contradictory rule table.
// It is only ever returned while building a Matcher.
type ConfigError struct {
	// Rule is the index of the offending rule, or -1 when the error
	// concerns the matcher settings themselves.
	Rule int
	// MediaType of the offending rule, if any.
	MediaType string
	// Reason is a human readable description.
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Rule < 0 {
		return fmt.Sprintf("detect: invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("detect: invalid rule %d (%s): %s", e.Rule, e.MediaType, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// ReadError reports that the prefix of a source could not be read.
// A source shorter than the prefix is not an error.
type ReadError struct {
	// Source describes what was being read (a path, "stream" or "bytes").
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("detect: read prefix of %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
