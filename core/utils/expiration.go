package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxExpiration is the longest validity S3 accepts for a presigned URL.
const MaxExpiration = 7 * 24 * time.Hour

var ErrInvalidExpiration = errors.New("invalid expiration")

var expirationUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "second": time.Second,
	"m": time.Minute, "min": time.Minute, "minute": time.Minute,
	"h": time.Hour, "hour": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour,
}

// ParseExpiration reads a URL validity. It accepts plain seconds ("3600"),
// Go durations ("1h30m") and relative phrases ("+10 minutes", "2 days").
// An empty string means no expiration.
func ParseExpiration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	d, err := parseExpiration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 || d > MaxExpiration {
		return 0, fmt.Errorf("%w: %q must be between 1s and %s", ErrInvalidExpiration, s, MaxExpiration)
	}
	return d, nil
}

func parseExpiration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	fields := strings.Fields(strings.TrimPrefix(s, "+"))
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiration, s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiration, s)
	}
	name := strings.ToLower(fields[1])
	unit, ok := expirationUnits[name]
	if !ok {
		unit, ok = expirationUnits[strings.TrimSuffix(name, "s")]
	}
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit in %q", ErrInvalidExpiration, s)
	}
	return time.Duration(n) * unit, nil
}
