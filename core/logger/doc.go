// Package logger builds the zap logger every command and feature shares.
//
// New reads a Config with a level (debug, info, warn, error) and a format
// (json or console). The debug level starts from zap's development config,
// every other level from the production one. Console output colors levels.
//
// # Request correlation
//
// The rayid middleware stores a request id under RayIDKey in the Fiber
// locals. WithRayID returns a child logger carrying it as the ray_id field,
// so handler, service and error lines of one request can be joined.
//
//	l := logger.WithRayID(base, c)
//	l.Warn("Upload rejected", zap.String("key", key))
package logger
