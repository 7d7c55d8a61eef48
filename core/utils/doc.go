// Package utils provides helpers shared by the HTTP handlers and CLI commands:
// loose conversion of query and flag values, and parsing of URL expirations.
package utils
