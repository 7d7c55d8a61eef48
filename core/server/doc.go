// Package server holds the HTTP server configuration.
//
// The entry point in cmd/start.go builds the fiber app from this Config: the
// listen port, the API key guarding every route and the request body cap
// that bounds uploads sent through the API.
package server
