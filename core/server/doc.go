// Package server holds the HTTP server configuration used by the serve command.
//
// # Configuration
//
// The Config struct defines the HTTP port, the API key protecting /api routes
// and the graceful shutdown bound.
//
// # Usage
//
// This package is embedded by core/config and read by cmd/serve.go.
package server
