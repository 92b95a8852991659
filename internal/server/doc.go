// Package server provides the HTTP server for the firmador service.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// The package includes the handlers for
//   - the validation API (expediente archives, record chains, standalone PDFs)
//   - the two-phase JAdES signing API
//   - common infrastructure handlers (health, version, metrics, audit lookups)
//
// middleware is in internal/server/middleware
package server
