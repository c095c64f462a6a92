// Package api implements the HTTP REST API and WebSocket server for the
// coupon system.
//
// This package provides:
//   - A login endpoint issuing JWT session tokens per client type
//   - Admin, company and customer route groups backed by the facades
//   - Health and on-demand sweep endpoints for operators
//   - A one-way WebSocket stream of sweep reports for administrators
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// Every route except login and health requires a Bearer token. Each route
// group admits a single client type. WebSocket connections use single-use
// tickets so the token never appears in a URL. Login attempts are throttled
// per client address.
//
// # Lifecycle
//
// The server depends on a booted coordinator for pool and sweep state:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
