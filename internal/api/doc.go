// Package api hosts the HTTP server, middleware, and handlers. Routes:
//   - GET / answers with a plain-text greeting, usable as a liveness probe.
//   - GET /api/vedic-time returns the current snapshot or a 503 error body.
//   - GET /metrics exposes Prometheus collectors when metrics are enabled.
package api
