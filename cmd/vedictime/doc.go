// Package main hosts the vedictime service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes GET / and GET /api/vedic-time behind request IDs, zap access
//     logs, panic recovery, security headers, and CORS. /metrics is mounted only when metrics.enabled is set.
//   - Snapshot service: internal/vedictime.Service holds the single live snapshot. Reads within the throttle
//     window (5s) are served from memory; older reads share one singleflight extraction, which reloads the page
//     first when the last success is older than the refresh window (5m).
//   - Renderer: internal/renderer/headless.Session launches headless Chrome via chromedp on first use, parks one
//     tab on the upstream page, and evaluates the extraction script in it. The session lives until shutdown.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging;
//     Prometheus collectors track API traffic, snapshot reads, reloads, and browser launches.
//
// Operational notes:
//   - Only navigation carries a timeout (upstream.nav_timeout_seconds). A failed reload is logged and the read
//     proceeds against the DOM already in the tab.
//   - SIGINT/SIGTERM drain the HTTP server, then close the browser.
//
// Quick checklist:
//   - Configure env vars: PORT (or VEDIC_SERVER_PORT), ALLOW_ORIGINS (comma-separated, empty allows all),
//     VEDIC_HEADLESS_EXEC_PATH when Chrome is not on PATH, VEDIC_LOGGING_DEVELOPMENT=true for console logs.
//   - Run locally: go run ./cmd/vedictime -config config.yaml (or rely solely on env overrides).
package main
