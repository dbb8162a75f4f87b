// Package api hosts the HTTP server, middleware, and lookup handlers.
// Notable routes:
//   - GET /asin/{asin}, /isbn/{isbn}, /series/{series} for record lookups
//     (exact match first, fuzzy fallback).
//   - GET /asin/{asin}/cover and /isbn/{isbn}/cover for cached cover images.
//   - GET /search?q= for free-text multi-field search.
//   - GET /provider/search?query= for the metadata-provider protocol.
//   - POST /refresh to force a record-set reload.
//   - GET /healthz and /metrics for probes and Prometheus scraping.
package api
