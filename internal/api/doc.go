// Package api hosts the HTTP server, middleware, and webhook trigger
// handlers. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /dist/* for locally stored certificate images.
//   - POST /api/advent-of-code, /api/announcement, /api/certificate and
//     /api/mail-parser (alias /api/link-preview), each behind the shared
//     bearer secret.
package api
