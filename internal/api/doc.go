// Package api hosts the HTTP server, middleware, and REST handlers for the
// summaries service. Notable routes:
//   - POST/GET /summaries and GET/PUT/DELETE /summaries/{id} for the
//     summary resource; a trailing slash is accepted on every route.
//   - GET /ping echoing the settings carried in the request context.
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
