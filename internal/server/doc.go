// Package server hosts the reviewdeck API behind a single HTTP server.
//
// The server builds a consistent middleware chain of request-id, logging,
// CORS, security headers, metrics, rate limiting, bearer-token auth, and
// audit so handlers all share common protections and instrumentation. Audit
// runs inside auth so its entries carry the authenticated actor.
package server
