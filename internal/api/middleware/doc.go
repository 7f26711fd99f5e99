// Package middleware holds the gin middleware of the HTTP surface: CORS for
// extension pages and per-client rate limiting.
package middleware
