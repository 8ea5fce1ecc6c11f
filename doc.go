// Package taskAuth is the authentication and authorization core of the task tracker.
//
// It issues HS256 access and refresh tokens, exchanges refresh tokens for new pairs,
// resolves access tokens to a [Principal], and answers the two access questions the
// HTTP layer asks before touching a resource: may this principal act on user X, and
// may it act on task Y.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// taskAuth is the public surface. It exposes [Engine], [Builder], [Config] and value types.
// Token encoding lives in the jwt sub-package. Rate limiting and audit dispatch live under
// internal/. Storage is reached only through [PrincipalProvider] and [OwnershipProvider].
//
// # What this package must NOT do
//
//   - Expose Redis clients or the signing key in its public API.
//   - Put the signing key or raw secrets into errors, logs or audit events.
//   - Turn any failure into an allow decision.
//
// # Performance contract
//
// Authenticate is the hot path and performs no I/O. IssueLoginTokens and RefreshTokens
// make one provider call each, plus limiter round-trips when rate limiting is enabled.
package taskAuth
