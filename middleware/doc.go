// Package middleware exposes HTTP middleware built on session token verification.
//
// # Guards
//
//   - [Guard] — requires a live access token and injects its claims.
//   - [RequireRole] — narrows a guarded route to specific roles.
//   - [ClientIP] — records the caller address for audit events.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Manager calls. It does NOT
// parse tokens or touch the session table itself.
package middleware
