// Package internal holds the pieces of sessionauth that are private to the
// module: the server's config, HTTP surface and user directory, plus the
// flow orchestration behind Manager.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: environment and .env loading for the server
//   - flows: pure-function orchestrators for Issue, Verify and RefreshAccess
//   - httpapi: chi router and handlers for /api/auth
//   - rate: failed-login throttling (Redis and in-memory)
//   - users: YAML-backed user directory with Argon2 credentials
//
// # What this package must NOT do
//
//   - Export types that appear in the public sessionauth API.
package internal
