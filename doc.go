// Package sessionauth issues and verifies the signed session tokens used by
// the fundn3xus application and keeps the server-side session table that
// decides whether a token is still honoured.
//
// A [Manager] is built once through [New] and shared by the HTTP layer,
// middleware, sweeper and in-process clients. All Manager methods are safe
// for concurrent use.
//
// # Failure model
//
// Verification, refresh and invalidation never return errors. A malformed,
// tampered, expired or revoked token reads as "not valid" and a missing
// session reads as "nothing removed". Only [Manager.Issue] reports errors,
// and only for missing input or a session table that cannot accept writes.
//
// # Architecture boundaries
//
// Token encoding lives in jwt/, the session table in session/, and the
// orchestration of each operation in internal/flows. This package wires them
// together with metrics, audit and logging.
package sessionauth
