// Package flows contains pure-function orchestrators for the Manager operations
// that combine token handling with the session table.
//
// Each flow function (RunIssue, RunVerify, RunRefresh) accepts a typed
// dependency struct and returns a result carrying either the success payload
// or a classified failure. The Manager maps failures onto metrics, audit
// events and its public sentinel results.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import sessionauth (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through dependency interfaces.
package flows
