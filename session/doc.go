// Package session owns the server-side session table.
//
// A session row is the authority on whether a token is still honoured: a
// correctly signed token whose session is gone must be rejected. The package
// ships an in-process [MemoryStore] (the default) and a [RedisStore] for
// deployments that run more than one instance.
//
// # Architecture boundaries
//
// Stores persist and index rows. They do NOT parse tokens, decide expiry
// policy or own timers; the caller passes explicit timestamps and cutoffs.
package session
