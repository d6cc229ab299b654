// Package rate throttles login attempts with fixed-window counters.
//
// An attempt is counted before the credentials are checked
// (ReserveLogin) and handed back on success (ResetLogin), so the budget
// holds under concurrent requests.
//
// Counters are keyed per identifier (email) and, optionally, per client IP:
//   - <prefix>:al:<identifier>
//   - <prefix>:ali:<ip>
//
// [RedisLimiter] shares counters across instances (a Lua INCR that sets the
// expiry on the first hit of a window). [MemoryLimiter] keeps them in process.
package rate
