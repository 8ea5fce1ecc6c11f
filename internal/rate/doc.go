// Package rate provides the attempt counters that throttle login and refresh calls.
//
// # Window semantics
//
// Two backends share one Limiter. The Redis backend uses fixed-window counters
// (INCR + EXPIRE on first hit). The local backend uses one token bucket per key from
// golang.org/x/time/rate, refilling Max tokens per Window. Key layout:
//   - <prefix>lu:<username> login per-username
//   - <prefix>li:<ip> login per-IP
//   - <prefix>rf:<id> refresh per-principal
//
// # What this package must NOT do
//
//   - Decide what an attempt is. The engine calls Increment only after a failure.
//   - Be imported outside the taskAuth module.
package rate
