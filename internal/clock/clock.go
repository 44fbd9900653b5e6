// Package clock is the time source of the module; tests replace NowFunc to
// get deterministic timestamps.
package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now returns NowFunc() truncated to microseconds, the precision the
// PostgreSQL store round-trips.
func Now() time.Time { return NowFunc().UTC().Truncate(time.Microsecond) }
