package buildsets

import "time"

// Clock supplies the store's notion of "now", used for defaulted
// submitted_at and complete_at timestamps. Injectable so tests can pin
// time exactly.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used in production.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
