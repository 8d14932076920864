package types

import "time"

// Clock abstracts time for testability. The briefing pipeline's "today"
// semantics (locating the current calendar date inside weather series,
// deriving the cache key date) depend on an injected clock so tests can fix
// the instant deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// CalendarDate formats t as the UTC calendar date string (YYYY-MM-DD) used as
// the forecast-date component of cache keys and for exact-match lookups inside
// daily weather series.
func CalendarDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
