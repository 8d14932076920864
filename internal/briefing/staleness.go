package briefing

import "time"

// StalenessAssessment is the derived age of a reference timestamp against a
// freshness threshold. It is computed identically for forecast publish times
// and cached briefing creation times so both paths share one definition of
// "stale".
type StalenessAssessment struct {
	Elapsed time.Duration
	IsStale bool
}

// ElapsedHours returns the elapsed time in fractional hours.
func (s StalenessAssessment) ElapsedHours() float64 {
	return s.Elapsed.Hours()
}

// ElapsedMillis returns the elapsed time in whole milliseconds, the unit the
// response envelope reports dataAge in.
func (s StalenessAssessment) ElapsedMillis() int64 {
	return s.Elapsed.Milliseconds()
}

// AssessStaleness computes how old reference is at now. The flag trips
// strictly beyond the threshold: exactly threshold old is still fresh.
func AssessStaleness(reference, now time.Time, threshold time.Duration) StalenessAssessment {
	elapsed := now.Sub(reference)
	return StalenessAssessment{
		Elapsed: elapsed,
		IsStale: elapsed > threshold,
	}
}
