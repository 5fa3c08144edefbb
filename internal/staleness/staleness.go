package staleness

import (
	"fmt"
	"time"
)

// Threshold is how old a snapshot may get before it is flagged.
const Threshold = 2 * time.Hour

// IsStale applies the default threshold.
func IsStale(lastUpdated, now time.Time) bool {
	return Evaluator{Threshold: Threshold}.IsStale(lastUpdated, now)
}

// Evaluator classifies snapshots against a configurable threshold.
type Evaluator struct {
	Threshold time.Duration
}

// IsStale reports whether now-lastUpdated exceeds the threshold. Exactly the
// threshold is still fresh. A zero lastUpdated is never stale: there is not
// enough information to warn.
func (e Evaluator) IsStale(lastUpdated, now time.Time) bool {
	if lastUpdated.IsZero() {
		return false
	}
	threshold := e.Threshold
	if threshold <= 0 {
		threshold = Threshold
	}
	return now.Sub(lastUpdated) > threshold
}

// Age is how long ago lastUpdated was, never negative.
func Age(lastUpdated, now time.Time) time.Duration {
	if lastUpdated.IsZero() || now.Before(lastUpdated) {
		return 0
	}
	return now.Sub(lastUpdated)
}

// Relative renders the age the way the dashboard shows it: "42s ago",
// "5m ago", "3h ago", "2d ago". A zero lastUpdated renders as "".
func Relative(lastUpdated, now time.Time) string {
	if lastUpdated.IsZero() {
		return ""
	}
	secs := int64(Age(lastUpdated, now) / time.Second)
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh ago", secs/3600)
	default:
		return fmt.Sprintf("%dd ago", secs/86400)
	}
}
