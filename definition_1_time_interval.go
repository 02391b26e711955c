package taskpacker

import "fmt"

// TimeInterval is half-open: [TimeStart, TimeEnd).
// Two intervals where one ends exactly when the other starts do not overlap.
type TimeInterval struct {
	TimeStart int64
	TimeEnd   int64
}

func (interval TimeInterval) Duration() int64 {
	return interval.TimeEnd - interval.TimeStart
}

func (interval TimeInterval) Overlaps(other TimeInterval) bool {
	return max(interval.TimeStart, other.TimeStart) < min(interval.TimeEnd, other.TimeEnd)
}

func (interval TimeInterval) Contains(other TimeInterval) bool {
	return interval.TimeStart <= other.TimeStart &&
		other.TimeEnd <= interval.TimeEnd
}

func (interval TimeInterval) String() string {
	return fmt.Sprintf(
		"[%d-%d)",

		interval.TimeStart,
		interval.TimeEnd,
	)
}
