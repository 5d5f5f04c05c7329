// Package time contains time related helpers
package time

import "time"

// HourFloor truncates t to the start of its UTC hour
func HourFloor(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// LatestClosedHour returns the start of the most recent hour that has fully
// elapsed as of now. At 12:34Z that is 11:00Z; the 12:00Z archive does not
// exist until 13:00Z
func LatestClosedHour(now time.Time) time.Time {
	return HourFloor(now).Add(-time.Hour)
}
