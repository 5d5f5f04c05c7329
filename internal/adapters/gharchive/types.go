package gharchive

import (
	"fmt"
	"strings"
	"time"
)

// baseURL is the public archive host all hour files hang off
const baseURL = "https://data.gharchive.org"

// HourRef identifies one archive hour (UTC)
type HourRef struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// NewHourRef builds an HourRef from t converted to UTC
func NewHourRef(t time.Time) HourRef {
	ut := t.UTC()
	return HourRef{Year: ut.Year(), Month: int(ut.Month()), Day: ut.Day(), Hour: ut.Hour()}
}

// UTC returns the hour as a time.Time
func (h HourRef) UTC() time.Time {
	return time.Date(h.Year, time.Month(h.Month), h.Day, h.Hour, 0, 0, 0, time.UTC)
}

// String renders the archive's own naming: YYYY-MM-DD-H, hour not zero padded
func (h HourRef) String() string {
	return fmt.Sprintf("%04d-%02d-%02d-%d", h.Year, h.Month, h.Day, h.Hour)
}

// Filename returns the hour's file name as published by the archive
func (h HourRef) Filename() string { return h.String() + ".json.gz" }

// SourceURL returns the full download URL for the hour
func (h HourRef) SourceURL() string { return baseURL + "/" + h.Filename() }

// ParseFilename is the inverse of Filename
// Only the archive's canonical form is accepted, unpadded hour included
func ParseFilename(name string) (HourRef, bool) {
	base := strings.TrimSuffix(name, ".json.gz")
	if base == name {
		return HourRef{}, false
	}
	var h HourRef
	if _, err := fmt.Sscanf(base, "%d-%d-%d-%d", &h.Year, &h.Month, &h.Day, &h.Hour); err != nil {
		return HourRef{}, false
	}
	if h.Year < 1 || h.Month < 1 || h.Month > 12 || h.Day < 1 || h.Day > 31 || h.Hour < 0 || h.Hour > 23 {
		return HourRef{}, false
	}
	// round trip guard so padded or trailing junk forms are rejected
	if h.String() != base {
		return HourRef{}, false
	}
	return h, true
}
