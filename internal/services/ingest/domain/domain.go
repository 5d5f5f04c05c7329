// Package domain holds the ingest service's value types and ports
package domain

import (
	"fmt"
	"time"

	"lakefill/internal/adapters/lakeconfig"
	perr "lakefill/internal/platform/errors"
)

// Hour is the unit of ingestion, one archive hour in UTC
// Callers supply it, derivations never mutate it
type Hour struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// NewHour builds an Hour from t converted to UTC
func NewHour(t time.Time) Hour {
	ut := t.UTC()
	return Hour{Year: ut.Year(), Month: int(ut.Month()), Day: ut.Day(), Hour: ut.Hour()}
}

// UTC returns the hour as a time.Time
func (h Hour) UTC() time.Time {
	return time.Date(h.Year, time.Month(h.Month), h.Day, h.Hour, 0, 0, 0, time.UTC)
}

// String renders the hour the way the CLIs accept it, YYYY-MM-DDTHH
func (h Hour) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d", h.Year, h.Month, h.Day, h.Hour)
}

// ParseHour parses the CLI hour form YYYY-MM-DDTHH, read as UTC
func ParseHour(s string) (Hour, error) {
	t, err := time.Parse("2006-01-02T15", s)
	if err != nil {
		return Hour{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "parse hour %q", s)
	}
	return NewHour(t), nil
}

// Config re-exports the settings bundle the providers produce
type Config = lakeconfig.Config

// SinkKey derives the bronze object key for h under basePath
// Layout is <base>/YYYY/MM/DD/HH.json.gz with every part zero padded
func SinkKey(basePath string, h Hour) string {
	return fmt.Sprintf("%s/%04d/%02d/%02d/%02d.json.gz", basePath, h.Year, h.Month, h.Day, h.Hour)
}
