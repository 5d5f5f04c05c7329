// Package domain holds the backfill driver's journal types and ports
package domain

// Journal statuses for an hour row
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusMissing = "missing"
	StatusError   = "error"
)

// HourFinish captures the outcome of one processed hour.
// Attempts carries the attempt number that produced this outcome
type HourFinish struct {
	Status       string
	CacheHit     bool
	BytesWritten int64
	FetchMS      int
	StoreMS      int
	ElapsedMS    int
	Attempts     int
	ErrText      string
}
