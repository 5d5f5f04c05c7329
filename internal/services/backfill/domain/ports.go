package domain

import (
	"context"
	"io"
	"time"
)

// RunnerPort is the public port exposed by the backfill module
type RunnerPort interface {
	// PlanRange seeds the journal for the inclusive hour range without processing
	PlanRange(ctx context.Context, start, end time.Time) error

	// RunRange seeds then processes every hour in the inclusive range
	RunRange(ctx context.Context, start, end time.Time) error

	// RunResume drains claimable hours left behind by earlier runs
	RunResume(ctx context.Context) error
}

// JournalRepo is the hour journal surface, bound to a transaction per call
type JournalRepo interface {
	// PreseedHours inserts pending rows for the inclusive range, returning rows added
	PreseedHours(ctx context.Context, start, end time.Time) (int, error)

	// NextHourToProcess claims the earliest claimable hour inside the range
	NextHourToProcess(ctx context.Context, start, end time.Time) (time.Time, bool, error)

	// NextHourToProcessAny claims the earliest claimable hour anywhere in the journal
	NextHourToProcessAny(ctx context.Context) (time.Time, bool, error)

	// StartHour marks the hour running for the given attempt
	StartHour(ctx context.Context, hour time.Time, attempt int) error

	// FinishHour records the outcome for the hour
	FinishHour(ctx context.Context, hour time.Time, fin HourFinish) error
}

// Collector retrieves one archive payload per call
type Collector interface {
	Collect(ctx context.Context, sourceURL string) (io.ReadCloser, error)
}

// Storage persists one payload at a key inside the bronze bucket
type Storage interface {
	Store(ctx context.Context, payload io.Reader, key string) error
}

// Ports carries the collaborator ports the module borrows from the ingest wiring
type Ports struct {
	Collector Collector
	Storage   Storage
}
