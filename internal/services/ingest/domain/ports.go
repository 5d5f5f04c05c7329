package domain

import (
	"context"
	"io"
)

// RunnerPort is the public surface the ingest module exposes
type RunnerPort interface {
	// IngestHourly lands one archive hour in the bronze zone
	IngestHourly(ctx context.Context, hour Hour) error
}

// ConfigProvider supplies the settings the default collaborators are built from
type ConfigProvider interface {
	Config() (Config, error)
}

// Collector retrieves one payload per call, no internal retries
type Collector interface {
	Collect(ctx context.Context, sourceURL string) (io.ReadCloser, error)
}

// Storage persists one payload at a key inside the configured bucket
// Writing an existing key replaces the previous object
type Storage interface {
	Store(ctx context.Context, payload io.Reader, key string) error
}
