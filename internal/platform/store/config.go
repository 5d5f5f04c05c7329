package store

import "time"

// Config aggregates per backend configuration
type Config struct {
	// AppName is stamped into postgres application_name so sessions
	// from the ingest and backfill binaries are distinguishable
	AppName string

	PG PGConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Boot knobs:
	ConnectRetries int           // ping attempts before Open gives up, default 6
	PingTimeout    time.Duration // per ping deadline, default 5s
}
