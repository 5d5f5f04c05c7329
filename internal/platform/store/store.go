// Package store owns the process-wide storage seams. Today that is a single
// postgres pool behind a narrow sql interface, opened once at boot and handed
// to modules through modkit deps.
package store

import (
	"context"
	"errors"
	"fmt"

	"lakefill/internal/platform/logger"
)

// Row is the scan contract for a single row
type Row interface {
	Scan(dest ...any) error
}

// Rows is the minimal cursor surface over a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// CommandTag reports what a write did
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the sql surface repos are written against. The same shape is
// served by the pool and by an open transaction, so repo code does not care
// which one it is running on
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner adds transaction scoping on top of RowQuerier
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Pinger is any seam that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Store carries the opened seams. The zero value is valid and has nothing
// enabled, which is how unit tests and the plan-only path run
type Store struct {
	// Log is handed to subclients, zero means a silent zerolog logger
	Log logger.Logger

	// PG is the journal's sql seam, nil when the journal is disabled
	PG TxRunner
}

// Open builds a Store from cfg. Seams that are not enabled stay nil
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	// normalize the zero logger so subclients never need a nil check
	s.Log = s.Log.With().Logger()

	if cfg.PG.Enabled {
		pgClient, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = pgClient
	}

	return s, nil
}

// Guard pings every seam that knows how to be pinged
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	if p, ok := s.PG.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
	}
	return nil
}

// Close shuts down every seam that was opened, nil seams are skipped
func (s *Store) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
