// Package pg owns the pgxpool client the hour journal runs on. It stays
// thin, pooling and tracing knobs only, sql lives in the store adapter
package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config carries the pool knobs the journal exposes through env
type Config struct {
	URL      string
	AppName  string
	MaxConns int32
	SlowMs   int
}

// PG bundles the open pool with the tracing settings the sql adapter
// reads when it wraps statements
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

// newPool is a seam so unit tests can fail or fake the dial
var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL, applies the pool knobs, and dials. AppName lands
// in application_name so pg_stat_activity can tell the ingest and
// backfill binaries apart. poolCfgMut runs last and may override
// anything set before it
func Open(ctx context.Context, cfg Config, tracer QueryTracer, poolCfgMut func(*pgxpool.Config)) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.AppName != "" {
		pcfg.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}
	if poolCfgMut != nil {
		poolCfgMut(pcfg)
	}

	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &PG{
		Pool:   pool,
		Tracer: tracer,
		SlowMs: cfg.SlowMs,
	}, nil
}

// Close releases the pool, safe on nil receivers and unopened clients
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
