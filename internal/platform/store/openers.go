package store

import (
	"context"
	"fmt"
	"time"

	"lakefill/internal/platform/store/pg"
)

const (
	defaultConnectRetries = 6
	defaultPingTimeout    = 5 * time.Second
)

// openPG opens pg, waits until the pool answers a ping, and wraps it with
// our sql adapter. Retries and the per ping timeout come from cfg.PG with
// sane defaults for zero values
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	if err := waitReady(ctx, p, cfg.PG); err != nil {
		p.Close()
		return nil, err
	}

	// the adapter is published only once the pool is known healthy
	a := newPGAdapter(p)
	s.PG = a
	return a, nil
}

// waitReady pings the raw pool until it answers, with one doubling backoff
// sleep per miss. Pinging the pool rather than the adapter keeps the
// handshake out of the SQL trace
func waitReady(ctx context.Context, p *pg.PG, cfg PGConfig) error {
	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = defaultConnectRetries
	}
	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}

	var lastErr error
	backoff := 150 * time.Millisecond
	for range attempts {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = p.Pool.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(backoff)
		backoff = min(backoff*2, 2*time.Second)
	}
	return fmt.Errorf("postgres not ready after %d attempts: %w", attempts, lastErr)
}
