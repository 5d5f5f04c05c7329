package guardrails

import (
	"context"
	"errors"
	"time"

	"lakefill/internal/modkit"
	"lakefill/internal/platform/store"
)

// ErrLeaseHeld signals another worker owns the hour already
var ErrLeaseHeld = errors.New("backfill: hour lease already held")

// MakeAdvisoryLease returns a function that claims an hour through the
// ingest_hour_leases table and runs do when the claim succeeds.
// A one time claim, never released, so concurrent backfill instances
// skip hours another instance has taken. Claimed-by-someone-else comes
// back as ErrLeaseHeld for a clean skip.
// Assumes the ingest_hour_leases table exists
func MakeAdvisoryLease(
	deps modkit.Deps,
) func(ctx context.Context, hour time.Time, do func(context.Context) error) error {
	return func(ctx context.Context, hour time.Time, do func(context.Context) error) error {
		var claimed bool
		err := deps.PG.Tx(ctx, func(q store.RowQuerier) error {
			rows, err := q.Query(ctx, `
				insert into ingest_hour_leases (hour_utc)
				values ($1)
				on conflict (hour_utc) do nothing
				returning true
			`, hour.UTC())
			if err != nil {
				return err
			}
			defer rows.Close()
			if rows.Next() {
				claimed = true
			}
			return rows.Err()
		})
		if err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld
		}
		return do(ctx)
	}
}
