// Package repo provides postgres access for the backfill hour journal
package repo

import (
	"context"
	"time"

	"lakefill/internal/modkit/repokit"
	perr "lakefill/internal/platform/errors"
	str "lakefill/internal/platform/strings"
	"lakefill/internal/services/backfill/domain"
)

type (
	// PG is a Postgres binder for domain.JournalRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.JournalRepo
func NewPG() repokit.Binder[domain.JournalRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.JournalRepo { return &queries{q: q} }

// PreseedHours inserts pending rows for every hour in the inclusive range.
// Existing rows keep their state
func (r *queries) PreseedHours(ctx context.Context, start, end time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO ingest_hours (hour_utc, status)
		SELECT gs, 'pending'
		FROM generate_series($1::timestamptz, $2::timestamptz, interval '1 hour') AS gs
		ON CONFLICT (hour_utc) DO NOTHING
	`, start.UTC(), end.UTC())
	if err != nil {
		return 0, perr.FromPostgres(err, "preseed hours")
	}
	return int(tag.RowsAffected()), nil
}

// claimSQL flips the earliest claimable hour to running.
// SKIP LOCKED keeps concurrent claimers off the same row; 'missing' rows are
// claimable again because the archive publishes some hours late
const claimSQL = `
	WITH next AS (
		SELECT hour_utc
		FROM ingest_hours
		WHERE hour_utc BETWEEN $1 AND $2
		  AND status IN ('pending', 'error', 'missing')
		ORDER BY hour_utc
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	)
	UPDATE ingest_hours h
	SET status = 'running', claimed_at = now()
	FROM next
	WHERE h.hour_utc = next.hour_utc
	RETURNING h.hour_utc
`

const claimAnySQL = `
	WITH next AS (
		SELECT hour_utc
		FROM ingest_hours
		WHERE status IN ('pending', 'error', 'missing')
		ORDER BY hour_utc
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	)
	UPDATE ingest_hours h
	SET status = 'running', claimed_at = now()
	FROM next
	WHERE h.hour_utc = next.hour_utc
	RETURNING h.hour_utc
`

// NextHourToProcess claims the earliest claimable hour inside the range
func (r *queries) NextHourToProcess(ctx context.Context, start, end time.Time) (time.Time, bool, error) {
	return r.claim(ctx, claimSQL, start.UTC(), end.UTC())
}

// NextHourToProcessAny claims the earliest claimable hour anywhere in the journal
func (r *queries) NextHourToProcessAny(ctx context.Context) (time.Time, bool, error) {
	return r.claim(ctx, claimAnySQL)
}

func (r *queries) claim(ctx context.Context, sql string, args ...any) (time.Time, bool, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return time.Time{}, false, perr.FromPostgres(err, "claim hour")
	}
	defer rows.Close()
	if !rows.Next() {
		return time.Time{}, false, perr.FromPostgres(rows.Err(), "claim hour")
	}
	var hr time.Time
	if err := rows.Scan(&hr); err != nil {
		return time.Time{}, false, perr.FromPostgres(err, "scan claimed hour")
	}
	return hr.UTC(), true, rows.Err()
}

// StartHour marks the hour running for the given attempt (idempotent)
func (r *queries) StartHour(ctx context.Context, hour time.Time, attempt int) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO ingest_hours (hour_utc, started_at, status, attempts)
		VALUES ($1, now(), 'running', $2)
		ON CONFLICT (hour_utc) DO UPDATE
		SET started_at = now(), status = 'running', attempts = $2, error = null, finished_at = null
	`, hour.UTC(), attempt)
	return perr.FromPostgresf(err, "start hour %s", hour.UTC().Format("2006-01-02T15"))
}

// FinishHour records the outcome for the hour (idempotent)
func (r *queries) FinishHour(ctx context.Context, hour time.Time, fin domain.HourFinish) error {
	_, err := r.q.Exec(ctx, `
		UPDATE ingest_hours SET
			finished_at = now(),
			status = $2,
			cache_hit = $3,
			bytes_written = $4,
			fetch_ms = $5,
			store_ms = $6,
			elapsed_ms = $7,
			attempts = $8,
			error = $9
		WHERE hour_utc = $1
	`,
		hour.UTC(), fin.Status, fin.CacheHit, fin.BytesWritten,
		fin.FetchMS, fin.StoreMS, fin.ElapsedMS, fin.Attempts, str.SQLNull(fin.ErrText),
	)
	return perr.FromPostgresf(err, "finish hour %s", hour.UTC().Format("2006-01-02T15"))
}
