// Package service provides the backfill range driver
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"lakefill/internal/adapters/gharchive"
	"lakefill/internal/modkit/repokit"
	perr "lakefill/internal/platform/errors"
	"lakefill/internal/platform/logger"
	ptime "lakefill/internal/platform/time"
	"lakefill/internal/services/backfill/domain"
	"lakefill/internal/services/backfill/guardrails"
	ingdom "lakefill/internal/services/ingest/domain"
)

// Config tunes the range driver. Every knob has a safe zero value
type Config struct {
	Workers      int           // hours processed in parallel, min 1
	DelayPerHour time.Duration // per worker pause once an hour finishes

	MaxRetries int           // attempt ceiling per hour, min 1
	RetryBase  time.Duration // first backoff step, 500ms when unset

	// Per phase deadlines, handed to guardrails
	FetchTimeout time.Duration
	StoreTimeout time.Duration

	MaxRangeHours int // reject ranges wider than this, 0 lifts the guard

	EnableLeases bool // claim an hour scoped lease before touching it

	Dataset string // sink prefix under the bronze bucket
}

// Service implements the backfill range driver
type Service struct {
	DB        repokit.TxRunner
	Binder    repokit.Binder[domain.JournalRepo] // binds q -> domain.JournalRepo
	Collector domain.Collector
	Storage   domain.Storage
	Cfg       Config

	// Lease(ctx, hourUTC, do) should take an hour-scoped claim and run do()
	Lease func(ctx context.Context, hour time.Time, do func(context.Context) error) error
}

// New constructs the backfill service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.JournalRepo],
	collector domain.Collector,
	storage domain.Storage,
	cfg Config,
	lease func(context.Context, time.Time, func(context.Context) error) error,
) *Service {
	switch {
	case db == nil:
		panic("backfill: New needs a TxRunner")
	case binder == nil:
		panic("backfill: New needs a journal binder")
	}
	return &Service{
		DB:        db,
		Binder:    binder,
		Collector: collector,
		Storage:   storage,
		Cfg:       cfg,
		Lease:     lease,
	}
}

// journal binds the hour journal repo over the tx scoped q
func (s *Service) journal(q repokit.Queryer) domain.JournalRepo {
	return repokit.MustBind(s.Binder, q)
}

// PlanRange seeds ingest_hours without processing. Planning skips the width
// guard, pre seeding a huge range for later resume runs is deliberate
func (s *Service) PlanRange(ctx context.Context, start, end time.Time) error {
	start, end = ptime.HourFloor(start), ptime.HourFloor(end)
	if end.Before(start) {
		return errors.New("backfill: range ends before it starts")
	}
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		added, err := s.journal(q).PreseedHours(ctx, start, end)
		if err == nil {
			logger.C(ctx).Info().Int("added", added).Msg("backfill: hours seeded")
		}
		return err
	})
}

// RunRange seeds the inclusive range then drains it with the worker pool
func (s *Service) RunRange(ctx context.Context, start, end time.Time) error {
	start, end = ptime.HourFloor(start), ptime.HourFloor(end)
	switch {
	case end.Before(start):
		return errors.New("backfill: range ends before it starts")
	case s.Cfg.MaxRangeHours > 0 && hoursIn(start, end) > s.Cfg.MaxRangeHours:
		return fmt.Errorf("backfill: range spans more than %d hours", s.Cfg.MaxRangeHours)
	}

	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		_, err := s.journal(q).PreseedHours(ctx, start, end)
		return err
	}); err != nil {
		return err
	}

	return s.drain(ctx, func(c context.Context) (time.Time, bool, error) {
		return s.nextHour(c, start, end)
	})
}

// RunResume drains any pending, errored, or missing hours globally, ignoring bounds
func (s *Service) RunResume(ctx context.Context) error {
	return s.drain(ctx, s.nextHourAny)
}

// drain fans the claim function out over the worker pool and blocks until
// every worker has seen an empty journal
func (s *Service) drain(ctx context.Context, next func(context.Context) (time.Time, bool, error)) error {
	var failed atomic.Int64
	var wg sync.WaitGroup

	workers := max(s.Cfg.Workers, 1)
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			s.drainLoop(ctx, next, &failed)
		}()
	}
	wg.Wait()

	if n := failed.Load(); n > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("backfill: %d hours failed", n)
	}
	return nil
}

// drainLoop claims hours one at a time until the claim comes back empty or
// ctx ends. Failed hours are counted, never fatal to the loop
func (s *Service) drainLoop(ctx context.Context, next func(context.Context) (time.Time, bool, error), failed *atomic.Int64) {
	for ctx.Err() == nil {
		hr, ok, err := next(ctx)
		if err != nil {
			failed.Add(1)
			logger.C(ctx).Error().Err(err).Msg("backfill: hour claim failed")
			// a broken journal must not hot loop the pool
			_ = pause(ctx, 500*time.Millisecond)
			continue
		}
		if !ok {
			return
		}
		if err := s.runHourWithRetry(ctx, hr); err != nil {
			failed.Add(1)
			logger.C(ctx).Error().Time("hour", hr).Err(err).Msg("backfill: hour failed")
		}
		if s.Cfg.DelayPerHour > 0 {
			_ = pause(ctx, s.Cfg.DelayPerHour)
		}
	}
}

// claimVia runs one claim transaction and copies the result out of the closure
func (s *Service) claimVia(ctx context.Context, pick func(domain.JournalRepo) (time.Time, bool, error)) (hr time.Time, ok bool, err error) {
	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var e error
		hr, ok, e = pick(s.journal(q))
		return e
	})
	return hr, ok, err
}

func (s *Service) nextHour(ctx context.Context, start, end time.Time) (time.Time, bool, error) {
	return s.claimVia(ctx, func(r domain.JournalRepo) (time.Time, bool, error) {
		return r.NextHourToProcess(ctx, start, end)
	})
}

func (s *Service) nextHourAny(ctx context.Context) (time.Time, bool, error) {
	return s.claimVia(ctx, func(r domain.JournalRepo) (time.Time, bool, error) {
		return r.NextHourToProcessAny(ctx)
	})
}

func (s *Service) runHourWithRetry(ctx context.Context, hour time.Time) error {
	attempts := max(s.Cfg.MaxRetries, 1)

	var last error
	for try := range attempts {
		last = s.runHour(ctx, hour, try+1)
		switch {
		case last == nil:
			return nil
		case !perr.Retryable(last):
			return last
		case try+1 == attempts:
			return last
		}
		if err := pause(ctx, s.retryDelay(try)); err != nil {
			return err
		}
	}
	return last
}

// retryDelay doubles per attempt with a half window of jitter, capped at 30s
func (s *Service) retryDelay(attempt int) time.Duration {
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := min(base<<attempt, 30*time.Second)
	if half := d / 2; half > 0 {
		d = half + rand.N(half)
	}
	return d
}

func (s *Service) runHour(ctx context.Context, hour time.Time, attempt int) error {
	hourUTC := hour.UTC()
	if s.Lease == nil || !s.Cfg.EnableLeases {
		return s.runHourUnlocked(ctx, hourUTC, attempt)
	}
	err := s.Lease(ctx, hourUTC, func(ctx context.Context) error {
		return s.runHourUnlocked(ctx, hourUTC, attempt)
	})
	if isLeaseHeld(err) {
		// another worker owns the hour, not a failure
		return nil
	}
	return err
}

func (s *Service) runHourUnlocked(ctx context.Context, hour time.Time, attempt int) (retErr error) {
	tos := guardrails.Timeouts{
		Fetch: s.Cfg.FetchTimeout,
		Store: s.Cfg.StoreTimeout,
	}
	hrCtx, hrCancel := guardrails.WithHour(ctx, tos)
	defer hrCancel()

	src := gharchive.NewHourRef(hour).SourceURL()
	key := ingdom.SinkKey(s.Cfg.Dataset, ingdom.NewHour(hour))

	hourStart := time.Now()
	var fetchMS, storeMS int
	var cacheHit bool
	var bytesWritten int64
	var status, errText string

	s.journalStart(hrCtx, tos, hour, attempt)

	// The finish write runs no matter how the hour ends. A panic in an
	// adapter unwinds through here, without the recover it would journal
	// the hour as ok
	defer func() {
		if r := recover(); r != nil {
			retErr = perr.PanicErrf("hour %s: %v", hour.Format("2006-01-02T15"), r)
		}
		if status == "" {
			status = domain.StatusOK
			if retErr != nil {
				status = domain.StatusError
			}
		}
		if retErr != nil && errText == "" {
			errText = retErr.Error()
		}
		s.journalFinish(hrCtx, tos, hour, domain.HourFinish{
			Status:       status,
			CacheHit:     cacheHit,
			BytesWritten: bytesWritten,
			FetchMS:      fetchMS,
			StoreMS:      storeMS,
			ElapsedMS:    int(time.Since(hourStart).Milliseconds()),
			Attempts:     attempt,
			ErrText:      errText,
		})
	}()

	fetchStart := time.Now()
	fetchCtx, cancelFetch := guardrails.ForFetch(hrCtx, tos)
	rc, err := s.Collector.Collect(fetchCtx, src)
	cancelFetch()
	fetchMS = int(time.Since(fetchStart).Milliseconds())
	if err != nil {
		// An unpublished hour is a clean skip, claimable again on resume
		if errors.Is(err, gharchive.ErrHourMissing) {
			status = domain.StatusMissing
			errText = err.Error()
			return nil
		}
		retErr = err
		return
	}

	// Cache served payloads carry a file name, journaled as a cache hit
	if _, ok := any(rc).(interface{ Name() string }); ok {
		cacheHit = true
	}

	body := newCountingBody(rc)
	defer func() {
		if cerr := body.Close(); cerr != nil && retErr == nil {
			retErr = cerr
		}
	}()

	storeStart := time.Now()
	storeCtx, cancelStore := guardrails.ForStore(hrCtx, tos)
	serr := s.Storage.Store(storeCtx, body, key)
	cancelStore()
	storeMS = int(time.Since(storeStart).Milliseconds())
	if serr != nil {
		retErr = serr
		return
	}
	bytesWritten = body.Bytes()

	return nil
}

// journalStart records the attempt, best effort and DB bounded
func (s *Service) journalStart(ctx context.Context, tos guardrails.Timeouts, hour time.Time, attempt int) {
	dbCtx, cancel := guardrails.ForDB(ctx, tos)
	defer cancel()
	_ = s.DB.Tx(dbCtx, func(q repokit.Queryer) error {
		return s.journal(q).StartHour(dbCtx, hour, attempt)
	})
}

// journalFinish is the start write's counterpart, same best effort contract
func (s *Service) journalFinish(ctx context.Context, tos guardrails.Timeouts, hour time.Time, fin domain.HourFinish) {
	dbCtx, cancel := guardrails.ForDB(ctx, tos)
	defer cancel()
	_ = s.DB.Tx(dbCtx, func(q repokit.Queryer) error {
		return s.journal(q).FinishHour(dbCtx, hour, fin)
	})
}

// hourBody is the payload shape handed to Storage with byte accounting
type hourBody interface {
	io.ReadCloser
	Bytes() int64
}

// newCountingBody wraps rc so the bytes streamed to storage can be journaled.
// A known payload size stays visible so sized uploads keep working
func newCountingBody(rc io.ReadCloser) hourBody {
	cb := &countingBody{rc: rc}
	if s, ok := rc.(interface{ Size() int64 }); ok {
		return &sizedCountingBody{countingBody: cb, size: s.Size()}
	}
	return cb
}

type countingBody struct {
	rc io.ReadCloser
	n  int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	b.n += int64(n)
	return n, err
}

func (b *countingBody) Close() error { return b.rc.Close() }

func (b *countingBody) Bytes() int64 { return b.n }

type sizedCountingBody struct {
	*countingBody
	size int64
}

func (b *sizedCountingBody) Size() int64 { return b.size }

// hoursIn counts the hours in an inclusive floored range
func hoursIn(start, end time.Time) int {
	return int(end.Sub(start).Hours()) + 1
}

// pause sleeps for d without outliving ctx
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isLeaseHeld reports whether err is the lease contention sentinel
func isLeaseHeld(err error) bool {
	return errors.Is(err, guardrails.ErrLeaseHeld)
}
