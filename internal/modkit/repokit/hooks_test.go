package repokit

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"lakefill/internal/platform/store"
)

// recorder counts calls and remembers the last statement it saw
type recorder struct {
	execCalls  int
	queryCalls int
	rowCalls   int
	lastSQL    string
	lastArgs   []any
}

func (r *recorder) note(sql string, args []any) {
	r.lastSQL = sql
	r.lastArgs = append([]any(nil), args...)
}

// recQ is the Queryer the fake tx hands to hooks and fn
type recQ struct{ recorder }

func (q *recQ) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	q.execCalls++
	q.note(sql, args)
	var zero store.CommandTag
	return zero, nil
}

func (q *recQ) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	q.queryCalls++
	q.note(sql, args)
	var zero store.Rows
	return zero, nil
}

func (q *recQ) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	q.rowCalls++
	q.note(sql, args)
	var zero store.Row
	return zero
}

// recTx is the inner TxRunner behind the hook wrapper. Its own recQ soaks up
// direct calls, txQ is what transactions see
type recTx struct {
	recQ
	txQ     *recQ
	txCalls int
}

func (f *recTx) Tx(ctx context.Context, fn func(q Queryer) error) error {
	f.txCalls++
	return fn(f.txQ)
}

func TestWithBeginHooks_HooksThenFnOnSameQueryer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	txQ := &recQ{}
	inner := &recTx{txQ: txQ}

	var seq []string
	mark := func(name string) BeginHook {
		return func(_ context.Context, gotQ Queryer) error {
			if gotQ != txQ {
				t.Fatalf("hook %s received a different Queryer", name)
			}
			seq = append(seq, name)
			return nil
		}
	}

	runner := WithBeginHooks(inner, mark("hook1"), mark("hook2"))
	err := runner.Tx(ctx, func(gotQ Queryer) error {
		if gotQ != txQ {
			t.Fatalf("fn received a different Queryer")
		}
		seq = append(seq, "fn")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"hook1", "hook2", "fn"}; !reflect.DeepEqual(seq, want) {
		t.Fatalf("sequence mismatch want=%v got=%v", want, seq)
	}
	if inner.txCalls != 1 {
		t.Fatalf("inner Tx should be called once, got %d", inner.txCalls)
	}
}

func TestSetLocalHook_RunsStatementsInOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	txQ := &recQ{}
	inner := &recTx{txQ: txQ}

	runner := WithBeginHooks(inner, SetLocalHook(
		"SET LOCAL statement_timeout = 0",
		"SET LOCAL lock_timeout = '5s'",
	))

	if err := runner.Tx(ctx, func(Queryer) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txQ.execCalls != 2 {
		t.Fatalf("expected 2 SET LOCAL execs, got %d", txQ.execCalls)
	}
	if txQ.lastSQL != "SET LOCAL lock_timeout = '5s'" {
		t.Fatalf("last statement mismatch: %q", txQ.lastSQL)
	}
}

func TestWithBeginHooks_HookErrorAbortsBeforeFn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &recTx{txQ: &recQ{}}

	hookErr := errors.New("boom")
	var fnRan bool

	runner := WithBeginHooks(inner,
		func(context.Context, Queryer) error { return hookErr },
		func(context.Context, Queryer) error {
			t.Fatalf("second hook should not run when the first fails")
			return nil
		},
	)
	err := runner.Tx(ctx, func(Queryer) error { fnRan = true; return nil })

	if !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error to propagate, got %v", err)
	}
	if fnRan {
		t.Fatalf("fn should not run when a hook fails")
	}
}

func TestWithBeginHooks_DirectCallsBypassHooks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &recTx{txQ: &recQ{}}

	hookRan := false
	runner := WithBeginHooks(inner, func(context.Context, Queryer) error {
		hookRan = true
		return nil
	})

	if _, err := runner.Exec(ctx, "UPDATE ingest_hours SET status=$1", "pending"); err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	if inner.execCalls != 1 || inner.lastSQL != "UPDATE ingest_hours SET status=$1" ||
		!reflect.DeepEqual(inner.lastArgs, []any{"pending"}) {
		t.Fatalf("Exec did not delegate to inner")
	}

	if _, err := runner.Query(ctx, "SELECT hour_utc FROM ingest_hours WHERE status=$1", "error"); err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if inner.queryCalls != 1 || inner.lastSQL != "SELECT hour_utc FROM ingest_hours WHERE status=$1" {
		t.Fatalf("Query did not delegate to inner")
	}

	_ = runner.QueryRow(ctx, "SELECT count(*) FROM ingest_hours WHERE attempts > $1", 3)
	if inner.rowCalls != 1 || inner.lastSQL != "SELECT count(*) FROM ingest_hours WHERE attempts > $1" ||
		!reflect.DeepEqual(inner.lastArgs, []any{3}) {
		t.Fatalf("QueryRow did not delegate to inner")
	}

	if hookRan {
		t.Fatalf("begin hooks must only fire inside Tx")
	}
}
