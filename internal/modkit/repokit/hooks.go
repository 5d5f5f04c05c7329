package repokit

import "context"

// BeginHook runs at transaction start with the tx bound Queryer
type BeginHook func(ctx context.Context, q Queryer) error

// SetLocalHook builds a BeginHook that runs SET LOCAL statements. SET LOCAL
// scope ends with the transaction, which makes it the right place for per tx
// tuning like statement_timeout on long journal scans
func SetLocalHook(stmts ...string) BeginHook {
	return func(ctx context.Context, q Queryer) error {
		for _, s := range stmts {
			if _, err := q.Exec(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithBeginHooks wraps a TxRunner so every Tx runs hooks before fn, inside
// the same transaction. Direct Exec/Query/QueryRow calls bypass the hooks
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	return hookedTx{inner: inner, hooks: hooks}
}

type hookedTx struct {
	inner TxRunner
	hooks []BeginHook
}

// Tx opens the inner tx, runs the hooks in order, then fn. A hook error
// aborts before fn sees the transaction
func (h hookedTx) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.inner.Tx(ctx, func(q Queryer) error {
		for _, hk := range h.hooks {
			if err := hk(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}

// plain calls pass straight through
func (h hookedTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return h.inner.Exec(ctx, sql, args...)
}

func (h hookedTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return h.inner.Query(ctx, sql, args...)
}

func (h hookedTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return h.inner.QueryRow(ctx, sql, args...)
}
