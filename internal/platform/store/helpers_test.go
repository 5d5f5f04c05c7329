package store

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	perr "lakefill/internal/platform/errors"
)

// stubTag is a CommandTag with fixed answers
type stubTag struct {
	s string
	n int64
}

func (c stubTag) String() string      { return c.s }
func (c stubTag) RowsAffected() int64 { return c.n }

// scanInto assigns src to the pointer dest, converting when needed.
// Shared by every fake in this package that fakes a Scan
func scanInto(dest, src any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || !dv.Elem().CanSet() {
		return errors.New("dest not settable")
	}
	if src == nil {
		dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
		return nil
	}
	sv := reflect.ValueOf(src)
	if !sv.Type().AssignableTo(dv.Elem().Type()) {
		if !sv.Type().ConvertibleTo(dv.Elem().Type()) {
			return errors.New("incompatible scan types")
		}
		sv = sv.Convert(dv.Elem().Type())
	}
	dv.Elem().Set(sv)
	return nil
}

// stubRow scans its fixed value into the first dest
type stubRow struct {
	val any
	err error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 || r.val == nil {
		return nil
	}
	return scanInto(dest[0], r.val)
}

// stubRows walks fixed row data, consuming rows from the front
type stubRows struct {
	rem    [][]any
	cur    []any
	err    error
	closed bool
}

func newRows(data [][]any) *stubRows { return &stubRows{rem: data} }

func (r *stubRows) Next() bool {
	if r.err != nil || len(r.rem) == 0 {
		r.cur = nil
		return false
	}
	r.cur, r.rem = r.rem[0], r.rem[1:]
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.cur == nil {
		return errors.New("scan before next")
	}
	if len(dest) != len(r.cur) {
		return errors.New("dest count mismatch")
	}
	for i := range dest {
		if err := scanInto(dest[i], r.cur[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubRows) Err() error { return r.err }
func (r *stubRows) Close()     { r.closed = true }

// stubQuerier hands back canned results for each RowQuerier method
type stubQuerier struct {
	lastExecSQL string
	lastExecArg []any
	execTag     CommandTag
	execErr     error

	queryRows Rows
	queryErr  error

	rowVal any
	rowErr error
}

func (f *stubQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	f.lastExecSQL = sql
	f.lastExecArg = args
	return f.execTag, f.execErr
}

func (f *stubQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return f.queryRows, f.queryErr
}

func (f *stubQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return stubRow{val: f.rowVal, err: f.rowErr}
}

func TestExec_RecordsAndPassesThrough(t *testing.T) {
	t.Parallel()

	f := &stubQuerier{execTag: stubTag{s: "INSERT 0 3", n: 3}}
	tag, err := Exec(context.Background(), f, "INSERT INTO ingest_hours (hour_utc) VALUES ($1)", 1, "pending")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if tag.String() != "INSERT 0 3" {
		t.Fatalf("tag mismatch: %q", tag.String())
	}
	if f.lastExecSQL == "" || len(f.lastExecArg) != 2 {
		t.Fatal("exec call not recorded")
	}
}

func TestExecOne_RowCountDiscipline(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		affected int64
		execErr  error
		wantErr  string // substring, empty means success
	}{
		{name: "exactly one", affected: 1},
		{name: "two rows", affected: 2, wantErr: "want 1"},
		{name: "zero rows", affected: 0, wantErr: "want 1"},
		{name: "exec failed", execErr: errors.New("boom"), wantErr: "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &stubQuerier{execTag: stubTag{n: tc.affected}, execErr: tc.execErr}
			err := ExecOne(context.Background(), f, "UPDATE ingest_hours SET status=$1", "ok")
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error mismatch: got %v, want substring %q", err, tc.wantErr)
			}
			if tc.execErr != nil && !errors.Is(err, tc.execErr) {
				t.Fatalf("exec error must bubble unchanged, got %v", err)
			}
		})
	}
}

func TestScalar(t *testing.T) {
	t.Parallel()

	t.Run("scans the single value", func(t *testing.T) {
		f := &stubQuerier{rowVal: 7}
		got, err := Scalar[int](context.Background(), f, "SELECT count(*) FROM ingest_hours")
		if err != nil {
			t.Fatalf("Scalar: %v", err)
		}
		if got != 7 {
			t.Fatalf("Scalar = %d, want 7", got)
		}
	})

	t.Run("scan errors pass through", func(t *testing.T) {
		f := &stubQuerier{rowErr: errors.New("scan bad")}
		if _, err := Scalar[int](context.Background(), f, "SELECT 1"); err == nil || err.Error() != "scan bad" {
			t.Fatalf("want scan error, got %v", err)
		}
	})
}

func mapInt(r Row) (int, error) {
	var x int
	return x, r.Scan(&x)
}

func TestOne(t *testing.T) {
	t.Parallel()

	t.Run("single row, rows closed", func(t *testing.T) {
		rows := newRows([][]any{{5}})
		f := &stubQuerier{queryRows: rows}

		item, err := One(context.Background(), f, mapInt,
			"SELECT attempts FROM ingest_hours WHERE hour_utc=$1")
		if err != nil {
			t.Fatalf("One: %v", err)
		}
		if item != 5 {
			t.Fatalf("One = %d, want 5", item)
		}
		if !rows.closed {
			t.Fatal("rows left open")
		}
	})

	t.Run("empty set is ErrNotFound", func(t *testing.T) {
		f := &stubQuerier{queryRows: newRows(nil)}
		if _, err := One(context.Background(), f, mapInt, "q"); !errors.Is(err, perr.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})

	t.Run("second row is an error", func(t *testing.T) {
		f := &stubQuerier{queryRows: newRows([][]any{{1}, {2}})}
		if _, err := One(context.Background(), f, mapInt, "q"); err == nil {
			t.Fatal("want error for more than one row")
		}
	})

	t.Run("query errors pass through", func(t *testing.T) {
		f := &stubQuerier{queryErr: errors.New("query bad")}
		if _, err := One(context.Background(), f, mapInt, "q"); err == nil || err.Error() != "query bad" {
			t.Fatalf("want query error, got %v", err)
		}
	})

	t.Run("rows error beats not found", func(t *testing.T) {
		r := newRows(nil)
		r.err = errors.New("rows-err")
		f := &stubQuerier{queryRows: r}
		if _, err := One(context.Background(), f, mapInt, "q"); err == nil || err.Error() != "rows-err" {
			t.Fatalf("want rows.Err, got %v", err)
		}
	})
}

func TestMany(t *testing.T) {
	t.Parallel()

	t.Run("maps every row in order", func(t *testing.T) {
		f := &stubQuerier{queryRows: newRows([][]any{{1}, {2}, {3}})}
		items, err := Many(context.Background(), f, mapInt,
			"SELECT attempts FROM ingest_hours ORDER BY hour_utc")
		if err != nil {
			t.Fatalf("Many: %v", err)
		}
		if want := []int{1, 2, 3}; !reflect.DeepEqual(items, want) {
			t.Fatalf("Many = %v, want %v", items, want)
		}
	})

	t.Run("query errors pass through", func(t *testing.T) {
		f := &stubQuerier{queryErr: errors.New("boom")}
		if _, err := Many(context.Background(), f, mapInt, "q"); err == nil || err.Error() != "boom" {
			t.Fatalf("want query error, got %v", err)
		}
	})

	t.Run("mapper error stops the walk", func(t *testing.T) {
		f := &stubQuerier{queryRows: newRows([][]any{{1}, {2}})}
		calls := 0
		_, err := Many(context.Background(), f, func(r Row) (int, error) {
			calls++
			if calls == 1 {
				return mapInt(r)
			}
			return 0, errors.New("mapper failed on row 2")
		}, "q")
		if err == nil || err.Error() != "mapper failed on row 2" {
			t.Fatalf("want mapper error, got %v", err)
		}
	})

	t.Run("empty set is a nil-error empty slice", func(t *testing.T) {
		f := &stubQuerier{queryRows: newRows(nil)}
		items, err := Many(context.Background(), f, mapInt, "q")
		if err != nil {
			t.Fatalf("Many on empty set: %v", err)
		}
		if len(items) != 0 {
			t.Fatalf("want no items, got %v", items)
		}
	})

	t.Run("iterator error bubbles and drops items", func(t *testing.T) {
		r := newRows(nil)
		r.err = errors.New("iter blew up")
		f := &stubQuerier{queryRows: r}
		items, err := Many(context.Background(), f, mapInt, "q")
		if err == nil || err.Error() != "iter blew up" {
			t.Fatalf("want rows.Err, got %v", err)
		}
		if items != nil {
			t.Fatalf("want nil slice on error, got %v", items)
		}
	})
}

func TestRowFromRows_ScanFacade(t *testing.T) {
	t.Parallel()

	fr := newRows([][]any{{7}})
	r := &rowFromRows{rows: fr}

	if !fr.Next() {
		t.Fatal("Next gave no row")
	}
	var n int
	if err := r.Scan(&n); err != nil {
		t.Fatalf("facade Scan: %v", err)
	}
	if n != 7 {
		t.Fatalf("facade scanned %d, want 7", n)
	}
}
