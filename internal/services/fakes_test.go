package services

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
)

// fakeDB implements DB with per-call hooks. Unset hooks fail loudly via nil
// dereference so a test never silently queries the wrong surface.
type fakeDB struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return f.ExecFunc(ctx, sql, args...)
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignValues(dest, r.values)
}

// rowFromValues builds a Row whose Scan fills dest with the given values.
func rowFromValues(values ...any) Row {
	return fakeRow{values: values}
}

// errRow builds a Row whose Scan returns err.
func errRow(err error) Row {
	return fakeRow{err: err}
}

// noRow builds a Row that behaves like an empty result set.
func noRow() Row {
	return fakeRow{err: pgx.ErrNoRows}
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignValues(dest, r.rows[r.idx-1])
}

func (r *fakeRows) Close() {}

type fakeCommandTag struct {
	rowsAffected int64
}

func (t fakeCommandTag) RowsAffected() int64 {
	return t.rowsAffected
}

func assignValues(dest []any, values []any) error {
	for i, d := range dest {
		if i >= len(values) {
			break
		}
		dv := reflect.ValueOf(d).Elem()
		sv := reflect.ValueOf(values[i])
		if !sv.IsValid() {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		if sv.Type().ConvertibleTo(dv.Type()) {
			dv.Set(sv.Convert(dv.Type()))
		}
	}
	return nil
}
