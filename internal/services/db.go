package services

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Row mirrors the single-row scan surface of pgx.
type Row interface {
	Scan(dest ...any) error
}

// Rows mirrors the multi-row surface of pgx that services actually use.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
}

// CommandTag exposes the affected-row count of a write. Check-then-set
// operations rely on it to detect a lost race.
type CommandTag interface {
	RowsAffected() int64
}

// DB is the narrow storage contract every service depends on. Production code
// passes a pgxpool via PoolAdapter; tests pass hand-rolled fakes.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
}

type PoolAdapter struct {
	pool *pgxpool.Pool
}

func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (a *PoolAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := a.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (a *PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return a.pool.QueryRow(ctx, sql, args...)
}

func (a *PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	tag, err := a.pool.Exec(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return tag, nil
}
