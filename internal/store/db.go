package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/abonos/internal/ledger"
)

// Bumper receives the invalidation tags of committed writes.
type Bumper interface {
	Bump(tags ...ledger.Tag)
}

// DB wraps the pool with context-carried transactions. Writes made through
// it report their tags to the Bumper once the outermost transaction commits.
type DB struct {
	pool *pgxpool.Pool
	bump Bumper
	log  *slog.Logger
}

func NewDB(pool *pgxpool.Pool, bump Bumper, log *slog.Logger) *DB {
	if log == nil {
		log = slog.Default()
	}
	return &DB{pool: pool, bump: bump, log: log}
}

type txKey struct{}

type txState struct {
	tx      pgx.Tx
	pending []Write
}

// WithTx runs fn in a transaction. Nested calls join the outer one.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	st := &txState{tx: tx}
	txCtx := context.WithValue(ctx, txKey{}, st)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	db.flush(st.pending)
	return nil
}

func (db *DB) flush(writes []Write) {
	if len(writes) == 0 || db.bump == nil {
		return
	}
	var tags []ledger.Tag
	for _, w := range writes {
		tags = append(tags, w.Tags...)
		db.log.Debug("store write committed", "write", w.Name, "op", w.Op, "table", w.Table)
	}
	db.bump.Bump(tags...)
}

// write runs fn as one declared write. The tags of w are bumped after
// commit, and only if fn reports affected rows.
func (db *DB) write(ctx context.Context, w Write, fn func(ctx context.Context) (int64, error)) (int64, error) {
	var n int64
	err := db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = fn(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			st := txFromContext(ctx)
			st.pending = append(st.pending, w)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func txFromContext(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

func (db *DB) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if st := txFromContext(ctx); st != nil {
		return st.tx.Exec(ctx, sql, args...)
	}
	return db.pool.Exec(ctx, sql, args...)
}

func (db *DB) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if st := txFromContext(ctx); st != nil {
		return st.tx.Query(ctx, sql, args...)
	}
	return db.pool.Query(ctx, sql, args...)
}

func (db *DB) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if st := txFromContext(ctx); st != nil {
		return st.tx.QueryRow(ctx, sql, args...)
	}
	return db.pool.QueryRow(ctx, sql, args...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// violatedConstraint returns the constraint name of a Postgres integrity error.
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
