// Package repository implements storage on PostgreSQL with raw SQL over
// pgx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every repo
// method runs unchanged inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// inTx runs fn in a transaction on q. Inside an existing transaction this
// becomes a savepoint.
func inTx(ctx context.Context, q querier, fn func(pgx.Tx) error) error {
	tx, err := q.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", model.ErrNotFound, what)
	}
	return err
}

func tableFor(t model.TargetType) (string, error) {
	switch t {
	case model.TargetVideo:
		return "video", nil
	case model.TargetPlaylist:
		return "playlist", nil
	}
	return "", fmt.Errorf("%w: unknown target type %q", model.ErrValidation, t)
}
