package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showroom-dms/showroom/internal/shared"
)

// SQLSTATE codes the store maps onto the error taxonomy.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// WithTx executes a function within a transaction using the RepeatableRead
// isolation level. The transaction is rolled back whenever fn or the commit
// fails; commit failures are reported as retryable TransactionFailure.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return WithTxIso(ctx, pool, pgx.RepeatableRead, fn)
}

// WithTxIso is WithTx at an explicit isolation level.
func WithTxIso(ctx context.Context, pool *pgxpool.Pool, iso pgx.TxIsoLevel, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return Classify(err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return shared.TransactionFailure(err)
	}

	return nil
}

// Classify maps driver errors onto the shared taxonomy. Typed errors pass
// through unchanged; unknown errors are returned as-is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if shared.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &shared.Error{Kind: shared.KindNotFound, Message: "record not found", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.TransactionFailure(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return &shared.Error{Kind: shared.KindConflict, Message: "duplicate " + constraintLabel(pgErr.ConstraintName), Err: err}
		case codeForeignKeyViolation:
			return &shared.Error{Kind: shared.KindConflict, Message: "record is referenced by other records", Err: err}
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
			return shared.TransactionFailure(err)
		}
	}
	if pgconn.Timeout(err) {
		return shared.TransactionFailure(err)
	}
	return err
}

func constraintLabel(name string) string {
	switch name {
	case "vehicles_chassis_no_key", "sales_chassis_no_key":
		return "chassis number"
	case "batteries_serial_no_key", "sales_battery_serial_key":
		return "battery serial"
	case "customers_mobile_key":
		return "mobile number"
	case "users_username_key":
		return "username"
	case "":
		return "entry"
	default:
		return name
	}
}
