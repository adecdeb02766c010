package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/showroom-dms/showroom/internal/shared"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind shared.ErrorKind
	}{
		{"no rows", pgx.ErrNoRows, shared.KindNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "sales_chassis_no_key"}, shared.KindConflict},
		{"fk", &pgconn.PgError{Code: "23503"}, shared.KindConflict},
		{"serialization", &pgconn.PgError{Code: "40001"}, shared.KindTransactionFailure},
		{"deadlock", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}), shared.KindTransactionFailure},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, shared.KindTransactionFailure},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, shared.KindTransactionFailure},
		{"deadline", context.DeadlineExceeded, shared.KindTransactionFailure},
		{"typed passes through", shared.PreconditionFailed("nope"), shared.KindPreconditionFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, shared.KindOf(Classify(tc.err)))
		})
	}
}

func TestClassifyUniqueNamesConstraint(t *testing.T) {
	err := Classify(&pgconn.PgError{Code: "23505", ConstraintName: "sales_chassis_no_key"})
	assert.Contains(t, err.Error(), "duplicate chassis number")
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestClassifyUnknown(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, plain, Classify(plain))
	assert.Nil(t, Classify(nil))

	retry := Classify(&pgconn.PgError{Code: "40001"})
	var typed *shared.Error
	assert.True(t, errors.As(retry, &typed))
	assert.True(t, typed.Retryable())
}
