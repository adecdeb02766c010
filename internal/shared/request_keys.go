package shared

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// MaxRequestKeyLength bounds client supplied Idempotency-Key values.
const MaxRequestKeyLength = 128

// ErrRequestKeyReplayed marks a key that was already claimed in its scope.
var ErrRequestKeyReplayed = errors.New("request key already used")

// RequestKeys remembers client request keys per scope (for example
// "sales.create") until the nightly prune. A claimed key turns a client retry
// into Conflict instead of a second booking.
type RequestKeys struct {
	db  Execer
	now func() time.Time
}

// NewRequestKeys constructs RequestKeys over a pool or transaction.
func NewRequestKeys(db Execer) *RequestKeys {
	return &RequestKeys{db: db, now: time.Now}
}

// Claim records key for scope. A key already present in the scope yields a
// Conflict error wrapping ErrRequestKeyReplayed.
func (k *RequestKeys) Claim(ctx context.Context, scope, key string) error {
	if k == nil || k.db == nil {
		return errors.New("request keys: store not configured")
	}
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return Invalid("idempotency_key", "must not be blank")
	case len(key) > MaxRequestKeyLength:
		return Invalid("idempotency_key", "must be at most %d characters", MaxRequestKeyLength)
	}
	_, err := k.db.Exec(ctx, `INSERT INTO request_keys (scope, key, claimed_at) VALUES ($1, $2, $3)`, scope, key, k.now().UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &Error{Kind: KindConflict, Message: "request " + key + " was already processed", Err: ErrRequestKeyReplayed}
	}
	return err
}

// Release forgets a claimed key so the client can retry a request that failed.
func (k *RequestKeys) Release(ctx context.Context, scope, key string) error {
	if k == nil || k.db == nil {
		return nil
	}
	_, err := k.db.Exec(ctx, `DELETE FROM request_keys WHERE scope = $1 AND key = $2`, scope, strings.TrimSpace(key))
	return err
}

// Prune deletes keys claimed more than retention ago and reports how many went.
func (k *RequestKeys) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if k == nil || k.db == nil {
		return 0, nil
	}
	tag, err := k.db.Exec(ctx, `DELETE FROM request_keys WHERE claimed_at < $1`, k.now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
