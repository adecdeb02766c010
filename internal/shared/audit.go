package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool and pgx.Tx so records can be written
// inside the caller's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Audit actions written by the settlement and sales flows.
const (
	AuditSaleCreated     = "sale.created"
	AuditGatePassIssued  = "gatepass.issued"
	AuditCreditApproved  = "credit.approved"
	AuditCustomerDeleted = "customer.deleted"
	AuditUserCreated     = "user.created"
	AuditUserDeleted     = "user.deleted"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct{}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

// Record persists the log entry through db, usually the open transaction.
func (l *AuditLogger) Record(ctx context.Context, db Execer, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = db.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}
