package credit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Repository persists credit promises and recovery logs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LockSale(ctx context.Context, chassisNo string) (SaleInfo, error)
	InsertPromise(ctx context.Context, p Promise) (int64, error)
	StampSale(ctx context.Context, saleID int64, promiseDate time.Time, note string) error
	LedgerInputs(ctx context.Context, customerID int64) (ledger.Inputs, error)
	FulfilPending(ctx context.Context, customerID int64) (int, error)
	InsertRecoveryLog(ctx context.Context, l RecoveryLog) (int64, error)
	ReschedulePending(ctx context.Context, customerID int64, saleID *int64, next time.Time) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type txRepo struct {
	tx    pgx.Tx
	audit *shared.AuditLogger
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, audit: shared.NewAuditLogger()})
	})
}

// DueRows totals every customer with at least one sale.
func (r *Repository) DueRows(ctx context.Context) ([]DueRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.name, c.mobile,
	ARRAY(SELECT s.chassis_no FROM sales s WHERE s.customer_id = c.id ORDER BY s.id),
	(SELECT COALESCE(SUM(s.grand_total), 0) FROM sales s WHERE s.customer_id = c.id),
	(SELECT COALESCE(SUM(p.amount), 0) FROM payments p WHERE p.customer_id = c.id),
	(SELECT COALESCE(SUM(fd.disbursed_amount), 0) FROM finance_disbursements fd
		JOIN sales s ON s.id = fd.sale_id WHERE s.customer_id = c.id AND s.payment_mode = 'Finance'),
	(SELECT COALESCE(SUM(cp.amount), 0) FROM credit_promises cp WHERE cp.customer_id = c.id AND cp.status = 'PENDING'),
	(SELECT MIN(cp.promise_date) FROM credit_promises cp WHERE cp.customer_id = c.id AND cp.status = 'PENDING')
FROM customers c
WHERE EXISTS (SELECT 1 FROM sales s WHERE s.customer_id = c.id)`)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []DueRow
	for rows.Next() {
		var d DueRow
		if err := rows.Scan(&d.CustomerID, &d.CustomerName, &d.Mobile, &d.ChassisNos, &d.TotalDebit, &d.TotalPaid,
			&d.FinanceCover, &d.Credit, &d.PromiseDate); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListPromises returns a customer's promises, newest first.
func (r *Repository) ListPromises(ctx context.Context, customerID int64) ([]Promise, error) {
	rows, err := r.pool.Query(ctx, `SELECT cp.id, cp.sale_id, cp.customer_id, s.chassis_no, cp.amount, cp.promise_date, cp.note,
cp.approver_id, cp.approver_name, cp.status, cp.created_at
FROM credit_promises cp JOIN sales s ON s.id = cp.sale_id
WHERE cp.customer_id = $1 ORDER BY cp.created_at DESC, cp.id DESC`, customerID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []Promise
	for rows.Next() {
		var (
			p      Promise
			status string
		)
		if err := rows.Scan(&p.ID, &p.SaleID, &p.CustomerID, &p.ChassisNo, &p.Amount, &p.PromiseDate, &p.Note,
			&p.ApproverID, &p.ApproverName, &status, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Status = PromiseStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecoveryHistory returns a customer's follow-ups, newest first.
func (r *Repository) RecoveryHistory(ctx context.Context, customerID int64) ([]RecoveryLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, sale_id, action_type, response, next_date, logged_by, created_at
FROM recovery_logs WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []RecoveryLog
	for rows.Next() {
		var l RecoveryLog
		if err := rows.Scan(&l.ID, &l.CustomerID, &l.SaleID, &l.ActionType, &l.Response, &l.NextDate, &l.LoggedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *txRepo) LockSale(ctx context.Context, chassisNo string) (SaleInfo, error) {
	var (
		s      SaleInfo
		status string
	)
	err := t.tx.QueryRow(ctx, `SELECT id, customer_id, chassis_no, status FROM sales WHERE chassis_no = $1 FOR UPDATE`, chassisNo).
		Scan(&s.ID, &s.CustomerID, &s.ChassisNo, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return SaleInfo{}, shared.NotFound("sale", chassisNo)
	}
	s.Delivered = status == "DELIVERED"
	return s, err
}

func (t *txRepo) InsertPromise(ctx context.Context, p Promise) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO credit_promises (sale_id, customer_id, amount, promise_date, note, approver_id, approver_name, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'PENDING') RETURNING id`,
		p.SaleID, p.CustomerID, p.Amount, p.PromiseDate, p.Note, p.ApproverID, p.ApproverName).Scan(&id)
	return id, err
}

func (t *txRepo) StampSale(ctx context.Context, saleID int64, promiseDate time.Time, note string) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales SET promise_date = $2, promise_note = $3 WHERE id = $1`, saleID, promiseDate, note)
	return err
}

func (t *txRepo) LedgerInputs(ctx context.Context, customerID int64) (ledger.Inputs, error) {
	return ledger.LoadInputs(ctx, t.tx, customerID)
}

func (t *txRepo) FulfilPending(ctx context.Context, customerID int64) (int, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE credit_promises SET status = 'FULFILLED' WHERE customer_id = $1 AND status = 'PENDING'`, customerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (t *txRepo) InsertRecoveryLog(ctx context.Context, l RecoveryLog) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO recovery_logs (customer_id, sale_id, action_type, response, next_date, logged_by)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		l.CustomerID, l.SaleID, l.ActionType, l.Response, l.NextDate, l.LoggedBy).Scan(&id)
	return id, err
}

// ReschedulePending moves pending promises, and the date stamped on their
// sales, to next. A nil saleID reschedules every sale of the customer.
func (t *txRepo) ReschedulePending(ctx context.Context, customerID int64, saleID *int64, next time.Time) error {
	if _, err := t.tx.Exec(ctx, `UPDATE sales SET promise_date = $3
WHERE id IN (SELECT sale_id FROM credit_promises
	WHERE customer_id = $1 AND status = 'PENDING' AND ($2::bigint IS NULL OR sale_id = $2))`, customerID, saleID, next); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `UPDATE credit_promises SET promise_date = $3
WHERE customer_id = $1 AND status = 'PENDING' AND ($2::bigint IS NULL OR sale_id = $2)`, customerID, saleID, next)
	return err
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return t.audit.Record(ctx, t.tx, log)
}
