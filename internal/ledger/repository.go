package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Repository persists payments and disbursements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LookupSale(ctx context.Context, chassisNo string) (SaleRef, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	UpsertFinance(ctx context.Context, rec FinanceRecord) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Inputs loads the ledger figures of a customer.
func (r *Repository) Inputs(ctx context.Context, customerID int64) (Inputs, error) {
	return LoadInputs(ctx, r.pool, customerID)
}

// SaleByChassis resolves a sale outside a transaction.
func (r *Repository) SaleByChassis(ctx context.Context, chassisNo string) (SaleRef, error) {
	return LookupSale(ctx, r.pool, chassisNo)
}

// ListPayments returns a customer's receipts, latest first.
func (r *Repository) ListPayments(ctx context.Context, customerID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, sale_id, amount, paid_on, mode, note, kind, created_by
FROM payments WHERE customer_id = $1 ORDER BY paid_on DESC, id DESC`, customerID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var (
			p    Payment
			kind string
		)
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.SaleID, &p.Amount, &p.PaidOn, &p.Mode, &p.Note, &kind, &p.CreatedBy); err != nil {
			return nil, err
		}
		p.Kind = PaymentKind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *txRepo) LookupSale(ctx context.Context, chassisNo string) (SaleRef, error) {
	return LookupSale(ctx, t.tx, chassisNo)
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	return InsertPayment(ctx, t.tx, p)
}

func (t *txRepo) UpsertFinance(ctx context.Context, rec FinanceRecord) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO finance_disbursements (sale_id, customer_id, financer, do_number, disbursed_amount, updated_by, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (sale_id) DO UPDATE SET financer = EXCLUDED.financer, do_number = EXCLUDED.do_number,
disbursed_amount = EXCLUDED.disbursed_amount, updated_by = EXCLUDED.updated_by, updated_at = NOW()`,
		rec.SaleID, rec.CustomerID, rec.Financer, rec.DONumber, rec.DisbursedAmount, rec.UpdatedBy)
	return err
}

// LoadInputs reads the ledger figures of a customer through q, which may be a
// pool or an open transaction.
func LoadInputs(ctx context.Context, q db.Querier, customerID int64) (Inputs, error) {
	in := Inputs{CustomerID: customerID}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customerID).Scan(&exists); err != nil {
		return in, db.Classify(err)
	}
	if !exists {
		return in, shared.NotFound("customer", customerID)
	}

	rows, err := q.Query(ctx, `SELECT s.id, s.chassis_no, s.grand_total, s.payment_mode, fd.disbursed_amount
FROM sales s LEFT JOIN finance_disbursements fd ON fd.sale_id = s.id
WHERE s.customer_id = $1 ORDER BY s.id`, customerID)
	if err != nil {
		return in, db.Classify(err)
	}
	for rows.Next() {
		var (
			sale      SaleCharge
			mode      string
			disbursed decimal.NullDecimal
		)
		if err := rows.Scan(&sale.SaleID, &sale.ChassisNo, &sale.GrandTotal, &mode, &disbursed); err != nil {
			rows.Close()
			return in, err
		}
		sale.Mode = PaymentMode(mode)
		if disbursed.Valid {
			amount := disbursed.Decimal
			sale.Disbursed = &amount
		}
		in.Sales = append(in.Sales, sale)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return in, db.Classify(err)
	}

	err = q.QueryRow(ctx, `SELECT
	(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE customer_id = $1),
	(SELECT COALESCE(SUM(amount), 0) FROM credit_promises WHERE customer_id = $1 AND status = 'PENDING')`,
		customerID).Scan(&in.TotalPaid, &in.CreditApproved)
	return in, db.Classify(err)
}

// LookupSale resolves a sale by chassis number through q.
func LookupSale(ctx context.Context, q db.Querier, chassisNo string) (SaleRef, error) {
	var (
		ref    SaleRef
		mode   string
		status string
	)
	err := q.QueryRow(ctx, `SELECT id, customer_id, chassis_no, payment_mode, status FROM sales WHERE chassis_no = $1`, chassisNo).
		Scan(&ref.ID, &ref.CustomerID, &ref.ChassisNo, &mode, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return SaleRef{}, shared.NotFound("sale", chassisNo)
	}
	if err != nil {
		return SaleRef{}, db.Classify(err)
	}
	ref.Mode = PaymentMode(mode)
	ref.Delivered = status == "DELIVERED"
	return ref, nil
}

// InsertPayment appends a receipt through q. Booking tokens use it inside the
// booking transaction.
func InsertPayment(ctx context.Context, q db.Querier, p Payment) (int64, error) {
	paidOn := p.PaidOn
	if paidOn.IsZero() {
		paidOn = time.Now()
	}
	kind := p.Kind
	if kind == "" {
		kind = KindPayment
	}
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO payments (customer_id, sale_id, amount, paid_on, mode, note, kind, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.CustomerID, p.SaleID, p.Amount, paidOn, p.Mode, p.Note, string(kind), p.CreatedBy).Scan(&id)
	return id, err
}
