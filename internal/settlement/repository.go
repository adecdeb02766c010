package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showroom-dms/showroom/internal/enquiries"
	"github.com/showroom-dms/showroom/internal/inventory"
	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Repository reads and transitions sales for gate-pass issuance.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes of one gate-pass issuance.
type TxRepository interface {
	LockSale(ctx context.Context, chassisNo string) (SaleState, error)
	LedgerInputs(ctx context.Context, customerID int64) (ledger.Inputs, error)
	MarkDelivered(ctx context.Context, saleID int64, gatePassID string, at time.Time) error
	MarkVehicleStockOut(ctx context.Context, chassisNo string) error
	ConvertEnquiries(ctx context.Context, customerID int64, actorName, gatePassID string) (int, error)
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type txRepo struct {
	tx    pgx.Tx
	audit *shared.AuditLogger
}

// issueIsoLevel is read committed so that a caller queued behind the sale's
// row lock re-reads the committed gate pass and reprints it, instead of
// failing with a serialization error.
const issueIsoLevel = pgx.ReadCommitted

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxIso(ctx, r.pool, issueIsoLevel, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, audit: shared.NewAuditLogger()})
	})
}

const saleStateQuery = `SELECT id, customer_id, customer_name, chassis_no, COALESCE(gate_pass_id, ''), gate_pass_date
FROM sales WHERE chassis_no = $1`

func scanSaleState(row pgx.Row, chassisNo string) (SaleState, error) {
	var s SaleState
	err := row.Scan(&s.ID, &s.CustomerID, &s.CustomerName, &s.ChassisNo, &s.GatePassID, &s.GatePassDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return SaleState{}, shared.NotFound("sale", chassisNo)
	}
	return s, db.Classify(err)
}

// FindSale loads the sale without locking it.
func (r *Repository) FindSale(ctx context.Context, chassisNo string) (SaleState, error) {
	return scanSaleState(r.pool.QueryRow(ctx, saleStateQuery, chassisNo), chassisNo)
}

// LockSale holds the sale row until the transaction ends so concurrent
// issuances serialise and the second one sees the first gate pass.
func (t *txRepo) LockSale(ctx context.Context, chassisNo string) (SaleState, error) {
	return scanSaleState(t.tx.QueryRow(ctx, saleStateQuery+` FOR UPDATE`, chassisNo), chassisNo)
}

func (t *txRepo) LedgerInputs(ctx context.Context, customerID int64) (ledger.Inputs, error) {
	return ledger.LoadInputs(ctx, t.tx, customerID)
}

func (t *txRepo) MarkDelivered(ctx context.Context, saleID int64, gatePassID string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales SET status = 'DELIVERED', gate_pass_id = $2, gate_pass_date = $3
WHERE id = $1 AND gate_pass_id IS NULL`, saleID, gatePassID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.Conflict("sale %d already has a gate pass", saleID)
	}
	return nil
}

func (t *txRepo) MarkVehicleStockOut(ctx context.Context, chassisNo string) error {
	return inventory.MarkVehicleStockOut(ctx, t.tx, chassisNo)
}

func (t *txRepo) ConvertEnquiries(ctx context.Context, customerID int64, actorName, gatePassID string) (int, error) {
	return enquiries.ConvertForCustomer(ctx, t.tx, customerID, actorName, gatePassID)
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return t.audit.Record(ctx, t.tx, log)
}
