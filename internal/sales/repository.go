package sales

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showroom-dms/showroom/internal/customers"
	"github.com/showroom-dms/showroom/internal/inventory"
	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Repository persists sale records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes of one sale creation.
type TxRepository interface {
	ResolveCustomer(ctx context.Context, who customers.Identity, createdBy string) (customers.Ref, error)
	InsertSale(ctx context.Context, s Sale) (int64, error)
	InsertExchange(ctx context.Context, x ExchangeIntake) (int64, error)
	MarkVehicleSold(ctx context.Context, chassisNo string) error
	MarkBatterySold(ctx context.Context, serialNo string) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type txRepo struct {
	tx    pgx.Tx
	audit *shared.AuditLogger
}

// WithTx executes the callback inside a read-committed transaction. The
// conditional stock updates re-read a row changed by a concurrent commit, so
// the losing sale sees zero rows and fails with Conflict instead of a
// serialization error.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, audit: shared.NewAuditLogger()})
	})
}

const saleColumns = `s.id, s.sale_date, s.customer_id, s.customer_name, s.chassis_no, COALESCE(v.model_variant, ''),
COALESCE(v.color, ''), COALESCE(s.battery_serial, ''), s.base_price, s.rto, s.insurance, s.accessories,
s.extended_warranty, s.temp_registration, s.documentation, s.other_charges, s.hypothecation, s.discount,
s.exchange_value, s.offer_name, s.offer_amount, s.grand_total, s.payment_mode, s.financer, s.status,
COALESCE(s.gate_pass_id, ''), s.gate_pass_date, s.promise_date, s.promise_note, s.invoice_no, s.invoice_date,
s.policy_no, s.insurer, s.insurance_amount, s.policy_date, s.policy_expiry, s.registration_no, s.rto_date,
s.rto_cost, s.hsrp_status, s.invoice_path, s.insurance_path, s.rto_path, s.created_by, s.created_at`

const saleFrom = ` FROM sales s LEFT JOIN vehicles v ON v.chassis_no = s.chassis_no`

func scanSale(row pgx.Row) (Sale, error) {
	var (
		s          Sale
		mode, hsrp string
		status     string
	)
	c := &s.Charges
	k := &s.Compliance
	err := row.Scan(&s.ID, &s.SaleDate, &s.CustomerID, &s.CustomerName, &s.ChassisNo, &s.ModelVariant,
		&s.Color, &s.BatterySerial, &c.BasePrice, &c.RTO, &c.Insurance, &c.Accessories,
		&c.ExtendedWarranty, &c.TempRegistration, &c.Documentation, &c.OtherCharges, &c.Hypothecation, &c.Discount,
		&c.ExchangeValue, &c.OfferName, &c.OfferAmount, &s.GrandTotal, &mode, &s.Financer, &status,
		&s.GatePassID, &s.GatePassDate, &s.PromiseDate, &s.PromiseNote, &k.InvoiceNo, &k.InvoiceDate,
		&k.PolicyNo, &k.Insurer, &k.InsuranceAmount, &k.PolicyDate, &k.PolicyExpiry, &k.RegistrationNo, &k.RTODate,
		&k.RTOCost, &hsrp, &s.InvoicePath, &s.InsurancePath, &s.RTOPath, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		return Sale{}, err
	}
	s.PaymentMode = ledger.PaymentMode(mode)
	s.Status = Status(status)
	k.HSRPStatus = HSRPStatus(hsrp)
	return s, nil
}

// Get loads a sale by chassis number.
func (r *Repository) Get(ctx context.Context, chassisNo string) (Sale, error) {
	s, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+saleFrom+` WHERE s.chassis_no = $1`, chassisNo))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, shared.NotFound("sale", chassisNo)
	}
	return s, db.Classify(err)
}

// List returns sales, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "s.status = $1")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, "(s.customer_name ILIKE $"+strconv.Itoa(n)+" OR s.chassis_no ILIKE $"+strconv.Itoa(n)+")")
	}
	query := `SELECT ` + saleColumns + saleFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY s.sale_date DESC, s.id DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ModelCharges loads the default charges of a model variant.
func (r *Repository) ModelCharges(ctx context.Context, modelVariant string) (ModelCharges, error) {
	var m ModelCharges
	err := r.pool.QueryRow(ctx, `SELECT model_variant, ex_showroom, rto, insurance, accessories, extended_warranty,
temp_registration, documentation FROM vehicle_models WHERE model_variant = $1`, modelVariant).Scan(
		&m.ModelVariant, &m.ExShowroom, &m.RTO, &m.Insurance, &m.Accessories, &m.ExtendedWarranty,
		&m.TempRegistration, &m.Documentation)
	if errors.Is(err, pgx.ErrNoRows) {
		return ModelCharges{}, shared.NotFound("vehicle model", modelVariant)
	}
	return m, db.Classify(err)
}

// UpdateCompliance overwrites the compliance fields of a sale.
func (r *Repository) UpdateCompliance(ctx context.Context, chassisNo string, c Compliance) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sales SET invoice_no = $2, invoice_date = $3, policy_no = $4, insurer = $5,
insurance_amount = $6, policy_date = $7, policy_expiry = $8, registration_no = $9, rto_date = $10, rto_cost = $11,
hsrp_status = $12 WHERE chassis_no = $1`, chassisNo, c.InvoiceNo, c.InvoiceDate, c.PolicyNo, c.Insurer,
		c.InsuranceAmount, c.PolicyDate, c.PolicyExpiry, c.RegistrationNo, c.RTODate, c.RTOCost, string(c.HSRPStatus))
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("sale", chassisNo)
	}
	return nil
}

// AttachDocument stores a document path in the column fixed by its type.
func (r *Repository) AttachDocument(ctx context.Context, chassisNo string, doc DocType, path string) error {
	column := doc.column()
	if column == "" {
		return ErrUnknownDocType
	}
	tag, err := r.pool.Exec(ctx, `UPDATE sales SET `+column+` = $2 WHERE chassis_no = $1`, chassisNo, path)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("sale", chassisNo)
	}
	return nil
}

func (t *txRepo) ResolveCustomer(ctx context.Context, who customers.Identity, createdBy string) (customers.Ref, error) {
	return customers.ResolveOrCreate(ctx, t.tx, who, createdBy)
}

func (t *txRepo) InsertSale(ctx context.Context, s Sale) (int64, error) {
	c := s.Charges
	var battery *string
	if s.BatterySerial != "" {
		battery = &s.BatterySerial
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (sale_date, customer_id, customer_name, chassis_no, battery_serial,
base_price, rto, insurance, accessories, extended_warranty, temp_registration, documentation, other_charges,
hypothecation, discount, exchange_value, offer_name, offer_amount, grand_total, payment_mode, financer, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
RETURNING id`, s.SaleDate, s.CustomerID, s.CustomerName, s.ChassisNo, battery,
		c.BasePrice, c.RTO, c.Insurance, c.Accessories, c.ExtendedWarranty, c.TempRegistration, c.Documentation, c.OtherCharges,
		c.Hypothecation, c.Discount, c.ExchangeValue, c.OfferName, c.OfferAmount, s.GrandTotal, string(s.PaymentMode),
		s.Financer, string(StatusBooked), s.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepo) InsertExchange(ctx context.Context, x ExchangeIntake) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO exchange_intakes (sale_id, chassis_no, old_model, old_reg_no, old_engine_no,
old_chassis_no, exchange_value, received_on) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		x.SaleID, x.ChassisNo, x.Exchange.OldModel, x.Exchange.OldRegNo, x.Exchange.OldEngineNo, x.Exchange.OldChassisNo,
		x.Value, x.ReceivedOn).Scan(&id)
	return id, err
}

func (t *txRepo) MarkVehicleSold(ctx context.Context, chassisNo string) error {
	return inventory.MarkVehicleSold(ctx, t.tx, chassisNo)
}

func (t *txRepo) MarkBatterySold(ctx context.Context, serialNo string) error {
	return inventory.MarkBatterySold(ctx, t.tx, serialNo)
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return t.audit.Record(ctx, t.tx, log)
}
