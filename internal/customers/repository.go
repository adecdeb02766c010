package customers

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Repository persists customers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	Insert(ctx context.Context, c Customer) (int64, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, id int64) error
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

const customerColumns = `c.id, c.name, c.father_name, c.mobile, c.alt_mobile, c.email, c.dob, c.address, c.post,
c.tehsil, c.district, c.pincode, c.nominee_name, c.nominee_age, c.nominee_relation, c.driving_license,
c.aadhar_no, c.pan_no, c.photo_path, c.aadhar_path, c.pan_path, c.consent, c.created_by, c.created_at`

const statusExpr = `CASE
	WHEN EXISTS (SELECT 1 FROM sales s WHERE s.customer_id = c.id) THEN 'Sold'
	WHEN EXISTS (SELECT 1 FROM enquiries e WHERE e.customer_id = c.id AND e.status = 'BOOKED') THEN 'Booked'
	ELSE 'New' END`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.FatherName, &c.Mobile, &c.AltMobile, &c.Email, &c.DOB, &c.Address, &c.Post,
		&c.Tehsil, &c.District, &c.Pincode, &c.NomineeName, &c.NomineeAge, &c.NomineeRelation, &c.DrivingLicense,
		&c.AadharNo, &c.PANNo, &c.PhotoPath, &c.AadharPath, &c.PANPath, &c.Consent, &c.CreatedBy, &c.CreatedAt, &c.Status)
	return c, err
}

// Get loads a customer with its derived status.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+`, `+statusExpr+` FROM customers c WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.NotFound("customer", id)
	}
	return c, db.Classify(err)
}

// List returns customers newest first, optionally filtered by name or mobile.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+`, `+statusExpr+` FROM customers c
WHERE $1 = '' OR c.name ILIKE '%' || $1 || '%' OR c.mobile LIKE $1 || '%'
ORDER BY c.created_at DESC, c.id DESC LIMIT $2 OFFSET $3`, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// JourneySources loads every record contributing to a customer's timeline.
func (r *Repository) JourneySources(ctx context.Context, id int64) (JourneySources, error) {
	var src JourneySources

	rows, err := r.pool.Query(ctx, `SELECT created_at, model, status, booked_at FROM enquiries WHERE customer_id = $1`, id)
	if err != nil {
		return src, db.Classify(err)
	}
	for rows.Next() {
		var e EnquiryRecord
		if err := rows.Scan(&e.CreatedAt, &e.Model, &e.Status, &e.BookedAt); err != nil {
			rows.Close()
			return src, err
		}
		src.Enquiries = append(src.Enquiries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return src, err
	}

	rows, err = r.pool.Query(ctx, `SELECT sale_date, chassis_no, COALESCE(gate_pass_id, ''), gate_pass_date, policy_no, insurer,
policy_date, hsrp_status, registration_no, rto_date FROM sales WHERE customer_id = $1`, id)
	if err != nil {
		return src, db.Classify(err)
	}
	for rows.Next() {
		var s SaleRecord
		if err := rows.Scan(&s.Date, &s.ChassisNo, &s.GatePassID, &s.GatePassDate, &s.PolicyNo, &s.Insurer,
			&s.PolicyDate, &s.HSRPStatus, &s.RegistrationNo, &s.RTODate); err != nil {
			rows.Close()
			return src, err
		}
		src.Sales = append(src.Sales, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return src, err
	}

	rows, err = r.pool.Query(ctx, `SELECT paid_on, amount, mode, kind FROM payments WHERE customer_id = $1`, id)
	if err != nil {
		return src, db.Classify(err)
	}
	for rows.Next() {
		var p PaymentRecord
		if err := rows.Scan(&p.PaidOn, &p.Amount, &p.Mode, &p.Kind); err != nil {
			rows.Close()
			return src, err
		}
		src.Payments = append(src.Payments, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return src, err
	}

	rows, err = r.pool.Query(ctx, `SELECT created_at, action_type, response FROM recovery_logs WHERE customer_id = $1`, id)
	if err != nil {
		return src, db.Classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var l RecoveryRecord
		if err := rows.Scan(&l.At, &l.Action, &l.Response); err != nil {
			return src, err
		}
		src.Recovery = append(src.Recovery, l)
	}
	return src, rows.Err()
}

func (t *txRepo) Insert(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO customers (name, father_name, mobile, alt_mobile, email, dob, address, post, tehsil,
district, pincode, nominee_name, nominee_age, nominee_relation, driving_license, aadhar_no, pan_no, photo_path,
aadhar_path, pan_path, consent, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
RETURNING id`,
		c.Name, c.FatherName, c.Mobile, c.AltMobile, c.Email, c.DOB, c.Address, c.Post, c.Tehsil,
		c.District, c.Pincode, c.NomineeName, c.NomineeAge, c.NomineeRelation, c.DrivingLicense, c.AadharNo, c.PANNo,
		c.PhotoPath, c.AadharPath, c.PANPath, c.Consent, c.CreatedBy).Scan(&id)
	return id, err
}

// Update keeps existing document paths when the new value is empty.
func (t *txRepo) Update(ctx context.Context, c Customer) error {
	tag, err := t.tx.Exec(ctx, `UPDATE customers SET name = $2, father_name = $3, mobile = $4, alt_mobile = $5, email = $6,
dob = $7, address = $8, post = $9, tehsil = $10, district = $11, pincode = $12, nominee_name = $13, nominee_age = $14,
nominee_relation = $15, driving_license = $16, aadhar_no = $17, pan_no = $18,
photo_path = COALESCE(NULLIF($19, ''), photo_path), aadhar_path = COALESCE(NULLIF($20, ''), aadhar_path),
pan_path = COALESCE(NULLIF($21, ''), pan_path), consent = $22
WHERE id = $1`,
		c.ID, c.Name, c.FatherName, c.Mobile, c.AltMobile, c.Email, c.DOB, c.Address, c.Post, c.Tehsil, c.District,
		c.Pincode, c.NomineeName, c.NomineeAge, c.NomineeRelation, c.DrivingLicense, c.AadharNo, c.PANNo,
		c.PhotoPath, c.AadharPath, c.PANPath, c.Consent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("customer", c.ID)
	}
	return nil
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("customer", id)
	}
	return nil
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return t.audit.Record(ctx, t.tx, log)
}

// ResolveOrCreate returns the customer for a booking or sale, creating it by
// mobile number when it does not exist. The unique mobile index makes
// concurrent creation converge on one row.
func ResolveOrCreate(ctx context.Context, q db.Querier, who Identity, createdBy string) (Ref, error) {
	if who.ID > 0 {
		var ref Ref
		err := q.QueryRow(ctx, `SELECT id, name, mobile FROM customers WHERE id = $1`, who.ID).Scan(&ref.ID, &ref.Name, &ref.Mobile)
		if errors.Is(err, pgx.ErrNoRows) {
			return Ref{}, shared.NotFound("customer", who.ID)
		}
		return ref, db.Classify(err)
	}
	mobile, name, err := normaliseIdentity(who)
	if err != nil {
		return Ref{}, err
	}
	var ref Ref
	err = q.QueryRow(ctx, `INSERT INTO customers (name, mobile, email, address, created_by)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (mobile) DO UPDATE SET mobile = EXCLUDED.mobile
RETURNING id, name, mobile, (xmax = 0)`, name, mobile, who.Email, who.Address, createdBy).Scan(&ref.ID, &ref.Name, &ref.Mobile, &ref.Created)
	return ref, db.Classify(err)
}

func normaliseIdentity(who Identity) (mobile, name string, err error) {
	mobile = shared.NormalizeMobile(who.Mobile)
	if len(mobile) != 10 {
		return "", "", shared.Invalid("mobile", "must be a 10 digit mobile number")
	}
	name = shared.TitleCase(who.Name)
	if name == "" {
		return "", "", shared.Invalid("name", "is required")
	}
	return mobile, name, nil
}

// EntityID formats a customer id for audit records.
func EntityID(id int64) string {
	return strconv.FormatInt(id, 10)
}
