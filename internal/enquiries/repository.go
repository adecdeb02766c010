package enquiries

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showroom-dms/showroom/internal/customers"
	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Repository persists enquiries and their logs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	Insert(ctx context.Context, e Enquiry) (int64, error)
	Lock(ctx context.Context, id int64) (Enquiry, error)
	Save(ctx context.Context, e Enquiry) error
	InsertLog(ctx context.Context, l LogEntry) (int64, error)
	ResolveCustomer(ctx context.Context, who customers.Identity, createdBy string) (customers.Ref, error)
	InsertToken(ctx context.Context, p ledger.Payment) (int64, error)
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

const enquiryColumns = `id, customer_name, mobile, model, color, source, temperature, finance_intent, down_payment,
exchange_intent, exchange_model, exchange_year, exchange_value, next_follow_up, status, lost_reason, customer_id,
remarks, booked_at, created_by, assigned_to, created_at`

func scanEnquiry(row pgx.Row) (Enquiry, error) {
	var (
		e           Enquiry
		temperature string
		status      string
	)
	err := row.Scan(&e.ID, &e.CustomerName, &e.Mobile, &e.Model, &e.Color, &e.Source, &temperature, &e.IsFinance,
		&e.DownPayment, &e.IsExchange, &e.ExchangeModel, &e.ExchangeYear, &e.ExchangeValue, &e.NextFollowUp, &status,
		&e.LostReason, &e.CustomerID, &e.Remarks, &e.BookedAt, &e.CreatedBy, &e.AssignedTo, &e.CreatedAt)
	e.Temperature = Temperature(temperature)
	e.Status = Status(status)
	return e, err
}

// Get loads an enquiry.
func (r *Repository) Get(ctx context.Context, id int64) (Enquiry, error) {
	e, err := scanEnquiry(r.pool.QueryRow(ctx, `SELECT `+enquiryColumns+` FROM enquiries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Enquiry{}, shared.NotFound("enquiry", id)
	}
	return e, db.Classify(err)
}

// List returns enquiries grouped by status with the nearest follow-up first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Enquiry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+enquiryColumns+` FROM enquiries
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR customer_name ILIKE '%' || $2 || '%' OR mobile LIKE $2 || '%' OR model ILIKE '%' || $2 || '%')
ORDER BY CASE status WHEN 'OPEN' THEN 0 WHEN 'BOOKED' THEN 1 WHEN 'CONVERTED' THEN 2 ELSE 3 END,
	next_follow_up ASC NULLS LAST, id DESC`, string(filter.Status), filter.Search)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []Enquiry
	for rows.Next() {
		e, err := scanEnquiry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListLogs returns an enquiry's timeline, newest first.
func (r *Repository) ListLogs(ctx context.Context, enquiryID int64) ([]LogEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, enquiry_id, actor_name, action, remarks, previous_follow_up, new_follow_up, created_at
FROM enquiry_logs WHERE enquiry_id = $1 ORDER BY created_at DESC, id DESC`, enquiryID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []LogEntry
	for rows.Next() {
		var (
			l      LogEntry
			action string
		)
		if err := rows.Scan(&l.ID, &l.EnquiryID, &l.ActorName, &action, &l.Remarks, &l.PreviousFollowUp, &l.NewFollowUp, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Action = Action(action)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Stats counts open enquiries by temperature and lost ones by reason.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{OpenByTemperature: []Count{}, LostByReason: []Count{}}
	var err error
	stats.OpenByTemperature, err = r.counts(ctx, `SELECT temperature, COUNT(*) FROM enquiries
WHERE status = 'OPEN' GROUP BY temperature ORDER BY temperature`)
	if err != nil {
		return stats, err
	}
	stats.LostByReason, err = r.counts(ctx, `SELECT lost_reason, COUNT(*) FROM enquiries
WHERE status = 'LOST' GROUP BY lost_reason ORDER BY COUNT(*) DESC, lost_reason`)
	return stats, err
}

func (r *Repository) counts(ctx context.Context, query string) ([]Count, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *txRepo) Insert(ctx context.Context, e Enquiry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO enquiries (customer_name, mobile, model, color, source, temperature,
finance_intent, down_payment, exchange_intent, exchange_model, exchange_year, exchange_value, next_follow_up,
status, remarks, created_by, assigned_to)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'OPEN', $14, $15, $16)
RETURNING id`,
		e.CustomerName, e.Mobile, e.Model, e.Color, e.Source, string(e.Temperature), e.IsFinance, e.DownPayment,
		e.IsExchange, e.ExchangeModel, e.ExchangeYear, e.ExchangeValue, e.NextFollowUp, e.Remarks, e.CreatedBy,
		e.AssignedTo).Scan(&id)
	return id, err
}

func (t *txRepo) Lock(ctx context.Context, id int64) (Enquiry, error) {
	e, err := scanEnquiry(t.tx.QueryRow(ctx, `SELECT `+enquiryColumns+` FROM enquiries WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Enquiry{}, shared.NotFound("enquiry", id)
	}
	return e, err
}

func (t *txRepo) Save(ctx context.Context, e Enquiry) error {
	tag, err := t.tx.Exec(ctx, `UPDATE enquiries SET model = $2, color = $3, temperature = $4, finance_intent = $5,
exchange_intent = $6, next_follow_up = $7, status = $8, lost_reason = $9, customer_id = $10, remarks = $11,
booked_at = $12
WHERE id = $1`,
		e.ID, e.Model, e.Color, string(e.Temperature), e.IsFinance, e.IsExchange, e.NextFollowUp, string(e.Status),
		e.LostReason, e.CustomerID, e.Remarks, e.BookedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("enquiry", e.ID)
	}
	return nil
}

func (t *txRepo) InsertLog(ctx context.Context, l LogEntry) (int64, error) {
	return insertLog(ctx, t.tx, l)
}

func (t *txRepo) ResolveCustomer(ctx context.Context, who customers.Identity, createdBy string) (customers.Ref, error) {
	return customers.ResolveOrCreate(ctx, t.tx, who, createdBy)
}

func (t *txRepo) InsertToken(ctx context.Context, p ledger.Payment) (int64, error) {
	return ledger.InsertPayment(ctx, t.tx, p)
}

func insertLog(ctx context.Context, q db.Querier, l LogEntry) (int64, error) {
	at := l.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO enquiry_logs (enquiry_id, actor_name, action, remarks, previous_follow_up, new_follow_up, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		l.EnquiryID, l.ActorName, string(l.Action), l.Remarks, l.PreviousFollowUp, l.NewFollowUp, at).Scan(&id)
	return id, err
}

// ConvertForCustomer moves the customer's booked enquiries to Converted and
// logs the change. It runs inside the gate-pass transaction through q and
// returns the number of enquiries converted.
func ConvertForCustomer(ctx context.Context, q db.Querier, customerID int64, actorName, gatePassID string) (int, error) {
	rows, err := q.Query(ctx, `UPDATE enquiries SET status = 'CONVERTED'
WHERE customer_id = $1 AND status = 'BOOKED' RETURNING id, next_follow_up`, customerID)
	if err != nil {
		return 0, err
	}
	type converted struct {
		id       int64
		followUp *time.Time
	}
	var ids []converted
	for rows.Next() {
		var c converted
		if err := rows.Scan(&c.id, &c.followUp); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	now := time.Now()
	for _, c := range ids {
		_, err := insertLog(ctx, q, LogEntry{
			EnquiryID:        c.id,
			ActorName:        actorName,
			Action:           ActionStatusChange,
			Remarks:          "Status changed to Converted. Gate pass " + gatePassID,
			PreviousFollowUp: c.followUp,
			NewFollowUp:      c.followUp,
			CreatedAt:        now,
		})
		if err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
