package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	InsertVehicle(ctx context.Context, v Vehicle, createdBy string) (int64, error)
	InsertBattery(ctx context.Context, b Battery) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const vehicleColumns = `id, chassis_no, engine_no, model_variant, color, key_no, purchase_date, purchase_price,
purchase_discount, supplier, warehouse, status, created_at`

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var (
		v      Vehicle
		status string
	)
	err := row.Scan(&v.ID, &v.ChassisNo, &v.EngineNo, &v.ModelVariant, &v.Color, &v.KeyNo, &v.PurchaseDate,
		&v.PurchasePrice, &v.PurchaseDiscount, &v.Supplier, &v.Warehouse, &status, &v.CreatedAt)
	v.Status = StockStatus(status)
	return v, err
}

// ListVehicles returns vehicles newest purchase first. An empty status lists all.
func (r *Repository) ListVehicles(ctx context.Context, status StockStatus) ([]Vehicle, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vehicleColumns+` FROM vehicles
WHERE $1 = '' OR status = $1 ORDER BY purchase_date DESC, id DESC`, string(status))
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetVehicle loads a vehicle and its sale, if any.
func (r *Repository) GetVehicle(ctx context.Context, chassisNo string) (VehicleDetail, error) {
	v, err := scanVehicle(r.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE chassis_no = $1`, chassisNo))
	if errors.Is(err, pgx.ErrNoRows) {
		return VehicleDetail{}, shared.NotFound("vehicle", chassisNo)
	}
	if err != nil {
		return VehicleDetail{}, db.Classify(err)
	}
	detail := VehicleDetail{Stock: v}
	var s SaleSummary
	err = r.pool.QueryRow(ctx, `SELECT id, customer_id, customer_name, sale_date, status, COALESCE(gate_pass_id, ''), grand_total
FROM sales WHERE chassis_no = $1`, chassisNo).Scan(&s.SaleID, &s.CustomerID, &s.CustomerName, &s.SaleDate, &s.Status, &s.GatePassID, &s.GrandTotal)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return VehicleDetail{}, db.Classify(err)
	default:
		detail.Sale = &s
	}
	return detail, nil
}

// ListBatteries returns batteries in FIFO order (oldest inward first).
func (r *Repository) ListBatteries(ctx context.Context, status StockStatus) ([]Battery, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, serial_no, battery_type, inward_date, status FROM batteries
WHERE $1 = '' OR status = $1 ORDER BY inward_date ASC, id ASC`, string(status))
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []Battery
	for rows.Next() {
		var (
			b      Battery
			status string
		)
		if err := rows.Scan(&b.ID, &b.SerialNo, &b.Type, &b.InwardDate, &status); err != nil {
			return nil, err
		}
		b.Status = StockStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBattery edits a battery's type and status.
func (r *Repository) UpdateBattery(ctx context.Context, serialNo, batteryType string, status StockStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE batteries SET battery_type = $2, status = $3 WHERE serial_no = $1`, serialNo, batteryType, string(status))
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("battery", serialNo)
	}
	return nil
}

func (t *txRepo) InsertVehicle(ctx context.Context, v Vehicle, createdBy string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO vehicles (chassis_no, engine_no, model_variant, color, key_no, purchase_date,
purchase_price, purchase_discount, supplier, warehouse, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'IN_STOCK', $11) RETURNING id`,
		v.ChassisNo, v.EngineNo, v.ModelVariant, v.Color, v.KeyNo, v.PurchaseDate, v.PurchasePrice, v.PurchaseDiscount,
		v.Supplier, v.Warehouse, createdBy).Scan(&id)
	return id, err
}

func (t *txRepo) InsertBattery(ctx context.Context, b Battery) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO batteries (serial_no, battery_type, inward_date, status)
VALUES ($1, $2, $3, 'IN_STOCK') RETURNING id`, b.SerialNo, b.Type, b.InwardDate).Scan(&id)
	return id, err
}

// MarkVehicleSold moves a vehicle from IN_STOCK to SOLD. The conditional
// update lets exactly one of two concurrent sales win.
func MarkVehicleSold(ctx context.Context, q db.Querier, chassisNo string) error {
	return transition(ctx, q, "vehicles", "chassis_no", "vehicle", chassisNo, StatusInStock, StatusSold)
}

// MarkVehicleStockOut moves a sold vehicle out of stock at gate-pass time.
func MarkVehicleStockOut(ctx context.Context, q db.Querier, chassisNo string) error {
	return transition(ctx, q, "vehicles", "chassis_no", "vehicle", chassisNo, StatusSold, StatusStockOut)
}

// MarkBatterySold moves a battery from IN_STOCK to SOLD.
func MarkBatterySold(ctx context.Context, q db.Querier, serialNo string) error {
	return transition(ctx, q, "batteries", "serial_no", "battery", serialNo, StatusInStock, StatusSold)
}

// transition only receives table and column names from the constants above.
func transition(ctx context.Context, q db.Querier, table, keyColumn, entity, key string, from, to StockStatus) error {
	tag, err := q.Exec(ctx, `UPDATE `+table+` SET status = $2 WHERE `+keyColumn+` = $1 AND status = $3`, key, string(to), string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var current string
	err = q.QueryRow(ctx, `SELECT status FROM `+table+` WHERE `+keyColumn+` = $1`, key).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFound(entity, key)
	}
	if err != nil {
		return err
	}
	return shared.Conflict("%s %s is %s, expected %s", entity, key, StockStatus(current).Label(), from.Label())
}
