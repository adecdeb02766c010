package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showroom-dms/showroom/internal/platform/db"
)

// Repository reads dashboard figures from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Counters totals sales, stock, open leads and pending credit promises.
func (r *Repository) Counters(ctx context.Context) (Counters, error) {
	var c Counters
	err := r.pool.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM sales),
	(SELECT COALESCE(SUM(grand_total), 0) FROM sales),
	(SELECT COUNT(*) FROM vehicles WHERE status = 'IN_STOCK'),
	(SELECT COUNT(*) FROM enquiries WHERE status = 'OPEN'),
	(SELECT COUNT(*) FROM credit_promises WHERE status = 'PENDING'),
	(SELECT COALESCE(SUM(amount), 0) FROM credit_promises WHERE status = 'PENDING')`).
		Scan(&c.SalesCount, &c.Revenue, &c.StockCount, &c.OpenLeads, &c.PendingDueCount, &c.PendingDueAmount)
	if err != nil {
		return Counters{}, db.Classify(err)
	}
	return c, nil
}

// RecentSales returns the latest sales with their model variant.
func (r *Repository) RecentSales(ctx context.Context, limit int) ([]RecentSale, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.sale_date, s.customer_name, s.chassis_no, COALESCE(v.model_variant, ''), s.grand_total
FROM sales s LEFT JOIN vehicles v ON v.chassis_no = s.chassis_no
ORDER BY s.sale_date DESC, s.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	out := []RecentSale{}
	for rows.Next() {
		var s RecentSale
		if err := rows.Scan(&s.SaleDate, &s.CustomerName, &s.ChassisNo, &s.ModelVariant, &s.GrandTotal); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
