package credit

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/observability"
	"github.com/showroom-dms/showroom/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	DueRows(ctx context.Context) ([]DueRow, error)
	ListPromises(ctx context.Context, customerID int64) ([]Promise, error)
	RecoveryHistory(ctx context.Context, customerID int64) ([]RecoveryLog, error)
}

// Service runs credit approvals and recovery follow-up.
type Service struct {
	repo      RepositoryPort
	tolerance decimal.Decimal
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. metrics may be nil.
func NewService(repo RepositoryPort, tolerance decimal.Decimal, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if !tolerance.IsPositive() {
		tolerance = shared.DefaultSettlementTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tolerance: tolerance, metrics: metrics, logger: logger, now: time.Now}
}

// ApproveCredit records a pending promise that counts towards the customer's
// coverage until it is fulfilled. It overrides the balance check of the gate
// pass without any money changing hands, so only Admin, Manager and Owner may
// call it.
func (s *Service) ApproveCredit(ctx context.Context, actor shared.Actor, req ApproveCreditRequest) (Promise, error) {
	if !actor.CanApproveCredit() {
		return Promise{}, shared.Forbidden("role %s cannot approve credit", actor.Role)
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Promise{}, err
	}
	if !req.Amount.IsPositive() {
		return Promise{}, shared.Invalid("amount", "must be greater than zero")
	}
	note := strings.TrimSpace(req.Note)
	if note == "" {
		return Promise{}, shared.Invalid("note", "condition note is required")
	}
	now := s.now()
	promiseDate, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.PromiseDate), now.Location())
	if err != nil {
		return Promise{}, shared.Invalid("promise_date", "must be YYYY-MM-DD")
	}
	if !promiseDate.After(now) {
		return Promise{}, shared.Invalid("promise_date", "must be in the future")
	}

	p := Promise{
		ChassisNo:    strings.ToUpper(strings.TrimSpace(req.ChassisNo)),
		Amount:       req.Amount,
		PromiseDate:  promiseDate,
		Note:         note,
		ApproverID:   actor.ID,
		ApproverName: actor.Name,
		Status:       StatusPending,
		CreatedAt:    now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.LockSale(ctx, p.ChassisNo)
		if err != nil {
			return err
		}
		if sale.Delivered {
			return shared.Conflict("sale %s already has a gate pass", p.ChassisNo)
		}
		p.SaleID = sale.ID
		p.CustomerID = sale.CustomerID
		id, err := tx.InsertPromise(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		if err := tx.StampSale(ctx, sale.ID, promiseDate, note); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   shared.AuditCreditApproved,
			Entity:   "sale",
			EntityID: p.ChassisNo,
			Meta: map[string]any{
				"amount":       p.Amount.String(),
				"promise_date": promiseDate.Format(dateLayout),
				"promise_id":   strconv.FormatInt(id, 10),
				"approver":     actor.Name,
			},
		})
	})
	if err != nil {
		return Promise{}, err
	}
	s.metrics.CreditApproved()
	s.logger.Info("credit approved", slog.String("chassis", p.ChassisNo), slog.String("amount", p.Amount.String()),
		slog.String("approver", actor.Name))
	return p, nil
}

// FulfilPromises closes the customer's pending promises once payments and
// disbursements alone bring the balance within tolerance. It returns the
// number of promises closed.
func (s *Service) FulfilPromises(ctx context.Context, customerID int64) (int, error) {
	var closed int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		in, err := tx.LedgerInputs(ctx, customerID)
		if err != nil {
			return err
		}
		summary := ledger.Aggregate(in, s.tolerance)
		if !summary.CreditApproved.IsPositive() || summary.CashBalance().GreaterThan(s.tolerance) {
			return nil
		}
		closed, err = tx.FulfilPending(ctx, customerID)
		return err
	})
	return closed, err
}

// PaymentRecorded lets the ledger settle promises after each receipt.
func (s *Service) PaymentRecorded(ctx context.Context, customerID int64) error {
	n, err := s.FulfilPromises(ctx, customerID)
	if err == nil && n > 0 {
		s.logger.Info("credit promises fulfilled", slog.Int64("customer_id", customerID), slog.Int("count", n))
	}
	return err
}

// ListDues returns customers whose balance, ignoring credit promises, exceeds
// the tolerance. Customers with the earliest promise come first.
func (s *Service) ListDues(ctx context.Context) ([]Due, error) {
	rows, err := s.repo.DueRows(ctx)
	if err != nil {
		return nil, err
	}
	return BuildDues(rows, s.tolerance, s.now()), nil
}

// BuildDues derives the recovery list from per-customer totals.
func BuildDues(rows []DueRow, tolerance decimal.Decimal, now time.Time) []Due {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	var out []Due
	for _, r := range rows {
		balance := r.TotalDebit.Sub(r.TotalPaid).Sub(r.FinanceCover)
		if balance.LessThanOrEqual(tolerance) {
			continue
		}
		due := Due{
			CustomerID:   r.CustomerID,
			CustomerName: r.CustomerName,
			Mobile:       r.Mobile,
			ChassisNos:   r.ChassisNos,
			Balance:      balance,
			Credit:       r.Credit,
			PromiseDate:  r.PromiseDate,
		}
		if r.PromiseDate != nil {
			py, pm, pd := r.PromiseDate.Date()
			due.Overdue = time.Date(py, pm, pd, 0, 0, 0, 0, now.Location()).Before(today)
		}
		out = append(out, due)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PromiseDate, out[j].PromiseDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].Balance.GreaterThan(out[j].Balance)
	})
	return out
}

// LogRecovery appends a follow-up. A next date moves the pending promises of
// the named sale, or of every sale of the customer when no chassis is given.
func (s *Service) LogRecovery(ctx context.Context, actor shared.Actor, req RecoveryLogRequest) (RecoveryLog, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return RecoveryLog{}, err
	}
	now := s.now()
	entry := RecoveryLog{
		CustomerID: req.CustomerID,
		ActionType: strings.TrimSpace(req.ActionType),
		Response:   strings.TrimSpace(req.Response),
		LoggedBy:   actor.Name,
		CreatedAt:  now,
	}
	if raw := strings.TrimSpace(req.NextDate); raw != "" {
		next, err := time.ParseInLocation(dateLayout, raw, now.Location())
		if err != nil {
			return RecoveryLog{}, shared.Invalid("next_date", "must be YYYY-MM-DD")
		}
		y, m, d := now.Date()
		if next.Before(time.Date(y, m, d, 0, 0, 0, 0, now.Location())) {
			return RecoveryLog{}, shared.Invalid("next_date", "must not be in the past")
		}
		entry.NextDate = &next
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LedgerInputs(ctx, req.CustomerID); err != nil {
			return err
		}
		if chassis := strings.ToUpper(strings.TrimSpace(req.ChassisNo)); chassis != "" {
			sale, err := tx.LockSale(ctx, chassis)
			if err != nil {
				return err
			}
			if sale.CustomerID != req.CustomerID {
				return shared.Invalid("chassis_no", "sale %s belongs to another customer", chassis)
			}
			entry.SaleID = &sale.ID
		}
		id, err := tx.InsertRecoveryLog(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		if entry.NextDate == nil {
			return nil
		}
		return tx.ReschedulePending(ctx, req.CustomerID, entry.SaleID, *entry.NextDate)
	})
	if err != nil {
		return RecoveryLog{}, err
	}
	return entry, nil
}

// RecoveryHistory returns a customer's follow-ups.
func (s *Service) RecoveryHistory(ctx context.Context, customerID int64) ([]RecoveryLog, error) {
	return s.repo.RecoveryHistory(ctx, customerID)
}

// ListPromises returns a customer's credit promises.
func (s *Service) ListPromises(ctx context.Context, customerID int64) ([]Promise, error) {
	return s.repo.ListPromises(ctx, customerID)
}
