package ledger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/showroom-dms/showroom/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Inputs(ctx context.Context, customerID int64) (Inputs, error)
	SaleByChassis(ctx context.Context, chassisNo string) (SaleRef, error)
	ListPayments(ctx context.Context, customerID int64) ([]Payment, error)
}

// PaymentListener is notified after a payment or a finance disbursement
// commits.
type PaymentListener interface {
	PaymentRecorded(ctx context.Context, customerID int64) error
}

// Service computes customer ledgers and records receipts.
type Service struct {
	repo      RepositoryPort
	tolerance decimal.Decimal
	logger    *slog.Logger
	listeners []PaymentListener
	group     singleflight.Group
}

// NewService builds Service. A non-positive tolerance falls back to the
// default settlement tolerance.
func NewService(repo RepositoryPort, tolerance decimal.Decimal, logger *slog.Logger) *Service {
	if !tolerance.IsPositive() {
		tolerance = shared.DefaultSettlementTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tolerance: tolerance, logger: logger}
}

// Tolerance returns the fully-paid tolerance in effect.
func (s *Service) Tolerance() decimal.Decimal {
	return s.tolerance
}

// OnPayment registers a listener for committed payments and disbursements.
func (s *Service) OnPayment(l PaymentListener) {
	s.listeners = append(s.listeners, l)
}

// ComputeLedger aggregates every sale, payment, disbursement and pending
// promise of a customer. Concurrent requests for the same customer share one
// load.
func (s *Service) ComputeLedger(ctx context.Context, customerID int64) (Summary, error) {
	in, err := s.load(ctx, customerID)
	if err != nil {
		return Summary{}, err
	}
	return Aggregate(in, s.tolerance), nil
}

// ComputeLedgerForSale returns the customer ledger with the finance check
// scoped to the given sale.
func (s *Service) ComputeLedgerForSale(ctx context.Context, chassisNo string) (Summary, error) {
	sale, err := s.repo.SaleByChassis(ctx, normaliseChassis(chassisNo))
	if err != nil {
		return Summary{}, err
	}
	in, err := s.load(ctx, sale.CustomerID)
	if err != nil {
		return Summary{}, err
	}
	in.FocusSaleID = sale.ID
	return Aggregate(in, s.tolerance), nil
}

func (s *Service) load(ctx context.Context, customerID int64) (Inputs, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(customerID, 10), func() (any, error) {
		return s.repo.Inputs(ctx, customerID)
	})
	if err != nil {
		return Inputs{}, err
	}
	in := v.(Inputs)
	// Callers may set FocusSaleID; keep the shared slice untouched.
	in.Sales = append([]SaleCharge(nil), in.Sales...)
	return in, nil
}

// RecordPayment appends a receipt. When a chassis number is supplied the
// payment is attached to that sale, which must belong to the customer.
func (s *Service) RecordPayment(ctx context.Context, actor shared.Actor, req PaymentRequest) (Payment, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Payment{}, err
	}
	if !req.Amount.IsPositive() {
		return Payment{}, shared.Invalid("amount", "must be greater than zero")
	}
	paidOn := time.Now()
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
		if err != nil {
			return Payment{}, shared.Invalid("date", "must be YYYY-MM-DD")
		}
		paidOn = parsed
	}
	p := Payment{
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		PaidOn:     paidOn,
		Mode:       strings.TrimSpace(req.Mode),
		Note:       strings.TrimSpace(req.Note),
		Kind:       KindPayment,
		CreatedBy:  actor.Name,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if chassis := normaliseChassis(req.ChassisNo); chassis != "" {
			sale, err := tx.LookupSale(ctx, chassis)
			if err != nil {
				return err
			}
			if sale.CustomerID != req.CustomerID {
				return shared.Invalid("chassis_no", "sale %s belongs to another customer", chassis)
			}
			p.SaleID = &sale.ID
		}
		id, err := tx.InsertPayment(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	s.notify(ctx, p.CustomerID)
	return p, nil
}

// RecordFinance stores the disbursement of a Finance-mode sale, replacing any
// earlier record for that sale.
func (s *Service) RecordFinance(ctx context.Context, actor shared.Actor, req FinanceRequest) (FinanceRecord, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return FinanceRecord{}, err
	}
	if req.DisbursedAmount.IsNegative() {
		return FinanceRecord{}, shared.Invalid("disbursed_amount", "must not be negative")
	}
	rec := FinanceRecord{
		ChassisNo:       normaliseChassis(req.ChassisNo),
		Financer:        strings.TrimSpace(req.Financer),
		DONumber:        strings.TrimSpace(req.DONumber),
		DisbursedAmount: req.DisbursedAmount,
		UpdatedBy:       actor.Name,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.LookupSale(ctx, rec.ChassisNo)
		if err != nil {
			return err
		}
		if sale.Mode != ModeFinance {
			return shared.PreconditionFailed("sale %s is a %s sale", rec.ChassisNo, sale.Mode)
		}
		rec.SaleID = sale.ID
		rec.CustomerID = sale.CustomerID
		return tx.UpsertFinance(ctx, rec)
	})
	if err != nil {
		return FinanceRecord{}, err
	}
	s.notify(ctx, rec.CustomerID)
	return rec, nil
}

// notify runs the listeners once the money movement has committed. Listener
// errors are logged and never undo the receipt.
func (s *Service) notify(ctx context.Context, customerID int64) {
	for _, l := range s.listeners {
		if err := l.PaymentRecorded(ctx, customerID); err != nil {
			s.logger.Warn("payment listener failed", slog.Int64("customer_id", customerID), slog.Any("error", err))
		}
	}
}

// ListPayments returns a customer's receipts.
func (s *Service) ListPayments(ctx context.Context, customerID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, customerID)
}

func normaliseChassis(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
