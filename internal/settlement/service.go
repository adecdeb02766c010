package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/observability"
	"github.com/showroom-dms/showroom/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindSale(ctx context.Context, chassisNo string) (SaleState, error)
}

// LedgerPort is the part of the ledger service the gate relies on.
type LedgerPort interface {
	ComputeLedgerForSale(ctx context.Context, chassisNo string) (ledger.Summary, error)
	Tolerance() decimal.Decimal
}

// Service decides and issues gate passes.
type Service struct {
	repo    RepositoryPort
	ledger  LedgerPort
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
	newID   func(time.Time) string
}

// NewService builds Service. metrics may be nil.
func NewService(repo RepositoryPort, ledger LedgerPort, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledger, metrics: metrics, logger: logger, now: time.Now, newID: NewGatePassID}
}

// NewGatePassID returns an identifier of the form GP-YYYYMMDD-XXXXXXXX.
func NewGatePassID(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("GP-%s-%s", at.Format("20060102"), suffix)
}

// Evaluate applies the release rule to a ledger: fully paid within tolerance
// and no finance disbursement outstanding.
func Evaluate(summary ledger.Summary) (bool, string) {
	if summary.FinancePending {
		return false, "finance disbursement pending"
	}
	if !summary.IsFullyPaid {
		return false, fmt.Sprintf("balance of %s outstanding", summary.GlobalBalance.StringFixed(2))
	}
	return true, ""
}

// CanIssueGatePass reports whether a gate pass may be issued for the sale.
// A sale that already has one is always eligible for a reprint.
func (s *Service) CanIssueGatePass(ctx context.Context, chassisNo string) (Eligibility, error) {
	chassisNo = strings.ToUpper(strings.TrimSpace(chassisNo))
	sale, err := s.repo.FindSale(ctx, chassisNo)
	if err != nil {
		return Eligibility{}, err
	}
	summary, err := s.ledger.ComputeLedgerForSale(ctx, chassisNo)
	if err != nil {
		return Eligibility{}, err
	}
	out := Eligibility{ChassisNo: chassisNo, Ledger: summary}
	if sale.Issued() {
		out.Allowed = true
		out.Reason = "gate pass already issued"
		out.GatePassID = sale.GatePassID
		return out, nil
	}
	out.Allowed, out.Reason = Evaluate(summary)
	return out, nil
}

// IssueGatePass releases the vehicle: the sale becomes Delivered, the vehicle
// leaves stock, booked enquiries of the customer convert and an audit row is
// written, all in one transaction. Repeating the call returns the existing
// gate pass without further writes.
func (s *Service) IssueGatePass(ctx context.Context, actor shared.Actor, chassisNo string) (GatePass, error) {
	chassisNo = strings.ToUpper(strings.TrimSpace(chassisNo))
	if chassisNo == "" {
		return GatePass{}, shared.Invalid("chassis_no", "is required")
	}
	var pass GatePass
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.LockSale(ctx, chassisNo)
		if err != nil {
			return err
		}
		pass = GatePass{
			ChassisNo:    sale.ChassisNo,
			SaleID:       sale.ID,
			CustomerID:   sale.CustomerID,
			CustomerName: sale.CustomerName,
		}
		if sale.Issued() {
			pass.ID = sale.GatePassID
			pass.Reprint = true
			if sale.GatePassDate != nil {
				pass.IssuedAt = *sale.GatePassDate
			}
			return nil
		}

		in, err := tx.LedgerInputs(ctx, sale.CustomerID)
		if err != nil {
			return err
		}
		in.FocusSaleID = sale.ID
		if ok, reason := Evaluate(ledger.Aggregate(in, s.ledger.Tolerance())); !ok {
			return shared.PreconditionFailed("gate pass for %s refused: %s", chassisNo, reason)
		}

		pass.IssuedAt = s.now()
		pass.ID = s.newID(pass.IssuedAt)
		if err := tx.MarkDelivered(ctx, sale.ID, pass.ID, pass.IssuedAt); err != nil {
			return err
		}
		if err := tx.MarkVehicleStockOut(ctx, sale.ChassisNo); err != nil {
			return err
		}
		converted, err := tx.ConvertEnquiries(ctx, sale.CustomerID, actor.Name, pass.ID)
		if err != nil {
			return err
		}
		pass.ConvertedEnquiries = converted
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   shared.AuditGatePassIssued,
			Entity:   "sale",
			EntityID: sale.ChassisNo,
			Meta: map[string]any{
				"gate_pass_id": pass.ID,
				"customer_id":  sale.CustomerID,
				"actor":        actor.Name,
			},
			At: pass.IssuedAt,
		})
	})
	switch {
	case err == nil && pass.Reprint:
		s.metrics.GatePass("reprint")
	case err == nil:
		s.metrics.GatePass("issued")
		s.logger.Info("gate pass issued", slog.String("chassis", chassisNo), slog.String("gate_pass_id", pass.ID),
			slog.String("actor", actor.Name))
	case errors.Is(err, shared.ErrPreconditionFailed):
		s.metrics.GatePass("rejected")
	default:
		s.metrics.GatePass("failed")
	}
	if err != nil {
		return GatePass{}, err
	}
	return pass, nil
}
