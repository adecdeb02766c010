package sales

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/showroom-dms/showroom/internal/customers"
	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/observability"
	"github.com/showroom-dms/showroom/internal/shared"
)

const requestKeyScope = "sales.create"

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, chassisNo string) (Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, error)
	ModelCharges(ctx context.Context, modelVariant string) (ModelCharges, error)
	UpdateCompliance(ctx context.Context, chassisNo string, c Compliance) error
	AttachDocument(ctx context.Context, chassisNo string, doc DocType, path string) error
}

// RequestKeyPort claims Idempotency-Key values for sale creation.
type RequestKeyPort interface {
	Claim(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

// Service orchestrates point-of-sale bookings and post-sale paperwork.
type Service struct {
	repo        RepositoryPort
	requestKeys RequestKeyPort
	metrics     *observability.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. requestKeys and metrics may be nil.
func NewService(repo RepositoryPort, requestKeys RequestKeyPort, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, requestKeys: requestKeys, metrics: metrics, logger: logger, now: time.Now}
}

// CreateSale books a vehicle to a customer in one transaction: the customer is
// resolved or created, the sale and any exchange intake are inserted and the
// vehicle and battery move from in stock to sold. A non-empty key makes the
// request idempotent.
func (s *Service) CreateSale(ctx context.Context, actor shared.Actor, key string, req CreateSaleRequest) (Sale, error) {
	sale, err := s.prepare(req)
	if err != nil {
		return Sale{}, err
	}
	sale.CreatedBy = actor.Name
	sale.CreatedAt = s.now()

	key = strings.TrimSpace(key)
	if key != "" && s.requestKeys != nil {
		if err := s.requestKeys.Claim(ctx, requestKeyScope, key); err != nil {
			if errors.Is(err, shared.ErrRequestKeyReplayed) {
				s.metrics.Sale("conflict")
			}
			return Sale{}, err
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ref, err := tx.ResolveCustomer(ctx, customers.Identity{
			ID:     req.CustomerID,
			Name:   req.CustomerName,
			Mobile: req.Mobile,
		}, actor.Name)
		if err != nil {
			return err
		}
		sale.CustomerID = ref.ID
		sale.CustomerName = ref.Name
		sale.CustomerCreated = ref.Created

		if err := tx.MarkVehicleSold(ctx, sale.ChassisNo); err != nil {
			return err
		}
		if sale.BatterySerial != "" {
			if err := tx.MarkBatterySold(ctx, sale.BatterySerial); err != nil {
				return err
			}
		}
		if sale.ID, err = tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		if req.IsExchange && sale.Charges.ExchangeValue.IsPositive() {
			if _, err := tx.InsertExchange(ctx, ExchangeIntake{
				SaleID:     sale.ID,
				ChassisNo:  sale.ChassisNo,
				Exchange:   req.Exchange,
				Value:      sale.Charges.ExchangeValue,
				ReceivedOn: sale.SaleDate,
			}); err != nil {
				return err
			}
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   shared.AuditSaleCreated,
			Entity:   "sale",
			EntityID: sale.ChassisNo,
			Meta: map[string]any{
				"customer_id":  sale.CustomerID,
				"grand_total":  sale.GrandTotal.StringFixed(2),
				"payment_mode": string(sale.PaymentMode),
			},
		})
	})
	if err != nil {
		if key != "" && s.requestKeys != nil {
			if relErr := s.requestKeys.Release(ctx, requestKeyScope, key); relErr != nil {
				s.logger.Warn("release request key", slog.String("key", key), slog.Any("error", relErr))
			}
		}
		if errors.Is(err, shared.ErrConflict) {
			s.metrics.Sale("conflict")
		} else {
			s.metrics.Sale("failed")
		}
		return Sale{}, err
	}
	sale.Status = StatusBooked
	s.metrics.Sale("created")
	s.logger.Info("sale created", slog.String("chassis", sale.ChassisNo), slog.Int64("customer_id", sale.CustomerID),
		slog.String("grand_total", sale.GrandTotal.StringFixed(2)))
	return sale, nil
}

// prepare validates the payload and computes the server-side totals.
func (s *Service) prepare(req CreateSaleRequest) (Sale, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Sale{}, err
	}
	if req.CustomerID == 0 && (strings.TrimSpace(req.CustomerName) == "" || strings.TrimSpace(req.Mobile) == "") {
		return Sale{}, shared.Invalid("customer", "customer_id or name and mobile are required")
	}
	mode, err := ledger.ParsePaymentMode(req.PaymentMode)
	if err != nil {
		return Sale{}, shared.Invalid("payment_mode", "must be Cash or Finance")
	}
	charges := req.Charges
	financer := strings.TrimSpace(req.Financer)
	switch mode {
	case ledger.ModeFinance:
		if financer == "" {
			return Sale{}, shared.Invalid("financer", "is required for financed sales")
		}
		if charges.Hypothecation.IsZero() {
			charges.Hypothecation = DefaultHypothecation
		}
	case ledger.ModeCash:
		financer = ""
		charges.Hypothecation = decimal.Zero
	}
	if !req.IsExchange {
		charges.ExchangeValue = decimal.Zero
	}
	if field, ok := negativeCharge(charges); ok {
		return Sale{}, shared.Invalid(field, "must not be negative")
	}
	if !charges.BasePrice.IsPositive() {
		return Sale{}, shared.Invalid("base_price", "must be greater than zero")
	}
	charges.OfferName = strings.TrimSpace(charges.OfferName)
	total := GrandTotal(charges)
	if total.IsNegative() {
		return Sale{}, shared.Invalid("discount", "reductions exceed the sale value")
	}

	saleDate := dateOnly(s.now())
	if raw := strings.TrimSpace(req.SaleDate); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Sale{}, shared.Invalid("sale_date", "must be a date in YYYY-MM-DD format")
		}
		saleDate = parsed
	}
	return Sale{
		SaleDate:      saleDate,
		ChassisNo:     normaliseKey(req.ChassisNo),
		BatterySerial: normaliseKey(req.BatterySerial),
		Charges:       charges,
		GrandTotal:    total,
		PaymentMode:   mode,
		Financer:      financer,
		Status:        StatusBooked,
	}, nil
}

// UpdateCompliance records invoice, insurance, RTO and HSRP details. The
// policy expiry is derived from the policy date.
func (s *Service) UpdateCompliance(ctx context.Context, chassisNo string, req ComplianceRequest) (Sale, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Sale{}, err
	}
	chassisNo = normaliseKey(chassisNo)
	if chassisNo == "" {
		return Sale{}, shared.Invalid("chassis_no", "is required")
	}
	hsrp, err := ParseHSRPStatus(req.HSRPStatus)
	if err != nil {
		return Sale{}, shared.Invalid("hsrp_status", "must be Pending, Ordered or Fitted")
	}
	if req.InsuranceAmount.IsNegative() {
		return Sale{}, shared.Invalid("insurance_amount", "must not be negative")
	}
	if req.RTOCost.IsNegative() {
		return Sale{}, shared.Invalid("rto_cost", "must not be negative")
	}
	c := Compliance{
		InvoiceNo:       strings.TrimSpace(req.InvoiceNo),
		PolicyNo:        strings.TrimSpace(req.PolicyNo),
		Insurer:         strings.TrimSpace(req.Insurer),
		InsuranceAmount: req.InsuranceAmount,
		RegistrationNo:  strings.ToUpper(strings.TrimSpace(req.RegistrationNo)),
		RTOCost:         req.RTOCost,
		HSRPStatus:      hsrp,
	}
	if c.InvoiceDate, err = parseOptionalDate("invoice_date", req.InvoiceDate); err != nil {
		return Sale{}, err
	}
	if c.PolicyDate, err = parseOptionalDate("policy_date", req.PolicyDate); err != nil {
		return Sale{}, err
	}
	if c.RTODate, err = parseOptionalDate("rto_date", req.RTODate); err != nil {
		return Sale{}, err
	}
	if c.PolicyDate != nil {
		expiry := PolicyExpiry(*c.PolicyDate)
		c.PolicyExpiry = &expiry
	}
	if err := s.repo.UpdateCompliance(ctx, chassisNo, c); err != nil {
		return Sale{}, err
	}
	return s.repo.Get(ctx, chassisNo)
}

// AttachDocument stores the path of an uploaded invoice, insurance or RTO
// document.
func (s *Service) AttachDocument(ctx context.Context, chassisNo string, req DocumentRequest) error {
	if err := shared.ValidateStruct(req); err != nil {
		return err
	}
	doc, err := ParseDocType(req.DocType)
	if err != nil {
		return shared.Invalid("doc_type", "must be Invoice, Insurance or RTO")
	}
	chassisNo = normaliseKey(chassisNo)
	if chassisNo == "" {
		return shared.Invalid("chassis_no", "is required")
	}
	return s.repo.AttachDocument(ctx, chassisNo, doc, strings.TrimSpace(req.Path))
}

// ListSales lists sales, optionally by status.
func (s *Service) ListSales(ctx context.Context, rawStatus, search string) ([]Sale, error) {
	var filter ListFilter
	if strings.TrimSpace(rawStatus) != "" {
		status, err := ParseStatus(rawStatus)
		if err != nil {
			return nil, shared.Invalid("status", "unknown status %q", rawStatus)
		}
		filter.Status = status
	}
	filter.Search = strings.TrimSpace(search)
	return s.repo.List(ctx, filter)
}

// GetSale loads one sale by chassis number.
func (s *Service) GetSale(ctx context.Context, chassisNo string) (Sale, error) {
	return s.repo.Get(ctx, normaliseKey(chassisNo))
}

// ModelCharges returns the default charges used to pre-fill a sale.
func (s *Service) ModelCharges(ctx context.Context, modelVariant string) (ModelCharges, error) {
	modelVariant = strings.TrimSpace(modelVariant)
	if modelVariant == "" {
		return ModelCharges{}, shared.Invalid("model_variant", "is required")
	}
	return s.repo.ModelCharges(ctx, modelVariant)
}

func normaliseKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, shared.Invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

// dateOnly truncates to midnight UTC for DATE columns.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
