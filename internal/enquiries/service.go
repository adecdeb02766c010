package enquiries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/showroom-dms/showroom/internal/customers"
	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/platform/cache"
	"github.com/showroom-dms/showroom/internal/shared"
)

const statsCacheKey = "stats"

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Enquiry, error)
	List(ctx context.Context, filter ListFilter) ([]Enquiry, error)
	ListLogs(ctx context.Context, enquiryID int64) ([]LogEntry, error)
	Stats(ctx context.Context) (Stats, error)
}

// Service drives the enquiry lifecycle.
type Service struct {
	repo   RepositoryPort
	stats  *cache.JSONCache
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service. stats may be nil to disable caching.
func NewService(repo RepositoryPort, stats *cache.JSONCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, stats: stats, logger: logger, now: time.Now}
}

// CreateEnquiry captures an Open lead and its Created log entry.
func (s *Service) CreateEnquiry(ctx context.Context, actor shared.Actor, req CreateRequest) (Enquiry, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Enquiry{}, err
	}
	temperature := TemperatureWarm
	if strings.TrimSpace(req.Temperature) != "" {
		t, err := ParseTemperature(req.Temperature)
		if err != nil {
			return Enquiry{}, shared.Invalid("temperature", "must be Hot, Warm or Cold")
		}
		temperature = t
	}
	followUp, err := parseOptionalDate("follow_up", req.FollowUp)
	if err != nil {
		return Enquiry{}, err
	}
	if req.DownPayment.IsNegative() {
		return Enquiry{}, shared.Invalid("down_payment", "must not be negative")
	}
	if req.ExchangeValue.IsNegative() {
		return Enquiry{}, shared.Invalid("exchange_value", "must not be negative")
	}
	now := s.now()
	e := Enquiry{
		CustomerName: shared.TitleCase(req.Name),
		Mobile:       shared.NormalizeMobile(req.Mobile),
		Model:        strings.TrimSpace(req.Model),
		Color:        strings.TrimSpace(req.Color),
		Source:       strings.TrimSpace(req.Source),
		Temperature:  temperature,
		IsFinance:    req.IsFinance,
		DownPayment:  req.DownPayment,
		IsExchange:   req.IsExchange,
		NextFollowUp: followUp,
		Status:       StatusOpen,
		CreatedBy:    actor.Name,
		AssignedTo:   actor.Name,
		CreatedAt:    now,
	}
	if req.IsExchange {
		e.ExchangeModel = strings.TrimSpace(req.ExchangeModel)
		e.ExchangeYear = req.ExchangeYear
		e.ExchangeValue = req.ExchangeValue
	}
	if remarks := strings.TrimSpace(req.Remarks); remarks != "" {
		e.Remarks = appendRemark("", now, remarks)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, e)
		if err != nil {
			return err
		}
		e.ID = id
		_, err = tx.InsertLog(ctx, LogEntry{
			EnquiryID:   id,
			ActorName:   actor.Name,
			Action:      ActionCreated,
			Remarks:     "Enquiry created for " + describePreference(e.Model, e.Color),
			NewFollowUp: followUp,
			CreatedAt:   now,
		})
		return err
	})
	if err != nil {
		return Enquiry{}, err
	}
	s.invalidateStats(ctx)
	return e, nil
}

// LogInteraction records a call or visit and moves the follow-up date. The
// status is left unchanged.
func (s *Service) LogInteraction(ctx context.Context, actor shared.Actor, id int64, req InteractionRequest) (LogEntry, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return LogEntry{}, err
	}
	next, err := parseOptionalDate("next_follow_up", req.NextFollowUp)
	if err != nil {
		return LogEntry{}, err
	}
	var temperature Temperature
	if strings.TrimSpace(req.Temperature) != "" {
		if temperature, err = ParseTemperature(req.Temperature); err != nil {
			return LogEntry{}, shared.Invalid("temperature", "must be Hot, Warm or Cold")
		}
	}
	var entry LogEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if e.Status.Terminal() {
			return shared.PreconditionFailed("enquiry %d is %s", id, e.Status.Label())
		}
		entry = LogEntry{
			EnquiryID:        id,
			ActorName:        actor.Name,
			Action:           Action(req.Action),
			Remarks:          strings.TrimSpace(req.Remarks),
			PreviousFollowUp: e.NextFollowUp,
			NewFollowUp:      e.NextFollowUp,
			CreatedAt:        s.now(),
		}
		if temperature != "" {
			e.Temperature = temperature
		}
		if next != nil {
			e.NextFollowUp = next
			entry.NewFollowUp = next
		}
		if err := tx.Save(ctx, e); err != nil {
			return err
		}
		entry.ID, err = tx.InsertLog(ctx, entry)
		return err
	})
	if err != nil {
		return LogEntry{}, err
	}
	if temperature != "" {
		s.invalidateStats(ctx)
	}
	return entry, nil
}

// UpdateEnquiry patches an enquiry and logs what changed.
func (s *Service) UpdateEnquiry(ctx context.Context, actor shared.Actor, id int64, patch UpdateRequest) (Enquiry, error) {
	if err := shared.ValidateStruct(patch); err != nil {
		return Enquiry{}, err
	}
	var updated Enquiry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		prev, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		next, logs, err := PlanUpdate(prev, patch, actor.Name, s.now())
		if err != nil {
			return err
		}
		updated = next
		if len(logs) == 0 && next.Remarks == prev.Remarks {
			return nil
		}
		if err := tx.Save(ctx, next); err != nil {
			return err
		}
		for _, l := range logs {
			if _, err := tx.InsertLog(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Enquiry{}, err
	}
	s.invalidateStats(ctx)
	return updated, nil
}

// BookToken books an Open enquiry: the customer is resolved or created by
// mobile number, the token is recorded as a payment and the enquiry moves to
// Booked, all in one transaction.
func (s *Service) BookToken(ctx context.Context, actor shared.Actor, id int64, req BookingRequest) (Booking, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Booking{}, err
	}
	if !req.Amount.IsPositive() {
		return Booking{}, shared.Invalid("amount", "must be greater than zero")
	}
	mode := strings.TrimSpace(req.Mode)
	booking := Booking{EnquiryID: id, Amount: req.Amount}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if e.Status != StatusOpen {
			return shared.PreconditionFailed("enquiry %d is %s, only open enquiries can be booked", id, e.Status.Label())
		}
		ref, err := tx.ResolveCustomer(ctx, customers.Identity{Name: req.Name, Mobile: req.Mobile}, actor.Name)
		if err != nil {
			return err
		}
		booking.CustomerID = ref.ID
		booking.CustomerCreated = ref.Created

		now := s.now()
		booking.PaymentID, err = tx.InsertToken(ctx, ledger.Payment{
			CustomerID: ref.ID,
			Amount:     req.Amount,
			PaidOn:     now,
			Mode:       mode,
			Note:       fmt.Sprintf("Booking Advance / Token for Enquiry #%d", id),
			Kind:       ledger.KindToken,
			CreatedBy:  actor.Name,
		})
		if err != nil {
			return err
		}

		note := fmt.Sprintf("BOOKED: Paid token %s (%s).", req.Amount.StringFixed(2), mode)
		if remarks := strings.TrimSpace(req.Remarks); remarks != "" {
			note += " Remarks: " + remarks
		}
		e.Status = StatusBooked
		e.CustomerID = &ref.ID
		e.BookedAt = &now
		e.Remarks = appendRemark(e.Remarks, now, note)
		if err := tx.Save(ctx, e); err != nil {
			return err
		}
		_, err = tx.InsertLog(ctx, LogEntry{
			EnquiryID:        id,
			ActorName:        actor.Name,
			Action:           ActionBooking,
			Remarks:          fmt.Sprintf("Customer paid token %s via %s", req.Amount.StringFixed(2), mode),
			PreviousFollowUp: e.NextFollowUp,
			NewFollowUp:      e.NextFollowUp,
			CreatedAt:        now,
		})
		return err
	})
	if err != nil {
		return Booking{}, err
	}
	s.invalidateStats(ctx)
	s.logger.Info("enquiry booked", slog.Int64("enquiry_id", id), slog.Int64("customer_id", booking.CustomerID),
		slog.Bool("customer_created", booking.CustomerCreated))
	return booking, nil
}

// ListEnquiries lists enquiries, optionally filtered by a status spelling.
func (s *Service) ListEnquiries(ctx context.Context, rawStatus, search string) ([]Enquiry, error) {
	var filter ListFilter
	if strings.TrimSpace(rawStatus) != "" {
		status, err := ParseEnquiryStatus(rawStatus)
		if err != nil {
			return nil, shared.Invalid("status", "unknown status %q", rawStatus)
		}
		filter.Status = status
	}
	filter.Search = strings.TrimSpace(search)
	return s.repo.List(ctx, filter)
}

// GetEnquiry loads one enquiry.
func (s *Service) GetEnquiry(ctx context.Context, id int64) (Enquiry, error) {
	return s.repo.Get(ctx, id)
}

// ListLogs returns the enquiry timeline, newest first.
func (s *Service) ListLogs(ctx context.Context, id int64) ([]LogEntry, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListLogs(ctx, id)
}

// Stats returns pipeline counts, cached briefly in Redis.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := s.stats.Fetch(ctx, statsCacheKey, &out, func(ctx context.Context) (any, error) {
		return s.repo.Stats(ctx)
	})
	return out, err
}

func (s *Service) invalidateStats(ctx context.Context) {
	if err := s.stats.Invalidate(ctx, statsCacheKey); err != nil {
		s.logger.Warn("invalidate enquiry stats", slog.Any("error", err))
	}
}
