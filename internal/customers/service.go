package customers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/showroom-dms/showroom/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, filter ListFilter) ([]Customer, error)
	JourneySources(ctx context.Context, id int64) (JourneySources, error)
}

// Service coordinates customer records.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a customer.
func (s *Service) Create(ctx context.Context, actor shared.Actor, in Input) (Customer, error) {
	c, err := fromInput(in)
	if err != nil {
		return Customer{}, err
	}
	c.CreatedBy = actor.Name
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return Customer{}, err
	}
	c.Status = StatusNew
	return c, nil
}

// Update replaces a customer's profile.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, in Input) (Customer, error) {
	c, err := fromInput(in)
	if err != nil {
		return Customer{}, err
	}
	c.ID = id
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Update(ctx, c)
	})
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

// Get loads a customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// Delete permanently removes a customer. Admin only.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	if !actor.IsAdmin() {
		return shared.Forbidden("only admins can delete customers")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   shared.AuditCustomerDeleted,
			Entity:   "customer",
			EntityID: EntityID(id),
			Meta:     map[string]any{"actor": actor.Name},
		})
	})
}

// Journey returns the customer's timeline, newest first.
func (s *Service) Journey(ctx context.Context, id int64) ([]JourneyEvent, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	src, err := s.repo.JourneySources(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildJourney(src), nil
}

// BuildJourney flattens the sources into timeline events sorted newest first.
func BuildJourney(src JourneySources) []JourneyEvent {
	var events []JourneyEvent
	for _, e := range src.Enquiries {
		events = append(events, JourneyEvent{Type: "Enquiry", At: e.CreatedAt, Detail: "Interested in " + e.Model})
		if e.BookedAt != nil {
			events = append(events, JourneyEvent{Type: "Booking", At: *e.BookedAt, Detail: "Paid booking token"})
		}
	}
	for _, s := range src.Sales {
		events = append(events, JourneyEvent{Type: "Purchase", At: s.Date, Detail: "Bought vehicle " + s.ChassisNo})
		if s.GatePassDate != nil {
			events = append(events, JourneyEvent{Type: "Delivery", At: *s.GatePassDate, Detail: "Gate pass " + s.GatePassID})
		}
		if s.PolicyNo != "" {
			events = append(events, JourneyEvent{Type: "Insurance", At: dateOr(s.PolicyDate, s.Date), Detail: fmt.Sprintf("Policy %s (%s)", s.PolicyNo, s.Insurer)})
		}
		if s.HSRPStatus != "" && (s.RegistrationNo != "" || s.HSRPStatus != "Pending") {
			detail := "Number plate: " + s.HSRPStatus
			if s.RegistrationNo != "" {
				detail += " (" + s.RegistrationNo + ")"
			}
			events = append(events, JourneyEvent{Type: "RTO", At: dateOr(s.RTODate, s.Date), Detail: detail})
		}
	}
	for _, p := range src.Payments {
		kind := "Payment"
		if p.Kind == "TOKEN" {
			kind = "Token"
		}
		events = append(events, JourneyEvent{Type: kind, At: p.PaidOn, Detail: fmt.Sprintf("%s received by %s", p.Amount.StringFixed(2), p.Mode)})
	}
	for _, l := range src.Recovery {
		events = append(events, JourneyEvent{Type: "Log", At: l.At, Detail: l.Action + ": " + l.Response})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.After(events[j].At)
	})
	return events
}

func dateOr(d *time.Time, fallback time.Time) time.Time {
	if d != nil {
		return *d
	}
	return fallback
}

func fromInput(in Input) (Customer, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Customer{}, err
	}
	relation := strings.TrimSpace(in.NomineeRelation)
	if relation == "Other" {
		relation = strings.TrimSpace(in.NomineeRelOther)
	}
	c := Customer{
		Name:            shared.TitleCase(in.Name),
		FatherName:      shared.TitleCase(in.FatherName),
		Mobile:          shared.NormalizeMobile(in.Mobile),
		AltMobile:       shared.NormalizeMobile(in.AltMobile),
		Email:           strings.TrimSpace(in.Email),
		Address:         strings.TrimSpace(in.Address),
		Post:            strings.TrimSpace(in.Post),
		Tehsil:          strings.TrimSpace(in.Tehsil),
		District:        shared.TitleCase(in.District),
		Pincode:         in.Pincode,
		NomineeName:     shared.TitleCase(in.NomineeName),
		NomineeAge:      in.NomineeAge,
		NomineeRelation: relation,
		DrivingLicense:  strings.ToUpper(strings.TrimSpace(in.DrivingLicense)),
		AadharNo:        in.AadharNo,
		PANNo:           strings.ToUpper(in.PANNo),
		PhotoPath:       in.PhotoPath,
		AadharPath:      in.AadharPath,
		PANPath:         in.PANPath,
		Consent:         in.Consent,
	}
	if in.DOB != "" {
		dob, err := time.Parse("2006-01-02", in.DOB)
		if err != nil {
			return Customer{}, shared.Invalid("dob", "must be YYYY-MM-DD")
		}
		c.DOB = &dob
	}
	return c, nil
}
