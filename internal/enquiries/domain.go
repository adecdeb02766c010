package enquiries

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an enquiry.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusBooked    Status = "BOOKED"
	StatusConverted Status = "CONVERTED"
	StatusLost      Status = "LOST"
)

// ErrUnknownStatus indicates a status outside the closed set.
var ErrUnknownStatus = errors.New("enquiries: unknown status")

// ParseEnquiryStatus accepts the display or stored spelling of a status.
func ParseEnquiryStatus(raw string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OPEN", "NEW":
		return StatusOpen, nil
	case "BOOKED":
		return StatusBooked, nil
	case "CONVERTED", "SOLD":
		return StatusConverted, nil
	case "LOST", "CLOSED":
		return StatusLost, nil
	default:
		return "", ErrUnknownStatus
	}
}

// Label returns the display label.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusBooked:
		return "Booked"
	case StatusConverted:
		return "Converted"
	case StatusLost:
		return "Lost"
	default:
		return string(s)
	}
}

var transitions = map[Status][]Status{
	StatusOpen:   {StatusBooked, StatusLost},
	StatusBooked: {StatusConverted},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Temperature grades how likely a lead is to buy.
type Temperature string

const (
	TemperatureHot  Temperature = "Hot"
	TemperatureWarm Temperature = "Warm"
	TemperatureCold Temperature = "Cold"
)

// ErrUnknownTemperature indicates a temperature outside Hot, Warm, Cold.
var ErrUnknownTemperature = errors.New("enquiries: unknown temperature")

// ParseTemperature accepts the temperature case-insensitively.
func ParseTemperature(raw string) (Temperature, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "hot":
		return TemperatureHot, nil
	case "warm":
		return TemperatureWarm, nil
	case "cold":
		return TemperatureCold, nil
	default:
		return "", ErrUnknownTemperature
	}
}

// Action classifies an enquiry log entry.
type Action string

const (
	ActionCreated          Action = "Created"
	ActionUpdate           Action = "Update"
	ActionStatusChange     Action = "Status Change"
	ActionPreferenceChange Action = "Preference Change"
	ActionBooking          Action = "Booking"
	ActionCall             Action = "Call"
	ActionVisit            Action = "Visit"
)

const dateLayout = "2006-01-02"

// Enquiry is a sales lead.
type Enquiry struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"customer_name"`
	Mobile        string          `json:"mobile"`
	Model         string          `json:"model"`
	Color         string          `json:"color"`
	Source        string          `json:"source"`
	Temperature   Temperature     `json:"temperature"`
	IsFinance     bool            `json:"is_finance"`
	DownPayment   decimal.Decimal `json:"down_payment"`
	IsExchange    bool            `json:"is_exchange"`
	ExchangeModel string          `json:"exchange_model"`
	ExchangeYear  int             `json:"exchange_year"`
	ExchangeValue decimal.Decimal `json:"exchange_value"`
	NextFollowUp  *time.Time      `json:"next_follow_up,omitempty"`
	Status        Status          `json:"status"`
	LostReason    string          `json:"lost_reason"`
	CustomerID    *int64          `json:"customer_id,omitempty"`
	Remarks       string          `json:"remarks"`
	BookedAt      *time.Time      `json:"booked_at,omitempty"`
	CreatedBy     string          `json:"created_by"`
	AssignedTo    string          `json:"assigned_to"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LogEntry is an immutable record in an enquiry's timeline.
type LogEntry struct {
	ID               int64      `json:"id"`
	EnquiryID        int64      `json:"enquiry_id"`
	ActorName        string     `json:"actor_name"`
	Action           Action     `json:"action"`
	Remarks          string     `json:"remarks"`
	PreviousFollowUp *time.Time `json:"previous_follow_up,omitempty"`
	NewFollowUp      *time.Time `json:"new_follow_up,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CreateRequest captures a new lead.
type CreateRequest struct {
	Name          string          `json:"name" validate:"required,max=120"`
	Mobile        string          `json:"mobile" validate:"required,mobile"`
	Model         string          `json:"model" validate:"required,max=120"`
	Color         string          `json:"color" validate:"max=60"`
	Source        string          `json:"source" validate:"max=60"`
	Temperature   string          `json:"temperature"`
	FollowUp      string          `json:"follow_up"`
	Remarks       string          `json:"remarks" validate:"max=1000"`
	IsFinance     bool            `json:"is_finance"`
	DownPayment   decimal.Decimal `json:"down_payment"`
	IsExchange    bool            `json:"is_exchange"`
	ExchangeModel string          `json:"exchange_model" validate:"max=120"`
	ExchangeYear  int             `json:"exchange_year" validate:"gte=0"`
	ExchangeValue decimal.Decimal `json:"exchange_value"`
}

// InteractionRequest logs a call or visit.
type InteractionRequest struct {
	Action       string `json:"action" validate:"required,oneof=Call Visit"`
	Remarks      string `json:"remarks" validate:"max=1000"`
	NextFollowUp string `json:"next_follow_up"`
	Temperature  string `json:"temperature"`
}

// UpdateRequest patches an enquiry. Nil fields are left unchanged.
type UpdateRequest struct {
	Status      *string `json:"status"`
	Temperature *string `json:"temperature"`
	FollowUp    *string `json:"follow_up"`
	Remarks     string  `json:"remarks" validate:"max=1000"`
	LostReason  *string `json:"lost_reason"`
	Model       *string `json:"model"`
	Color       *string `json:"color"`
	IsFinance   *bool   `json:"is_finance"`
	IsExchange  *bool   `json:"is_exchange"`
}

// BookingRequest converts an open lead into a booking with a token payment.
type BookingRequest struct {
	Name    string          `json:"name" validate:"required,max=120"`
	Mobile  string          `json:"mobile" validate:"required,mobile"`
	Amount  decimal.Decimal `json:"amount"`
	Mode    string          `json:"mode" validate:"required,max=40"`
	Remarks string          `json:"remarks" validate:"max=500"`
}

// Booking is the outcome of BookToken.
type Booking struct {
	EnquiryID       int64           `json:"enquiry_id"`
	CustomerID      int64           `json:"customer_id"`
	CustomerCreated bool            `json:"customer_created"`
	PaymentID       int64           `json:"payment_id"`
	Amount          decimal.Decimal `json:"amount"`
}

// ListFilter narrows enquiry listings.
type ListFilter struct {
	Status Status
	Search string
}

// Count is one bucket of a stats breakdown.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Stats summarises the pipeline.
type Stats struct {
	OpenByTemperature []Count `json:"open_by_temperature"`
	LostByReason      []Count `json:"lost_by_reason"`
}
