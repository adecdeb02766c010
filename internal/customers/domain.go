package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer status derived from sales and bookings.
const (
	StatusNew    = "New"
	StatusBooked = "Booked"
	StatusSold   = "Sold"
)

// Customer is a buyer or prospective buyer with KYC details.
type Customer struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FatherName      string     `json:"father_name"`
	Mobile          string     `json:"mobile"`
	AltMobile       string     `json:"alt_mobile"`
	Email           string     `json:"email"`
	DOB             *time.Time `json:"dob,omitempty"`
	Address         string     `json:"address"`
	Post            string     `json:"post"`
	Tehsil          string     `json:"tehsil"`
	District        string     `json:"district"`
	Pincode         string     `json:"pincode"`
	NomineeName     string     `json:"nominee_name"`
	NomineeAge      int        `json:"nominee_age"`
	NomineeRelation string     `json:"nominee_relation"`
	DrivingLicense  string     `json:"driving_license"`
	AadharNo        string     `json:"aadhar_no"`
	PANNo           string     `json:"pan_no"`
	PhotoPath       string     `json:"photo_path"`
	AadharPath      string     `json:"aadhar_path"`
	PANPath         string     `json:"pan_path"`
	Consent         bool       `json:"consent"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	Status          string     `json:"status,omitempty"`
}

// Input carries editable customer fields.
type Input struct {
	Name            string `json:"name" validate:"required,max=120"`
	FatherName      string `json:"father_name" validate:"max=120"`
	Mobile          string `json:"mobile" validate:"required,mobile"`
	AltMobile       string `json:"alt_mobile" validate:"omitempty,mobile"`
	Email           string `json:"email" validate:"omitempty,email"`
	DOB             string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Address         string `json:"address" validate:"max=300"`
	Post            string `json:"post"`
	Tehsil          string `json:"tehsil"`
	District        string `json:"district"`
	Pincode         string `json:"pincode" validate:"omitempty,numeric,len=6"`
	NomineeName     string `json:"nominee_name"`
	NomineeAge      int    `json:"nominee_age" validate:"gte=0,lte=120"`
	NomineeRelation string `json:"nominee_relation"`
	NomineeRelOther string `json:"nominee_relation_other"`
	DrivingLicense  string `json:"driving_license"`
	AadharNo        string `json:"aadhar_no" validate:"omitempty,numeric,len=12"`
	PANNo           string `json:"pan_no" validate:"omitempty,alphanum,len=10"`
	PhotoPath       string `json:"photo_path"`
	AadharPath      string `json:"aadhar_path"`
	PANPath         string `json:"pan_path"`
	Consent         bool   `json:"consent"`
}

// Identity identifies the buyer in booking and sale flows. A positive ID wins
// over the mobile number.
type Identity struct {
	ID      int64
	Name    string
	Mobile  string
	Email   string
	Address string
}

// Ref is the resolved customer for a booking or sale.
type Ref struct {
	ID      int64
	Name    string
	Mobile  string
	Created bool
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

// JourneyEvent is one entry of a customer's timeline.
type JourneyEvent struct {
	Type   string    `json:"type"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail"`
}

// JourneySources are the raw records a timeline is built from.
type JourneySources struct {
	Enquiries []EnquiryRecord
	Sales     []SaleRecord
	Payments  []PaymentRecord
	Recovery  []RecoveryRecord
}

// EnquiryRecord is the journey view of an enquiry.
type EnquiryRecord struct {
	CreatedAt time.Time
	Model     string
	Status    string
	BookedAt  *time.Time
}

// SaleRecord is the journey view of a sale.
type SaleRecord struct {
	Date           time.Time
	ChassisNo      string
	GatePassID     string
	GatePassDate   *time.Time
	PolicyNo       string
	Insurer        string
	PolicyDate     *time.Time
	HSRPStatus     string
	RegistrationNo string
	RTODate        *time.Time
}

// PaymentRecord is the journey view of a payment.
type PaymentRecord struct {
	PaidOn time.Time
	Amount decimal.Decimal
	Mode   string
	Kind   string
}

// RecoveryRecord is the journey view of a recovery log.
type RecoveryRecord struct {
	At       time.Time
	Action   string
	Response string
}
