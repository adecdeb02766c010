package customers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showroom-dms/showroom/internal/shared"
)

type memoryRepo struct {
	customers map[int64]Customer
	audits    []shared.AuditLog
	sources   JourneySources
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[int64]Customer{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, shared.NotFound("customer", id)
	}
	return c, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	var out []Customer
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRepo) JourneySources(ctx context.Context, id int64) (JourneySources, error) {
	return r.sources, nil
}

func (tx *memoryTx) Insert(ctx context.Context, c Customer) (int64, error) {
	for _, existing := range tx.repo.customers {
		if existing.Mobile == c.Mobile {
			return 0, shared.Conflict("duplicate mobile number")
		}
	}
	tx.repo.nextID++
	c.ID = tx.repo.nextID
	tx.repo.customers[c.ID] = c
	return c.ID, nil
}

func (tx *memoryTx) Update(ctx context.Context, c Customer) error {
	if _, ok := tx.repo.customers[c.ID]; !ok {
		return shared.NotFound("customer", c.ID)
	}
	tx.repo.customers[c.ID] = c
	return nil
}

func (tx *memoryTx) Delete(ctx context.Context, id int64) error {
	if _, ok := tx.repo.customers[id]; !ok {
		return shared.NotFound("customer", id)
	}
	delete(tx.repo.customers, id)
	return nil
}

func (tx *memoryTx) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	tx.repo.audits = append(tx.repo.audits, log)
	return nil
}

var (
	admin    = shared.Actor{ID: 1, Name: "Admin User", Role: shared.RoleAdmin}
	salesman = shared.Actor{ID: 2, Name: "Sales Person", Role: shared.RoleSalesman}
)

func TestCreateNormalisesInput(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), salesman, Input{
		Name:            "suresh  PATEL",
		Mobile:          "+91 98765 43210",
		NomineeRelation: "Other",
		NomineeRelOther: "Cousin",
		PANNo:           "abcde1234f",
		DOB:             "1990-05-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Suresh Patel", c.Name)
	assert.Equal(t, "9876543210", c.Mobile)
	assert.Equal(t, "Cousin", c.NomineeRelation)
	assert.Equal(t, "ABCDE1234F", c.PANNo)
	assert.Equal(t, "Sales Person", c.CreatedBy)
	require.NotNil(t, c.DOB)
	assert.Equal(t, 1990, c.DOB.Year())
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), salesman, Input{Name: "A", Mobile: "12345"})
	require.ErrorIs(t, err, shared.ErrValidation)
	var typed *shared.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "mobile", typed.Field)

	_, err = svc.Create(context.Background(), salesman, Input{Name: "A", Mobile: "9876543210", Pincode: "12"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	c, err := svc.Create(context.Background(), salesman, Input{Name: "Asha", Mobile: "9123456789"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), salesman, c.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Len(t, repo.customers, 1)

	require.NoError(t, svc.Delete(context.Background(), admin, c.ID))
	assert.Empty(t, repo.customers)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, shared.AuditCustomerDeleted, repo.audits[0].Action)

	assert.ErrorIs(t, svc.Delete(context.Background(), admin, c.ID), shared.ErrNotFound)
}

func TestJourneyUnknownCustomer(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Journey(context.Background(), 42)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBuildJourneyNewestFirst(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 10, 0, 0, 0, time.UTC) }
	booked := day(3)
	policy := day(6)
	gate := day(8)
	src := JourneySources{
		Enquiries: []EnquiryRecord{{CreatedAt: day(1), Model: "Splendor", Status: "CONVERTED", BookedAt: &booked}},
		Sales: []SaleRecord{{
			Date: day(5), ChassisNo: "ABC123", GatePassID: "GP-1", GatePassDate: &gate,
			PolicyNo: "P-9", Insurer: "Acme", PolicyDate: &policy, HSRPStatus: "Fitted", RegistrationNo: "MH12AB1234",
		}},
		Payments: []PaymentRecord{{PaidOn: day(3), Amount: decimal.NewFromInt(5000), Mode: "UPI", Kind: "TOKEN"}},
		Recovery: []RecoveryRecord{{At: day(9), Action: "Call", Response: "Will pay Friday"}},
	}

	events := BuildJourney(src)

	require.Len(t, events, 8)
	assert.Equal(t, "Log", events[0].Type)
	assert.Equal(t, "Delivery", events[1].Type)
	assert.Equal(t, "Insurance", events[2].Type)
	assert.Equal(t, "Enquiry", events[len(events)-1].Type)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].At.After(events[i-1].At))
	}
	var rto JourneyEvent
	for _, e := range events {
		if e.Type == "RTO" {
			rto = e
		}
	}
	assert.Equal(t, "Number plate: Fitted (MH12AB1234)", rto.Detail)
	assert.Equal(t, day(5), rto.At)
}
