package enquiries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showroom-dms/showroom/internal/customers"
	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/platform/cache"
	"github.com/showroom-dms/showroom/internal/shared"
)

type memoryRepo struct {
	enquiries  map[int64]Enquiry
	logs       []LogEntry
	payments   []ledger.Payment
	customers  map[string]int64
	statsCalls int
	resolveErr error
}

type memoryTx struct {
	repo      *memoryRepo
	enquiries map[int64]Enquiry
	logs      []LogEntry
	payments  []ledger.Payment
	customers map[string]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{enquiries: map[int64]Enquiry{}, customers: map[string]int64{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, enquiries: map[int64]Enquiry{}, customers: map[string]int64{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, e := range tx.enquiries {
		r.enquiries[id] = e
	}
	for k, v := range tx.customers {
		r.customers[k] = v
	}
	r.logs = append(r.logs, tx.logs...)
	r.payments = append(r.payments, tx.payments...)
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Enquiry, error) {
	e, ok := r.enquiries[id]
	if !ok {
		return Enquiry{}, shared.NotFound("enquiry", id)
	}
	return e, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Enquiry, error) {
	var out []Enquiry
	for _, e := range r.enquiries {
		if filter.Status == "" || e.Status == filter.Status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListLogs(ctx context.Context, enquiryID int64) ([]LogEntry, error) {
	var out []LogEntry
	for _, l := range r.logs {
		if l.EnquiryID == enquiryID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memoryRepo) Stats(ctx context.Context) (Stats, error) {
	r.statsCalls++
	counts := map[Temperature]int{}
	for _, e := range r.enquiries {
		if e.Status == StatusOpen {
			counts[e.Temperature]++
		}
	}
	stats := Stats{OpenByTemperature: []Count{}, LostByReason: []Count{}}
	for _, t := range []Temperature{TemperatureCold, TemperatureHot, TemperatureWarm} {
		if counts[t] > 0 {
			stats.OpenByTemperature = append(stats.OpenByTemperature, Count{Key: string(t), Count: counts[t]})
		}
	}
	return stats, nil
}

func (tx *memoryTx) Insert(ctx context.Context, e Enquiry) (int64, error) {
	e.ID = int64(len(tx.repo.enquiries) + len(tx.enquiries) + 1)
	tx.enquiries[e.ID] = e
	return e.ID, nil
}

func (tx *memoryTx) Lock(ctx context.Context, id int64) (Enquiry, error) {
	if e, ok := tx.enquiries[id]; ok {
		return e, nil
	}
	return tx.repo.Get(ctx, id)
}

func (tx *memoryTx) Save(ctx context.Context, e Enquiry) error {
	tx.enquiries[e.ID] = e
	return nil
}

func (tx *memoryTx) InsertLog(ctx context.Context, l LogEntry) (int64, error) {
	l.ID = int64(len(tx.repo.logs) + len(tx.logs) + 1)
	tx.logs = append(tx.logs, l)
	return l.ID, nil
}

func (tx *memoryTx) ResolveCustomer(ctx context.Context, who customers.Identity, createdBy string) (customers.Ref, error) {
	if tx.repo.resolveErr != nil {
		return customers.Ref{}, tx.repo.resolveErr
	}
	mobile := shared.NormalizeMobile(who.Mobile)
	if id, ok := tx.repo.customers[mobile]; ok {
		return customers.Ref{ID: id, Name: who.Name, Mobile: mobile}, nil
	}
	id := int64(100 + len(tx.repo.customers) + len(tx.customers))
	tx.customers[mobile] = id
	return customers.Ref{ID: id, Name: who.Name, Mobile: mobile, Created: true}, nil
}

func (tx *memoryTx) InsertToken(ctx context.Context, p ledger.Payment) (int64, error) {
	tx.payments = append(tx.payments, p)
	return int64(len(tx.repo.payments) + len(tx.payments)), nil
}

var salesman = shared.Actor{ID: 5, Name: "Suresh", Role: shared.RoleSalesman}

func newService(repo *memoryRepo, stats *cache.JSONCache) *Service {
	svc := NewService(repo, stats, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC) }
	return svc
}

func createLead(t *testing.T, svc *Service) Enquiry {
	t.Helper()
	e, err := svc.CreateEnquiry(context.Background(), salesman, CreateRequest{
		Name: "ravi kumar", Mobile: "+91 98765-43210", Model: "Splendor Plus", Color: "Black",
		Temperature: "hot", FollowUp: "2026-03-16",
	})
	require.NoError(t, err)
	return e
}

func TestCreateEnquiryWritesCreatedLog(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)

	e := createLead(t, svc)
	assert.Equal(t, StatusOpen, e.Status)
	assert.Equal(t, "Ravi Kumar", e.CustomerName)
	assert.Equal(t, "9876543210", e.Mobile)
	assert.Equal(t, TemperatureHot, e.Temperature)
	require.Len(t, repo.logs, 1)
	assert.Equal(t, ActionCreated, repo.logs[0].Action)
	assert.Equal(t, "Enquiry created for Splendor Plus (Black)", repo.logs[0].Remarks)

	_, err := svc.CreateEnquiry(context.Background(), salesman, CreateRequest{Name: "x", Mobile: "12345", Model: "y"})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestBookTokenFromOpen(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	e := createLead(t, svc)

	booking, err := svc.BookToken(context.Background(), salesman, e.ID, BookingRequest{
		Name: "Ravi Kumar", Mobile: "9876543210", Amount: decimal.NewFromInt(5000), Mode: "UPI", Remarks: "delivery next week",
	})
	require.NoError(t, err)
	assert.True(t, booking.CustomerCreated)

	stored := repo.enquiries[e.ID]
	assert.Equal(t, StatusBooked, stored.Status)
	require.NotNil(t, stored.CustomerID)
	assert.Equal(t, booking.CustomerID, *stored.CustomerID)
	assert.NotNil(t, stored.BookedAt)
	assert.Contains(t, stored.Remarks, "BOOKED: Paid token 5000.00 (UPI). Remarks: delivery next week")

	require.Len(t, repo.payments, 1)
	p := repo.payments[0]
	assert.Equal(t, ledger.KindToken, p.Kind)
	assert.Equal(t, booking.CustomerID, p.CustomerID)
	assert.Equal(t, "Booking Advance / Token for Enquiry #1", p.Note)

	last := repo.logs[len(repo.logs)-1]
	assert.Equal(t, ActionBooking, last.Action)
	assert.Equal(t, "Customer paid token 5000.00 via UPI", last.Remarks)

	_, err = svc.BookToken(context.Background(), salesman, e.ID, BookingRequest{
		Name: "Ravi Kumar", Mobile: "9876543210", Amount: decimal.NewFromInt(1000), Mode: "Cash",
	})
	assert.True(t, errors.Is(err, shared.ErrPreconditionFailed))
	assert.Len(t, repo.payments, 1)
}

func TestBookTokenRollsBackOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	e := createLead(t, svc)
	repo.resolveErr = shared.TransactionFailure(errors.New("serialization failure"))

	_, err := svc.BookToken(context.Background(), salesman, e.ID, BookingRequest{
		Name: "Ravi Kumar", Mobile: "9876543210", Amount: decimal.NewFromInt(5000), Mode: "UPI",
	})
	assert.True(t, errors.Is(err, shared.ErrTransactionFailure))
	assert.Equal(t, StatusOpen, repo.enquiries[e.ID].Status)
	assert.Empty(t, repo.payments)
	assert.Len(t, repo.logs, 1)
}

func TestBookTokenValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	e := createLead(t, svc)

	_, err := svc.BookToken(context.Background(), salesman, e.ID, BookingRequest{Name: "Ravi", Mobile: "9876543210", Amount: decimal.Zero, Mode: "UPI"})
	assert.True(t, errors.Is(err, shared.ErrValidation))
	_, err = svc.BookToken(context.Background(), salesman, 99, BookingRequest{Name: "Ravi", Mobile: "9876543210", Amount: decimal.NewFromInt(1), Mode: "UPI"})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestLogInteraction(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	e := createLead(t, svc)

	entry, err := svc.LogInteraction(context.Background(), salesman, e.ID, InteractionRequest{
		Action: "Call", Remarks: "asked for EMI options", NextFollowUp: "2026-03-18", Temperature: "Warm",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionCall, entry.Action)
	assert.Equal(t, "2026-03-16", entry.PreviousFollowUp.Format(dateLayout))
	assert.Equal(t, "2026-03-18", entry.NewFollowUp.Format(dateLayout))

	stored := repo.enquiries[e.ID]
	assert.Equal(t, StatusOpen, stored.Status)
	assert.Equal(t, TemperatureWarm, stored.Temperature)
	assert.Equal(t, "2026-03-18", stored.NextFollowUp.Format(dateLayout))

	_, err = svc.LogInteraction(context.Background(), salesman, e.ID, InteractionRequest{Action: "Email"})
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = svc.UpdateEnquiry(context.Background(), salesman, e.ID, UpdateRequest{Status: str("Lost"), LostReason: str("Budget")})
	require.NoError(t, err)
	_, err = svc.LogInteraction(context.Background(), salesman, e.ID, InteractionRequest{Action: "Visit"})
	assert.True(t, errors.Is(err, shared.ErrPreconditionFailed))
}

func TestUpdateEnquiryLogCounts(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	e := createLead(t, svc)
	before := len(repo.logs)

	_, err := svc.UpdateEnquiry(context.Background(), salesman, e.ID, UpdateRequest{
		Model: str("Glamour"), Status: str("Lost"), LostReason: str("Price"),
	})
	require.NoError(t, err)
	added := repo.logs[before:]
	assert.Equal(t, []Action{ActionPreferenceChange, ActionStatusChange}, actions(added))

	logs, err := svc.ListLogs(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	_, err = svc.ListLogs(context.Background(), 42)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestStatsAreCachedUntilChange(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	svc := newService(repo, cache.NewJSONCache(client, "enquiries", time.Minute))
	createLead(t, svc)
	ctx := context.Background()

	first, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Count{{Key: "Hot", Count: 1}}, first.OpenByTemperature)
	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.statsCalls)
	assert.True(t, mr.Exists("enquiries:stats"))

	createLead(t, svc)
	second, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.statsCalls)
	assert.Equal(t, []Count{{Key: "Hot", Count: 2}}, second.OpenByTemperature)
}

func TestListEnquiriesRejectsUnknownStatus(t *testing.T) {
	svc := newService(newMemoryRepo(), nil)
	_, err := svc.ListEnquiries(context.Background(), "maybe", "")
	assert.True(t, errors.Is(err, shared.ErrValidation))
}
