package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/observability"
	"github.com/showroom-dms/showroom/internal/shared"
)

// memoryStore backs both the repository and the ledger port so the gate sees
// the same figures inside and outside the transaction.
type memoryStore struct {
	sales      map[string]SaleState
	vehicles   map[string]string
	inputs     map[int64]ledger.Inputs
	enquiries  map[int64]int
	audits     []shared.AuditLog
	stockOuts  int
	convertErr error
}

type memoryTx struct {
	store     *memoryStore
	delivered map[string]SaleState
	vehicles  map[string]string
	converted map[int64]int
	audits    []shared.AuditLog
	stockOuts int
}

func newStore() *memoryStore {
	return &memoryStore{
		sales:     map[string]SaleState{},
		vehicles:  map[string]string{},
		inputs:    map[int64]ledger.Inputs{},
		enquiries: map[int64]int{},
	}
}

func (s *memoryStore) addSale(id, customerID int64, chassis string, mode ledger.PaymentMode, total int64) {
	s.sales[chassis] = SaleState{ID: id, CustomerID: customerID, CustomerName: "Ravi Kumar", ChassisNo: chassis}
	s.vehicles[chassis] = "SOLD"
	in := s.inputs[customerID]
	in.CustomerID = customerID
	in.Sales = append(in.Sales, ledger.SaleCharge{SaleID: id, ChassisNo: chassis, GrandTotal: decimal.NewFromInt(total), Mode: mode})
	s.inputs[customerID] = in
}

func (s *memoryStore) pay(customerID, amount int64) {
	in := s.inputs[customerID]
	in.TotalPaid = in.TotalPaid.Add(decimal.NewFromInt(amount))
	s.inputs[customerID] = in
}

func (s *memoryStore) approveCredit(customerID, amount int64) {
	in := s.inputs[customerID]
	in.CreditApproved = in.CreditApproved.Add(decimal.NewFromInt(amount))
	s.inputs[customerID] = in
}

func (s *memoryStore) disburse(customerID, saleID, amount int64) {
	in := s.inputs[customerID]
	for i := range in.Sales {
		if in.Sales[i].SaleID == saleID {
			d := decimal.NewFromInt(amount)
			in.Sales[i].Disbursed = &d
		}
	}
	s.inputs[customerID] = in
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{store: s, delivered: map[string]SaleState{}, vehicles: map[string]string{}, converted: map[int64]int{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for k, v := range tx.delivered {
		s.sales[k] = v
	}
	for k, v := range tx.vehicles {
		s.vehicles[k] = v
	}
	for k, n := range tx.converted {
		s.enquiries[k] -= n
	}
	s.audits = append(s.audits, tx.audits...)
	s.stockOuts += tx.stockOuts
	return nil
}

func (s *memoryStore) FindSale(ctx context.Context, chassisNo string) (SaleState, error) {
	sale, ok := s.sales[chassisNo]
	if !ok {
		return SaleState{}, shared.NotFound("sale", chassisNo)
	}
	return sale, nil
}

func (s *memoryStore) ComputeLedgerForSale(ctx context.Context, chassisNo string) (ledger.Summary, error) {
	sale, err := s.FindSale(ctx, chassisNo)
	if err != nil {
		return ledger.Summary{}, err
	}
	in := s.inputs[sale.CustomerID]
	in.FocusSaleID = sale.ID
	return ledger.Aggregate(in, s.Tolerance()), nil
}

func (s *memoryStore) Tolerance() decimal.Decimal {
	return decimal.NewFromInt(10)
}

func (tx *memoryTx) LockSale(ctx context.Context, chassisNo string) (SaleState, error) {
	return tx.store.FindSale(ctx, chassisNo)
}

func (tx *memoryTx) LedgerInputs(ctx context.Context, customerID int64) (ledger.Inputs, error) {
	return tx.store.inputs[customerID], nil
}

func (tx *memoryTx) MarkDelivered(ctx context.Context, saleID int64, gatePassID string, at time.Time) error {
	for chassis, sale := range tx.store.sales {
		if sale.ID == saleID {
			sale.GatePassID = gatePassID
			sale.GatePassDate = &at
			tx.delivered[chassis] = sale
			return nil
		}
	}
	return shared.NotFound("sale", saleID)
}

func (tx *memoryTx) MarkVehicleStockOut(ctx context.Context, chassisNo string) error {
	if tx.store.vehicles[chassisNo] != "SOLD" {
		return shared.Conflict("vehicle %s is not sold", chassisNo)
	}
	tx.vehicles[chassisNo] = "STOCK_OUT"
	tx.stockOuts++
	return nil
}

func (tx *memoryTx) ConvertEnquiries(ctx context.Context, customerID int64, actorName, gatePassID string) (int, error) {
	if tx.store.convertErr != nil {
		return 0, tx.store.convertErr
	}
	n := tx.store.enquiries[customerID]
	tx.converted[customerID] = n
	return n, nil
}

func (tx *memoryTx) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	tx.audits = append(tx.audits, log)
	return nil
}

var accountsActor = shared.Actor{ID: 3, Name: "Meena", Role: shared.RoleAccounts}

func newGate(store *memoryStore) *Service {
	svc := NewService(store, store, observability.NewMetrics(), nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestGatePassRejectedWhileBalanceOutstanding(t *testing.T) {
	store := newStore()
	store.addSale(1, 10, "ABC123", ledger.ModeCash, 100000)
	store.pay(10, 60000)
	svc := newGate(store)

	elig, err := svc.CanIssueGatePass(context.Background(), "abc123")
	require.NoError(t, err)
	assert.False(t, elig.Allowed)
	assert.Contains(t, elig.Reason, "40000.00")
	assert.True(t, elig.Ledger.GlobalBalance.Equal(decimal.NewFromInt(40000)))

	_, err = svc.IssueGatePass(context.Background(), accountsActor, "ABC123")
	assert.True(t, errors.Is(err, shared.ErrPreconditionFailed))
	assert.Equal(t, "SOLD", store.vehicles["ABC123"])
	assert.False(t, store.sales["ABC123"].Issued())
	assert.Empty(t, store.audits)
}

func TestGatePassAfterCreditApproval(t *testing.T) {
	store := newStore()
	store.addSale(1, 10, "ABC123", ledger.ModeCash, 100000)
	store.pay(10, 60000)
	store.enquiries[10] = 1
	store.approveCredit(10, 40000)
	svc := newGate(store)

	elig, err := svc.CanIssueGatePass(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.True(t, elig.Allowed)
	assert.True(t, elig.Ledger.IsFullyPaid)

	pass, err := svc.IssueGatePass(context.Background(), accountsActor, "ABC123")
	require.NoError(t, err)
	assert.False(t, pass.Reprint)
	assert.Equal(t, "GP-20260314-", pass.ID[:12])
	assert.Len(t, pass.ID, 20)
	assert.Equal(t, 1, pass.ConvertedEnquiries)
	assert.Equal(t, "STOCK_OUT", store.vehicles["ABC123"])
	assert.Equal(t, pass.ID, store.sales["ABC123"].GatePassID)
	require.Len(t, store.audits, 1)
	assert.Equal(t, shared.AuditGatePassIssued, store.audits[0].Action)
	assert.Equal(t, "ABC123", store.audits[0].EntityID)
}

func TestGatePassIsIdempotent(t *testing.T) {
	store := newStore()
	store.addSale(1, 10, "ABC123", ledger.ModeCash, 50000)
	store.pay(10, 50000)
	svc := newGate(store)

	first, err := svc.IssueGatePass(context.Background(), accountsActor, "ABC123")
	require.NoError(t, err)
	second, err := svc.IssueGatePass(context.Background(), accountsActor, "ABC123")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Reprint)
	assert.Equal(t, first.IssuedAt, second.IssuedAt)
	assert.Equal(t, 1, store.stockOuts)
	assert.Len(t, store.audits, 1)

	elig, err := svc.CanIssueGatePass(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.True(t, elig.Allowed)
	assert.Equal(t, first.ID, elig.GatePassID)
}

func TestIssueRunsReadCommitted(t *testing.T) {
	// A second issuer waiting on the sale row lock must see the committed
	// gate pass; repeatable read would fail it with 40001 instead.
	assert.Equal(t, pgx.ReadCommitted, issueIsoLevel)
}

func TestGatePassBlockedByPendingFinance(t *testing.T) {
	store := newStore()
	store.addSale(2, 11, "FIN001", ledger.ModeFinance, 100000)
	store.disburse(11, 2, 0)
	store.pay(11, 100000)
	svc := newGate(store)

	elig, err := svc.CanIssueGatePass(context.Background(), "FIN001")
	require.NoError(t, err)
	assert.True(t, elig.Ledger.IsFullyPaid)
	assert.False(t, elig.Allowed)
	assert.Equal(t, "finance disbursement pending", elig.Reason)

	_, err = svc.IssueGatePass(context.Background(), accountsActor, "FIN001")
	assert.True(t, errors.Is(err, shared.ErrPreconditionFailed))

	store.disburse(11, 2, 1)
	_, err = svc.IssueGatePass(context.Background(), accountsActor, "FIN001")
	require.NoError(t, err)
	assert.Equal(t, "STOCK_OUT", store.vehicles["FIN001"])
}

func TestGatePassRollsBackOnFailure(t *testing.T) {
	store := newStore()
	store.addSale(1, 10, "ABC123", ledger.ModeCash, 50000)
	store.pay(10, 50000)
	store.convertErr = shared.TransactionFailure(errors.New("deadlock"))
	svc := newGate(store)

	_, err := svc.IssueGatePass(context.Background(), accountsActor, "ABC123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrTransactionFailure))
	assert.Equal(t, "SOLD", store.vehicles["ABC123"])
	assert.False(t, store.sales["ABC123"].Issued())
	assert.Empty(t, store.audits)
}

func TestGatePassUnknownSale(t *testing.T) {
	svc := newGate(newStore())
	_, err := svc.IssueGatePass(context.Background(), accountsActor, "NOPE")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = svc.IssueGatePass(context.Background(), accountsActor, "  ")
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestNewGatePassIDFormat(t *testing.T) {
	id := NewGatePassID(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, `^GP-20260102-[0-9A-F]{8}$`, id)
}
