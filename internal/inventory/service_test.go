package inventory

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showroom-dms/showroom/internal/shared"
)

type memoryRepo struct {
	vehicles  map[string]Vehicle
	batteries map[string]Battery
	nextID    int64
}

type memoryTx struct {
	repo      *memoryRepo
	vehicles  map[string]Vehicle
	batteries map[string]Battery
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{vehicles: map[string]Vehicle{}, batteries: map[string]Battery{}}
}

// WithTx stages writes and applies them only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, vehicles: map[string]Vehicle{}, batteries: map[string]Battery{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for k, v := range tx.vehicles {
		r.vehicles[k] = v
	}
	for k, b := range tx.batteries {
		r.batteries[k] = b
	}
	return nil
}

func (r *memoryRepo) ListVehicles(ctx context.Context, status StockStatus) ([]Vehicle, error) {
	var out []Vehicle
	for _, v := range r.vehicles {
		if status == "" || v.Status == status {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetVehicle(ctx context.Context, chassisNo string) (VehicleDetail, error) {
	v, ok := r.vehicles[chassisNo]
	if !ok {
		return VehicleDetail{}, shared.NotFound("vehicle", chassisNo)
	}
	return VehicleDetail{Stock: v}, nil
}

func (r *memoryRepo) ListBatteries(ctx context.Context, status StockStatus) ([]Battery, error) {
	var out []Battery
	for _, b := range r.batteries {
		if status == "" || b.Status == status {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InwardDate.Equal(out[j].InwardDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].InwardDate.Before(out[j].InwardDate)
	})
	return out, nil
}

func (r *memoryRepo) UpdateBattery(ctx context.Context, serialNo, batteryType string, status StockStatus) error {
	b, ok := r.batteries[serialNo]
	if !ok {
		return shared.NotFound("battery", serialNo)
	}
	b.Type = batteryType
	b.Status = status
	r.batteries[serialNo] = b
	return nil
}

func (tx *memoryTx) InsertVehicle(ctx context.Context, v Vehicle, createdBy string) (int64, error) {
	if _, ok := tx.repo.vehicles[v.ChassisNo]; ok {
		return 0, shared.Conflict("duplicate chassis number")
	}
	tx.repo.nextID++
	v.ID = tx.repo.nextID
	tx.vehicles[v.ChassisNo] = v
	return v.ID, nil
}

func (tx *memoryTx) InsertBattery(ctx context.Context, b Battery) (int64, error) {
	if _, ok := tx.repo.batteries[b.SerialNo]; ok {
		return 0, shared.Conflict("duplicate battery serial")
	}
	tx.repo.nextID++
	b.ID = tx.repo.nextID
	tx.batteries[b.SerialNo] = b
	return b.ID, nil
}

var storeman = shared.Actor{ID: 5, Name: "Store", Role: shared.RoleManager}

func inward(chassis, battery, date string) InwardRequest {
	return InwardRequest{
		ChassisNo:     chassis,
		EngineNo:      "ENG" + chassis,
		ModelVariant:  "Splendor Plus",
		PurchaseDate:  date,
		PurchasePrice: decimal.NewFromInt(65000),
		BatterySerial: battery,
	}
}

func TestParseStockStatus(t *testing.T) {
	cases := map[string]StockStatus{
		"Stock In":  StatusInStock,
		"In Stock":  StatusInStock,
		"available": StatusInStock,
		"IN_STOCK":  StatusInStock,
		"Sold":      StatusSold,
		"Stock Out": StatusStockOut,
		"STOCK_OUT": StatusStockOut,
	}
	for raw, want := range cases {
		got, err := ParseStockStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseStockStatus("lost at sea")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestInwardVehicleWithBattery(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	v, err := svc.InwardVehicle(context.Background(), storeman, inward("abc123", "bat-1", "2026-01-10"))
	require.NoError(t, err)
	assert.Equal(t, "ABC123", v.ChassisNo)
	assert.Equal(t, StatusInStock, v.Status)
	assert.Equal(t, "Showroom", v.Warehouse)
	require.Contains(t, repo.batteries, "BAT-1")
	assert.Equal(t, "4LB", repo.batteries["BAT-1"].Type)
}

func TestInwardDuplicateChassisRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	_, err := svc.InwardVehicle(context.Background(), storeman, inward("ABC123", "", "2026-01-10"))
	require.NoError(t, err)

	_, err = svc.InwardVehicle(context.Background(), storeman, inward("ABC123", "BAT-9", "2026-01-11"))
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.NotContains(t, repo.batteries, "BAT-9")
}

func TestInwardValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	req := inward("ABC123", "", "10/01/2026")
	_, err := svc.InwardVehicle(context.Background(), storeman, req)
	assert.ErrorIs(t, err, shared.ErrValidation)

	req = inward("ABC124", "", "2026-01-10")
	req.PurchasePrice = decimal.NewFromInt(-1)
	_, err = svc.InwardVehicle(context.Background(), storeman, req)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestNextBatteryIsFIFO(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	_, err := svc.InwardVehicle(ctx, storeman, inward("V2", "B-NEW", "2026-02-01"))
	require.NoError(t, err)
	_, err = svc.InwardVehicle(ctx, storeman, inward("V1", "B-OLD", "2026-01-01"))
	require.NoError(t, err)

	next, err := svc.NextBattery(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B-OLD", next.SerialNo)

	require.NoError(t, svc.UpdateBattery(ctx, "b-old", BatteryUpdate{Type: "5LB", Status: "Sold"}))
	next, err = svc.NextBattery(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B-NEW", next.SerialNo)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), next.InwardDate)
}

func TestListVehiclesRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.ListVehicles(context.Background(), "teleported")
	assert.ErrorIs(t, err, shared.ErrValidation)
}
