package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/showroom-dms/showroom/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListVehicles(ctx context.Context, status StockStatus) ([]Vehicle, error)
	GetVehicle(ctx context.Context, chassisNo string) (VehicleDetail, error)
	ListBatteries(ctx context.Context, status StockStatus) ([]Battery, error)
	UpdateBattery(ctx context.Context, serialNo, batteryType string, status StockStatus) error
}

// Service coordinates vehicle and battery stock.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// InwardVehicle registers a purchased vehicle, and its battery when supplied,
// in one transaction.
func (s *Service) InwardVehicle(ctx context.Context, actor shared.Actor, req InwardRequest) (Vehicle, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Vehicle{}, err
	}
	if req.PurchasePrice.IsNegative() {
		return Vehicle{}, shared.Invalid("purchase_price", "must not be negative")
	}
	if req.Discount.IsNegative() {
		return Vehicle{}, shared.Invalid("discount", "must not be negative")
	}
	purchased, err := time.Parse("2006-01-02", req.PurchaseDate)
	if err != nil {
		return Vehicle{}, shared.Invalid("purchase_date", "must be YYYY-MM-DD")
	}
	warehouse := strings.TrimSpace(req.Warehouse)
	if warehouse == "" {
		warehouse = "Showroom"
	}
	v := Vehicle{
		ChassisNo:        strings.ToUpper(strings.TrimSpace(req.ChassisNo)),
		EngineNo:         strings.ToUpper(strings.TrimSpace(req.EngineNo)),
		ModelVariant:     strings.TrimSpace(req.ModelVariant),
		Color:            strings.TrimSpace(req.Color),
		KeyNo:            strings.TrimSpace(req.KeyNo),
		PurchaseDate:     purchased,
		PurchasePrice:    req.PurchasePrice,
		PurchaseDiscount: req.Discount,
		Supplier:         strings.TrimSpace(req.Supplier),
		Warehouse:        warehouse,
		Status:           StatusInStock,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertVehicle(ctx, v, actor.Name)
		if err != nil {
			return err
		}
		v.ID = id
		serial := strings.ToUpper(strings.TrimSpace(req.BatterySerial))
		if serial == "" {
			return nil
		}
		batteryType := strings.TrimSpace(req.BatteryType)
		if batteryType == "" {
			batteryType = "4LB"
		}
		_, err = tx.InsertBattery(ctx, Battery{SerialNo: serial, Type: batteryType, InwardDate: purchased, Status: StatusInStock})
		return err
	})
	if err != nil {
		return Vehicle{}, err
	}
	return v, nil
}

// ListVehicles lists vehicles, optionally filtered by a status spelling.
func (s *Service) ListVehicles(ctx context.Context, rawStatus string) ([]Vehicle, error) {
	status, err := optionalStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	return s.repo.ListVehicles(ctx, status)
}

// GetVehicle returns stock and sale information for a chassis number.
func (s *Service) GetVehicle(ctx context.Context, chassisNo string) (VehicleDetail, error) {
	return s.repo.GetVehicle(ctx, strings.ToUpper(strings.TrimSpace(chassisNo)))
}

// ListBatteries lists batteries FIFO, optionally filtered by status.
func (s *Service) ListBatteries(ctx context.Context, rawStatus string) ([]Battery, error) {
	status, err := optionalStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBatteries(ctx, status)
}

// NextBattery returns the oldest in-stock battery.
func (s *Service) NextBattery(ctx context.Context) (Battery, error) {
	list, err := s.repo.ListBatteries(ctx, StatusInStock)
	if err != nil {
		return Battery{}, err
	}
	if len(list) == 0 {
		return Battery{}, shared.NotFound("battery", "in stock")
	}
	return list[0], nil
}

// UpdateBattery edits a battery.
func (s *Service) UpdateBattery(ctx context.Context, serialNo string, req BatteryUpdate) error {
	if err := shared.ValidateStruct(req); err != nil {
		return err
	}
	status, err := ParseStockStatus(req.Status)
	if err != nil {
		return shared.Invalid("status", "unknown stock status %q", req.Status)
	}
	return s.repo.UpdateBattery(ctx, strings.ToUpper(strings.TrimSpace(serialNo)), strings.TrimSpace(req.Type), status)
}

func optionalStatus(raw string) (StockStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	status, err := ParseStockStatus(raw)
	if err != nil {
		return "", shared.Invalid("status", "unknown stock status %q", raw)
	}
	return status, nil
}
