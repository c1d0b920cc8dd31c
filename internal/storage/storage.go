// Package storage описывает транзакционное хранилище, с которым работают
// менеджер броней и автоматические проходы. Реализации: postgres и memory.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/parkaro/internal/domain/availability"
	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/domain/pricing"
	"github.com/Spok95/parkaro/internal/domain/refunds"
	"github.com/Spok95/parkaro/internal/domain/vehicles"
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrStale — условное обновление не нашло строку в ожидаемом состоянии.
	ErrStale = errors.New("storage: row changed concurrently")
	// ErrOverlap — хранилище само отклонило пересекающуюся подтверждённую бронь.
	ErrOverlap = errors.New("storage: overlapping confirmed booking")
)

// Store выполняет fn в одной транзакции. Ошибка fn откатывает все изменения.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	GetLocation(ctx context.Context, id int64) (*locations.Location, error)
	GetSlot(ctx context.Context, id int64) (*locations.Slot, error)
	ListSlots(ctx context.Context, locationID int64) ([]locations.Slot, error)
	// LockSlot сериализует все транзакции, пишущие брони на это место.
	LockSlot(ctx context.Context, id int64) error
	// SetSlotStatus меняет административную блокировку места.
	SetSlotStatus(ctx context.Context, id int64, st locations.SlotStatus) error
	GetVehicle(ctx context.Context, id int64) (*vehicles.Vehicle, error)

	MaintenanceAt(ctx context.Context, locationID int64, at time.Time) ([]locations.MaintenanceLog, error)
	AddMaintenance(ctx context.Context, m *locations.MaintenanceLog) error
	CloseMaintenance(ctx context.Context, id int64, end time.Time) error

	PricingRules(ctx context.Context, locationID int64) ([]pricing.Rule, error)
	CancellationPolicies(ctx context.Context, locationID int64) ([]refunds.Policy, error)

	// ConfirmedWindows — подтверждённые брони на месте, пересекающие [from, to).
	ConfirmedWindows(ctx context.Context, slotID int64, from, to time.Time) ([]availability.Window, error)
	// ActiveWindows — подтверждённые брони парковки, идущие в момент at.
	ActiveWindows(ctx context.Context, locationID int64, at time.Time) ([]availability.Window, error)

	GetBooking(ctx context.Context, id int64) (*bookings.Booking, error)
	GetBookingForUpdate(ctx context.Context, id int64) (*bookings.Booking, error)
	InsertBooking(ctx context.Context, b *bookings.Booking) error
	ConfirmBooking(ctx context.Context, id int64, paid decimal.Decimal) error
	// SetStatus — переход from -> to; ErrStale, если статус уже другой.
	SetStatus(ctx context.Context, id int64, from, to bookings.Status) error
	ExtendBooking(ctx context.Context, id int64, newExit time.Time, extra decimal.Decimal) error
	// DeductPaid уменьшает amount_paid, не опуская ниже нуля.
	DeductPaid(ctx context.Context, id int64, amount decimal.Decimal) error
	// SetActualEntry возвращает false, если въезд уже отмечен.
	SetActualEntry(ctx context.Context, id int64, at time.Time) (bool, error)
	// SetActualExit отмечает выезд и завершает бронь; false, если нет въезда или выезд уже есть.
	SetActualExit(ctx context.Context, id int64, at time.Time) (bool, error)
	SaveTicket(ctx context.Context, id int64, blob []byte) error

	InsertPayment(ctx context.Context, p *bookings.Payment) error
	ListPayments(ctx context.Context, bookingID int64) ([]bookings.Payment, error)
	InsertExtension(ctx context.Context, e *bookings.Extension) error
	ListExtensions(ctx context.Context, bookingID int64) ([]bookings.Extension, error)
	InsertEntryExitLog(ctx context.Context, l *bookings.EntryExitLog) error

	// ExpirePending отменяет неоплаченные брони с истёкшим резервом, возвращает их.
	ExpirePending(ctx context.Context, now time.Time) ([]bookings.Booking, error)
	// Overdue — подтверждённые брони с expected exit раньше now.
	Overdue(ctx context.Context, now time.Time) ([]bookings.Booking, error)
	// EndingBetween — подтверждённые брони с expected exit в [from, to].
	EndingBetween(ctx context.Context, from, to time.Time) ([]bookings.Booking, error)
	// CreateFineIfNoneUnpaid вставляет штраф, только если у брони нет неоплаченного.
	CreateFineIfNoneUnpaid(ctx context.Context, f *bookings.Fine) (bool, error)
	GetFineForUpdate(ctx context.Context, id int64) (*bookings.Fine, error)
	MarkFinePaid(ctx context.Context, id int64, at time.Time) error
	ListFines(ctx context.Context, bookingID int64) ([]bookings.Fine, error)
}
