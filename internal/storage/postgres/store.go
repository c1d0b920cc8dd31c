// Package postgres реализует storage.Store поверх pgxpool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Spok95/parkaro/internal/domain/availability"
	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/domain/pricing"
	"github.com/Spok95/parkaro/internal/domain/refunds"
	"github.com/Spok95/parkaro/internal/domain/vehicles"
	"github.com/Spok95/parkaro/internal/infra/db"
	"github.com/Spok95/parkaro/internal/storage"
)

type Store struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", mapErr(err))
	}
	return nil
}

type pgTx struct {
	locations *locations.Repo
	vehicles  *vehicles.Repo
	pricing   *pricing.Repo
	refunds   *refunds.Repo
	bookings  *bookings.Repo
}

func newTx(tx pgx.Tx) *pgTx {
	return &pgTx{
		locations: locations.NewRepo(tx),
		vehicles:  vehicles.NewRepo(tx),
		pricing:   pricing.NewRepo(tx),
		refunds:   refunds.NewRepo(tx),
		bookings:  bookings.NewRepo(tx),
	}
}

func mapErr(err error) error {
	if db.IsCode(err, db.CodeExclusionViolation) {
		return fmt.Errorf("%w: %v", storage.ErrOverlap, err)
	}
	return err
}

func found[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func changed(ok bool, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if !ok {
		return storage.ErrStale
	}
	return nil
}

func (t *pgTx) GetLocation(ctx context.Context, id int64) (*locations.Location, error) {
	return found(t.locations.GetByID(ctx, id))
}

func (t *pgTx) GetSlot(ctx context.Context, id int64) (*locations.Slot, error) {
	return found(t.locations.GetSlot(ctx, id))
}

func (t *pgTx) ListSlots(ctx context.Context, locationID int64) ([]locations.Slot, error) {
	return t.locations.ListSlots(ctx, locationID)
}

func (t *pgTx) LockSlot(ctx context.Context, id int64) error {
	ok, err := t.locations.LockSlot(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) SetSlotStatus(ctx context.Context, id int64, st locations.SlotStatus) error {
	ok, err := t.locations.SetSlotStatus(ctx, id, st)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) GetVehicle(ctx context.Context, id int64) (*vehicles.Vehicle, error) {
	return found(t.vehicles.GetByID(ctx, id))
}

func (t *pgTx) MaintenanceAt(ctx context.Context, locationID int64, at time.Time) ([]locations.MaintenanceLog, error) {
	return t.locations.MaintenanceAt(ctx, locationID, at)
}

func (t *pgTx) AddMaintenance(ctx context.Context, m *locations.MaintenanceLog) error {
	return t.locations.AddMaintenance(ctx, m)
}

func (t *pgTx) CloseMaintenance(ctx context.Context, id int64, end time.Time) error {
	ok, err := t.locations.CloseMaintenance(ctx, id, end)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) PricingRules(ctx context.Context, locationID int64) ([]pricing.Rule, error) {
	return t.pricing.ForLocation(ctx, locationID)
}

func (t *pgTx) CancellationPolicies(ctx context.Context, locationID int64) ([]refunds.Policy, error) {
	return t.refunds.ForLocation(ctx, locationID)
}

func (t *pgTx) ConfirmedWindows(ctx context.Context, slotID int64, from, to time.Time) ([]availability.Window, error) {
	return t.bookings.ConfirmedWindows(ctx, slotID, from, to)
}

func (t *pgTx) ActiveWindows(ctx context.Context, locationID int64, at time.Time) ([]availability.Window, error) {
	return t.bookings.ActiveWindows(ctx, locationID, at)
}

func (t *pgTx) GetBooking(ctx context.Context, id int64) (*bookings.Booking, error) {
	return found(t.bookings.GetByID(ctx, id))
}

func (t *pgTx) GetBookingForUpdate(ctx context.Context, id int64) (*bookings.Booking, error) {
	return found(t.bookings.GetForUpdate(ctx, id))
}

func (t *pgTx) InsertBooking(ctx context.Context, b *bookings.Booking) error {
	return t.bookings.Insert(ctx, b)
}

func (t *pgTx) ConfirmBooking(ctx context.Context, id int64, paid decimal.Decimal) error {
	return changed(t.bookings.Confirm(ctx, id, paid))
}

func (t *pgTx) SetStatus(ctx context.Context, id int64, from, to bookings.Status) error {
	return changed(t.bookings.SetStatus(ctx, id, from, to))
}

func (t *pgTx) ExtendBooking(ctx context.Context, id int64, newExit time.Time, extra decimal.Decimal) error {
	return changed(t.bookings.Extend(ctx, id, newExit, extra))
}

func (t *pgTx) DeductPaid(ctx context.Context, id int64, amount decimal.Decimal) error {
	return changed(t.bookings.DeductPaid(ctx, id, amount))
}

func (t *pgTx) SetActualEntry(ctx context.Context, id int64, at time.Time) (bool, error) {
	return t.bookings.SetActualEntry(ctx, id, at)
}

func (t *pgTx) SetActualExit(ctx context.Context, id int64, at time.Time) (bool, error) {
	return t.bookings.SetActualExit(ctx, id, at)
}

func (t *pgTx) SaveTicket(ctx context.Context, id int64, blob []byte) error {
	return t.bookings.SaveTicket(ctx, id, blob)
}

func (t *pgTx) InsertPayment(ctx context.Context, p *bookings.Payment) error {
	return t.bookings.InsertPayment(ctx, p)
}

func (t *pgTx) ListPayments(ctx context.Context, bookingID int64) ([]bookings.Payment, error) {
	return t.bookings.ListPayments(ctx, bookingID)
}

func (t *pgTx) InsertExtension(ctx context.Context, e *bookings.Extension) error {
	return t.bookings.InsertExtension(ctx, e)
}

func (t *pgTx) ListExtensions(ctx context.Context, bookingID int64) ([]bookings.Extension, error) {
	return t.bookings.ListExtensions(ctx, bookingID)
}

func (t *pgTx) InsertEntryExitLog(ctx context.Context, l *bookings.EntryExitLog) error {
	return t.bookings.InsertEntryExitLog(ctx, l)
}

func (t *pgTx) ExpirePending(ctx context.Context, now time.Time) ([]bookings.Booking, error) {
	return t.bookings.ExpirePending(ctx, now)
}

func (t *pgTx) Overdue(ctx context.Context, now time.Time) ([]bookings.Booking, error) {
	return t.bookings.Overdue(ctx, now)
}

func (t *pgTx) EndingBetween(ctx context.Context, from, to time.Time) ([]bookings.Booking, error) {
	return t.bookings.EndingBetween(ctx, from, to)
}

func (t *pgTx) CreateFineIfNoneUnpaid(ctx context.Context, f *bookings.Fine) (bool, error) {
	return t.bookings.CreateFineIfNoneUnpaid(ctx, f)
}

func (t *pgTx) GetFineForUpdate(ctx context.Context, id int64) (*bookings.Fine, error) {
	return found(t.bookings.GetFineForUpdate(ctx, id))
}

func (t *pgTx) MarkFinePaid(ctx context.Context, id int64, at time.Time) error {
	return changed(t.bookings.MarkFinePaid(ctx, id, at))
}

func (t *pgTx) ListFines(ctx context.Context, bookingID int64) ([]bookings.Fine, error) {
	return t.bookings.ListFines(ctx, bookingID)
}
