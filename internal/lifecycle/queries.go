package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/parkaro/internal/domain/availability"
	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/identity"
	"github.com/Spok95/parkaro/internal/storage"
)

type BookingView struct {
	Booking    bookings.Booking
	Payments   []bookings.Payment
	Extensions []bookings.Extension
	Fines      []bookings.Fine
}

func (m *Manager) GetBooking(ctx context.Context, p identity.Principal, bookingID int64) (BookingView, error) {
	var v BookingView
	err := m.store.InTx(ctx, func(tx storage.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return or(err, ErrBookingNotFound)
		}
		if !p.Owns(b.UserID) {
			return ErrForbidden
		}
		v.Booking = *b
		if v.Payments, err = tx.ListPayments(ctx, b.ID); err != nil {
			return err
		}
		if v.Extensions, err = tx.ListExtensions(ctx, b.ID); err != nil {
			return err
		}
		v.Fines, err = tx.ListFines(ctx, b.ID)
		return err
	})
	if err != nil {
		return BookingView{}, fmt.Errorf("get booking %d: %w", bookingID, err)
	}
	return v, nil
}

type SlotView struct {
	Slot locations.Slot
	Live locations.SlotStatus
}

// LiveSlots — витрина мест парковки на момент now. Для допуска брони не используется.
func (m *Manager) LiveSlots(ctx context.Context, locationID int64, now time.Time) ([]SlotView, error) {
	var out []SlotView
	err := m.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetLocation(ctx, locationID); err != nil {
			return or(err, ErrLocationNotFound)
		}
		slots, err := tx.ListSlots(ctx, locationID)
		if err != nil {
			return err
		}
		maint, err := tx.MaintenanceAt(ctx, locationID, now)
		if err != nil {
			return err
		}
		active, err := tx.ActiveWindows(ctx, locationID, now)
		if err != nil {
			return err
		}
		out = make([]SlotView, 0, len(slots))
		for _, s := range slots {
			out = append(out, SlotView{Slot: s, Live: availability.LiveStatus(s, maint, active, now)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("live slots %d: %w", locationID, err)
	}
	return out, nil
}

// StartMaintenance открывает запись обслуживания места; end == nil — до ручного закрытия.
func (m *Manager) StartMaintenance(ctx context.Context, p identity.Principal, slotID int64, start time.Time, end *time.Time, reason string) (*locations.MaintenanceLog, error) {
	if !p.Staff {
		return nil, ErrForbidden
	}
	if end != nil && end.Before(start) {
		return nil, ErrBadWindow
	}
	rec := &locations.MaintenanceLog{SlotID: slotID, Start: start, End: end, Reason: reason}
	err := m.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetSlot(ctx, slotID); err != nil {
			return or(err, ErrSlotNotFound)
		}
		return tx.AddMaintenance(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("start maintenance on slot %d: %w", slotID, err)
	}
	m.log.Info("maintenance started", "slot_id", slotID, "maintenance_id", rec.ID, "reason", reason)
	return rec, nil
}

func (m *Manager) EndMaintenance(ctx context.Context, p identity.Principal, id int64, end time.Time) error {
	if !p.Staff {
		return ErrForbidden
	}
	err := m.store.InTx(ctx, func(tx storage.Tx) error {
		return or(tx.CloseMaintenance(ctx, id, end), ErrMaintenanceNotFound)
	})
	if err != nil {
		return fmt.Errorf("end maintenance %d: %w", id, err)
	}
	return nil
}

// SetSlotStatus ставит или снимает ручную блокировку места. BOOKED вручную не ставится:
// занятость считается по броням.
func (m *Manager) SetSlotStatus(ctx context.Context, p identity.Principal, slotID int64, st locations.SlotStatus) error {
	if !p.Staff {
		return ErrForbidden
	}
	if st != locations.SlotAvailable && !st.Blocked() {
		return ErrBadSlotStatus
	}
	err := m.store.InTx(ctx, func(tx storage.Tx) error {
		return or(tx.SetSlotStatus(ctx, slotID, st), ErrSlotNotFound)
	})
	if err != nil {
		return fmt.Errorf("set slot %d status: %w", slotID, err)
	}
	m.log.Info("slot status changed", "slot_id", slotID, "status", st)
	return nil
}
