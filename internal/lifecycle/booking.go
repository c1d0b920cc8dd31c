package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/parkaro/internal/domain/availability"
	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/identity"
	"github.com/Spok95/parkaro/internal/notify"
	"github.com/Spok95/parkaro/internal/storage"
)

type CreateRequest struct {
	LocationID int64
	SlotID     int64
	VehicleID  int64
	Entry      time.Time
	Exit       time.Time
}

// Create резервирует место, сразу проводит оплату и подтверждает бронь.
// Всё до подтверждения выполняется в одной транзакции под блокировкой места.
func (m *Manager) Create(ctx context.Context, p identity.Principal, req CreateRequest, now time.Time) (b *bookings.Booking, err error) {
	defer m.track("create", time.Now(), &err)

	if !req.Exit.After(req.Entry) {
		return nil, ErrBadWindow
	}

	var slot *locations.Slot
	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		loc, err := tx.GetLocation(ctx, req.LocationID)
		if err != nil {
			return or(err, ErrLocationNotFound)
		}
		if !loc.Active {
			return ErrLocationInactive
		}

		if err := tx.LockSlot(ctx, req.SlotID); err != nil {
			return or(err, ErrSlotNotFound)
		}
		slot, err = tx.GetSlot(ctx, req.SlotID)
		if err != nil {
			return or(err, ErrSlotNotFound)
		}
		if slot.LocationID != loc.ID {
			return ErrSlotNotFound
		}

		v, err := tx.GetVehicle(ctx, req.VehicleID)
		if err != nil {
			return or(err, ErrVehicleNotFound)
		}
		if !p.Owns(v.OwnerID) {
			return ErrVehicleNotFound
		}
		if !slot.Accepts(v.Type) {
			return ErrVehicleNotAllowed
		}
		if slot.Status.Blocked() {
			return ErrSlotBlocked
		}

		free, err := availability.Checker{}.IsAvailable(ctx, tx, slot.ID, req.Entry, req.Exit, 0)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotTaken
		}

		rules, err := tx.PricingRules(ctx, loc.ID)
		if err != nil {
			return err
		}
		q := m.pricing.Quote(*loc, rules, req.Entry, req.Exit)

		expires := now.Add(m.reservationTTL)
		b = &bookings.Booking{
			UserID:               v.OwnerID,
			VehicleID:            v.ID,
			LocationID:           loc.ID,
			SlotID:               slot.ID,
			Status:               bookings.StatusPendingPayment,
			EntryExpected:        req.Entry,
			ExitExpected:         req.Exit,
			DurationHours:        q.Hours,
			AmountExpected:       q.Amount,
			ReservationExpiresAt: &expires,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}

		auth, err := m.authorize(ctx, b.ID, q.Amount, "booking #"+fmt.Sprint(b.ID))
		if err != nil {
			return err
		}
		if err := tx.InsertPayment(ctx, &bookings.Payment{
			BookingID:    b.ID,
			Amount:       q.Amount,
			Currency:     m.currency,
			Status:       bookings.PaymentSuccess,
			GatewayTxnID: auth.TxnID,
			Method:       bookings.MethodGateway,
		}); err != nil {
			return err
		}
		if err := tx.ConfirmBooking(ctx, b.ID, q.Amount); err != nil {
			return translate(err)
		}

		b, err = tx.GetBooking(ctx, b.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", translate(err))
	}

	m.log.Info("booking confirmed", "booking_id", b.ID, "slot_id", b.SlotID, "amount", b.AmountPaid.StringFixed(2))
	m.issueTicket(ctx, b)
	m.notify(ctx, notify.Notification{
		UserID:    b.UserID,
		BookingID: b.ID,
		Type:      notify.TypeBookingConfirmation,
		Channel:   notify.ChannelEmail,
		Message: fmt.Sprintf("Booking #%d confirmed: slot %s, %s - %s, paid %s %s",
			b.ID, slotLabel(slot), b.EntryExpected.Format(time.RFC3339), b.ExitExpected.Format(time.RFC3339),
			b.AmountPaid.StringFixed(2), m.currency),
	})
	return b, nil
}

// Extend продлевает подтверждённую бронь до newExit с доплатой.
func (m *Manager) Extend(ctx context.Context, p identity.Principal, bookingID int64, newExit time.Time, now time.Time) (b *bookings.Booking, err error) {
	defer m.track("extend", time.Now(), &err)

	var ext bookings.Extension
	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		cur, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return or(err, ErrBookingNotFound)
		}
		if !p.Owns(cur.UserID) {
			return ErrForbidden
		}
		if cur.Status != bookings.StatusConfirmed {
			return ErrNotConfirmed
		}
		if !newExit.After(cur.ExitExpected) {
			return ErrExitNotAfter
		}
		if !newExit.After(now) {
			return ErrExitInPast
		}

		if err := tx.LockSlot(ctx, cur.SlotID); err != nil {
			return or(err, ErrSlotNotFound)
		}
		free, err := availability.Checker{}.IsAvailable(ctx, tx, cur.SlotID, cur.ExitExpected, newExit, cur.ID)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotTaken
		}

		loc, err := tx.GetLocation(ctx, cur.LocationID)
		if err != nil {
			return or(err, ErrLocationNotFound)
		}
		rules, err := tx.PricingRules(ctx, loc.ID)
		if err != nil {
			return err
		}
		q := m.pricing.QuoteExtension(*loc, rules, cur.ExitExpected, newExit)

		auth, err := m.authorize(ctx, cur.ID, q.Amount, "extension of booking #"+fmt.Sprint(cur.ID))
		if err != nil {
			return err
		}
		pay := bookings.Payment{
			BookingID:    cur.ID,
			Amount:       q.Amount,
			Currency:     m.currency,
			Status:       bookings.PaymentSuccess,
			GatewayTxnID: auth.TxnID,
			Method:       bookings.MethodGateway,
		}
		if err := tx.InsertPayment(ctx, &pay); err != nil {
			return err
		}
		ext = bookings.Extension{BookingID: cur.ID, ExtraHours: q.Hours, ExtraAmount: q.Amount, PaymentID: pay.ID}
		if err := tx.InsertExtension(ctx, &ext); err != nil {
			return err
		}
		if err := tx.ExtendBooking(ctx, cur.ID, newExit, q.Amount); err != nil {
			return translate(err)
		}

		b, err = tx.GetBooking(ctx, cur.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("extend booking %d: %w", bookingID, translate(err))
	}

	m.log.Info("booking extended", "booking_id", b.ID, "extra_hours", ext.ExtraHours.String(), "extra_amount", ext.ExtraAmount.StringFixed(2))
	return b, nil
}
