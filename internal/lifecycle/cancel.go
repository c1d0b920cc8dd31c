package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/refunds"
	"github.com/Spok95/parkaro/internal/identity"
	"github.com/Spok95/parkaro/internal/notify"
	"github.com/Spok95/parkaro/internal/storage"
)

// CancellationQuote — сколько вернётся при отмене в момент Now.
type CancellationQuote struct {
	BookingID     int64
	Now           time.Time
	MinutesBefore float64
	Policy        *refunds.Policy
	Percentage    decimal.Decimal
	Refundable    decimal.Decimal
}

// quoteCancellation проверяет, что бронь можно отменить, и считает возврат.
func quoteCancellation(ctx context.Context, tx storage.Tx, b *bookings.Booking, now time.Time) (CancellationQuote, error) {
	q := CancellationQuote{BookingID: b.ID, Now: now, Percentage: decimal.Zero, Refundable: decimal.Zero}
	if b.Status != bookings.StatusConfirmed {
		return q, ErrNotConfirmed
	}
	if !now.Before(b.EntryExpected) {
		return q, ErrAlreadyStarted
	}

	policies, err := tx.CancellationPolicies(ctx, b.LocationID)
	if err != nil {
		return q, err
	}
	q.MinutesBefore = b.EntryExpected.Sub(now).Minutes()
	if p, ok := refunds.Resolve(policies, b.LocationID, q.MinutesBefore); ok {
		q.Policy = &p
		q.Percentage = p.RefundPercentage
	}
	q.Refundable = refunds.Refundable(b.AmountPaid, q.Percentage)
	return q, nil
}

// QuoteCancellation ничего не пишет; показывает условия возврата перед отменой.
func (m *Manager) QuoteCancellation(ctx context.Context, p identity.Principal, bookingID int64, now time.Time) (CancellationQuote, error) {
	var q CancellationQuote
	err := m.store.InTx(ctx, func(tx storage.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return or(err, ErrBookingNotFound)
		}
		if !p.Owns(b.UserID) {
			return ErrForbidden
		}
		q, err = quoteCancellation(ctx, tx, b, now)
		return err
	})
	if err != nil {
		return q, fmt.Errorf("quote cancellation %d: %w", bookingID, err)
	}
	return q, nil
}

type CancelResult struct {
	Booking *bookings.Booking
	Quote   CancellationQuote
	// Refund — запись возврата, nil если возвращать нечего.
	Refund *bookings.Payment
}

// Cancel отменяет будущую подтверждённую бронь и возвращает часть оплаты по политике.
func (m *Manager) Cancel(ctx context.Context, p identity.Principal, bookingID int64, now time.Time) (res CancelResult, err error) {
	defer m.track("cancel", time.Now(), &err)

	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return or(err, ErrBookingNotFound)
		}
		if !p.Owns(b.UserID) {
			return ErrForbidden
		}
		q, err := quoteCancellation(ctx, tx, b, now)
		if err != nil {
			return err
		}
		res.Quote = q

		if q.Refundable.IsPositive() {
			refund := bookings.Payment{
				BookingID: b.ID,
				Amount:    q.Refundable,
				Currency:  m.currency,
				Status:    bookings.PaymentRefunded,
				Method:    bookings.MethodRefund,
			}
			if err := tx.InsertPayment(ctx, &refund); err != nil {
				return err
			}
			if err := tx.DeductPaid(ctx, b.ID, q.Refundable); err != nil {
				return translate(err)
			}
			res.Refund = &refund
		}
		if err := tx.SetStatus(ctx, b.ID, bookings.StatusConfirmed, bookings.StatusCancelled); err != nil {
			return translate(err)
		}

		res.Booking, err = tx.GetBooking(ctx, b.ID)
		return err
	})
	if err != nil {
		return CancelResult{}, fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}

	b := res.Booking
	m.log.Info("booking cancelled", "booking_id", b.ID, "refund", res.Quote.Refundable.StringFixed(2), "pct", res.Quote.Percentage.String())
	m.notify(ctx, notify.Notification{
		UserID:    b.UserID,
		BookingID: b.ID,
		Type:      notify.TypeCancellation,
		Channel:   notify.ChannelEmail,
		Message: fmt.Sprintf("Booking #%d cancelled, refund %s %s (%s%%)",
			b.ID, res.Quote.Refundable.StringFixed(2), m.currency, res.Quote.Percentage.StringFixed(0)),
	})
	return res, nil
}
