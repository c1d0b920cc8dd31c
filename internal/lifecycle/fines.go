package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/identity"
	"github.com/Spok95/parkaro/internal/storage"
)

// PayFine оплачивает штраф через шлюз. Сумма брони не меняется, платёж пишется отдельной строкой.
func (m *Manager) PayFine(ctx context.Context, p identity.Principal, fineID int64, now time.Time) (f *bookings.Fine, err error) {
	defer m.track("pay_fine", time.Now(), &err)

	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		cur, err := tx.GetFineForUpdate(ctx, fineID)
		if err != nil {
			return or(err, ErrFineNotFound)
		}
		b, err := tx.GetBooking(ctx, cur.BookingID)
		if err != nil {
			return or(err, ErrBookingNotFound)
		}
		if !p.Owns(b.UserID) {
			return ErrForbidden
		}
		if cur.Status != bookings.FineUnpaid {
			return ErrFinePaid
		}

		auth, err := m.authorize(ctx, b.ID, cur.Amount, fmt.Sprintf("fine #%d", cur.ID))
		if err != nil {
			return err
		}
		if err := tx.InsertPayment(ctx, &bookings.Payment{
			BookingID:    b.ID,
			Amount:       cur.Amount,
			Currency:     m.currency,
			Status:       bookings.PaymentSuccess,
			GatewayTxnID: auth.TxnID,
			Method:       bookings.MethodFine,
		}); err != nil {
			return err
		}
		if err := tx.MarkFinePaid(ctx, cur.ID, now); err != nil {
			if errors.Is(err, storage.ErrStale) {
				return ErrFinePaid
			}
			return err
		}
		cur.Status = bookings.FinePaid
		cur.PaidAt = &now
		f = cur
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pay fine %d: %w", fineID, err)
	}
	m.log.Info("fine paid", "fine_id", f.ID, "booking_id", f.BookingID, "amount", f.Amount.StringFixed(2))
	return f, nil
}
