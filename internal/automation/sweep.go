// Package automation — периодические проходы по броням: истечение резерва,
// штрафы за просрочку, напоминания. Все проходы можно безопасно перезапускать.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/infra/metrics"
	"github.com/Spok95/parkaro/internal/notify"
	"github.com/Spok95/parkaro/internal/storage"
)

const (
	DefaultOvertimeReason = "Overstay beyond booked time"
	DefaultReminderWindow = 30 * time.Minute
)

type Sweeper struct {
	store          storage.Store
	notifier       notify.Notifier
	log            *slog.Logger
	overtimeReason string
	reminderWindow time.Duration
	notifyTimeout  time.Duration
}

func New(store storage.Store, n notify.Notifier, log *slog.Logger) *Sweeper {
	return &Sweeper{
		store:          store,
		notifier:       n,
		log:            log,
		overtimeReason: DefaultOvertimeReason,
		reminderWindow: DefaultReminderWindow,
		notifyTimeout:  notify.DefaultTimeout,
	}
}

func (s *Sweeper) WithOvertimeReason(r string) *Sweeper {
	if r != "" {
		s.overtimeReason = r
	}
	return s
}

func (s *Sweeper) WithReminderWindow(d time.Duration) *Sweeper {
	if d > 0 {
		s.reminderWindow = d
	}
	return s
}

// WithNotifyTimeout ограничивает ожидание каждого уведомления.
func (s *Sweeper) WithNotifyTimeout(d time.Duration) *Sweeper {
	if d > 0 {
		s.notifyTimeout = d
	}
	return s
}

func (s *Sweeper) notify(ctx context.Context, n notify.Notification) {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, n); err != nil {
		metrics.NotifyFailures.WithLabelValues(string(n.Type)).Inc()
		s.log.Warn("notification failed", "type", n.Type, "booking_id", n.BookingID, "err", err)
	}
}

// Expiry отменяет неоплаченные брони с истёкшим резервом. Возврата нет: ничего не платили.
func (s *Sweeper) Expiry(ctx context.Context, now time.Time) (int, error) {
	var expired []bookings.Booking
	err := s.store.InTx(ctx, func(tx storage.Tx) (err error) {
		expired, err = tx.ExpirePending(ctx, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("expiry sweep: %w", err)
	}
	for _, b := range expired {
		s.log.Info("reservation expired", "booking_id", b.ID, "user_id", b.UserID)
	}
	metrics.SweepAffected.WithLabelValues("expiry").Add(float64(len(expired)))
	return len(expired), nil
}

// Overtime выписывает просроченным броням по одному штрафу в размере часового тарифа.
// Каждая бронь обрабатывается в своей транзакции; ошибка по одной не останавливает остальные.
func (s *Sweeper) Overtime(ctx context.Context, now time.Time) (int, error) {
	var overdue []bookings.Booking
	err := s.store.InTx(ctx, func(tx storage.Tx) (err error) {
		overdue, err = tx.Overdue(ctx, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("overtime sweep: %w", err)
	}

	created := 0
	var errs []error
	for _, b := range overdue {
		fine, err := s.fine(ctx, b.ID, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("booking %d: %w", b.ID, err))
			continue
		}
		if fine == nil {
			continue
		}
		created++
		s.log.Info("overtime fine issued", "booking_id", b.ID, "fine_id", fine.ID, "amount", fine.Amount.StringFixed(2))
		s.notify(ctx, notify.Notification{
			UserID:    b.UserID,
			BookingID: b.ID,
			Type:      notify.TypeFineAlert,
			Channel:   notify.ChannelSMS,
			Message:   fmt.Sprintf("Booking #%d: fine %s for %s", b.ID, fine.Amount.StringFixed(2), fine.Reason),
		})
	}
	metrics.SweepAffected.WithLabelValues("overtime").Add(float64(created))
	if len(errs) > 0 {
		return created, fmt.Errorf("overtime sweep: %w", errors.Join(errs...))
	}
	return created, nil
}

// fine перепроверяет бронь под блокировкой и создаёт штраф, если неоплаченного ещё нет.
func (s *Sweeper) fine(ctx context.Context, bookingID int64, now time.Time) (*bookings.Fine, error) {
	var out *bookings.Fine
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != bookings.StatusConfirmed || !b.ExitExpected.Before(now) {
			return nil
		}
		loc, err := tx.GetLocation(ctx, b.LocationID)
		if err != nil {
			return err
		}
		f := &bookings.Fine{BookingID: b.ID, Reason: s.overtimeReason, Amount: loc.HourlyRate}
		ok, err := tx.CreateFineIfNoneUnpaid(ctx, f)
		if err != nil {
			return err
		}
		if ok {
			out = f
		}
		return nil
	})
	return out, err
}

// Reminders напоминает о скором окончании брони. Состояние не меняется.
func (s *Sweeper) Reminders(ctx context.Context, now time.Time) (int, error) {
	var ending []bookings.Booking
	err := s.store.InTx(ctx, func(tx storage.Tx) (err error) {
		ending, err = tx.EndingBetween(ctx, now, now.Add(s.reminderWindow))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reminders: %w", err)
	}
	for _, b := range ending {
		left := b.ExitExpected.Sub(now).Round(time.Minute)
		s.notify(ctx, notify.Notification{
			UserID:    b.UserID,
			BookingID: b.ID,
			Type:      notify.TypeExpiryReminder,
			Channel:   notify.ChannelInApp,
			Message:   fmt.Sprintf("Booking #%d ends in %s, extend it to avoid a fine", b.ID, left),
		})
	}
	metrics.SweepAffected.WithLabelValues("reminders").Add(float64(len(ending)))
	return len(ending), nil
}

type Report struct {
	Expired  int
	Fined    int
	Reminded int
}

// All — все три прохода подряд. Ошибка одного не отменяет следующие.
func (s *Sweeper) All(ctx context.Context, now time.Time) (Report, error) {
	var r Report
	var errs []error
	var err error
	if r.Expired, err = s.Expiry(ctx, now); err != nil {
		errs = append(errs, err)
	}
	if r.Fined, err = s.Overtime(ctx, now); err != nil {
		errs = append(errs, err)
	}
	if r.Reminded, err = s.Reminders(ctx, now); err != nil {
		errs = append(errs, err)
	}
	return r, errors.Join(errs...)
}
