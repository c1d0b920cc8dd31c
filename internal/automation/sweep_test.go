package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/notify"
	"github.com/Spok95/parkaro/internal/storage"
	"github.com/Spok95/parkaro/internal/storage/memory"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 12, hour, minute, 0, 0, time.UTC)
}

type notifierMock struct{ mock.Mock }

func (n *notifierMock) Notify(ctx context.Context, msg notify.Notification) error {
	return n.Called(ctx, msg).Error(0)
}

type fixture struct {
	store    *memory.Store
	slot     locations.Slot
	notifier *notifierMock
	sweeper  *Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	loc := s.AddLocation(locations.Location{Name: "Central", HourlyRate: decimal.NewFromInt(100), DailyRate: decimal.NewFromInt(600), Active: true})
	slot := s.AddSlot(locations.Slot{LocationID: loc.ID, Code: "A-01"})
	n := &notifierMock{}
	n.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	return &fixture{
		store:    s,
		slot:     slot,
		notifier: n,
		sweeper:  New(s, n, slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}

// insert кладёт бронь в нужном статусе мимо менеджера.
func (f *fixture) insert(t *testing.T, status bookings.Status, from, to time.Time, expires *time.Time) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	require.NoError(t, f.store.InTx(ctx, func(tx storage.Tx) error {
		b := &bookings.Booking{
			UserID: 1, LocationID: f.slot.LocationID, SlotID: f.slot.ID,
			Status: bookings.StatusPendingPayment, EntryExpected: from, ExitExpected: to,
			AmountExpected: decimal.NewFromInt(200), ReservationExpiresAt: expires,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		id = b.ID
		if status == bookings.StatusPendingPayment {
			return nil
		}
		return tx.ConfirmBooking(ctx, b.ID, b.AmountExpected)
	}))
	return id
}

func TestExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp := at(8, 10)
	stale := f.insert(t, bookings.StatusPendingPayment, at(9, 0), at(10, 0), &exp)
	fresh := f.insert(t, bookings.StatusPendingPayment, at(11, 0), at(12, 0), ptr(at(8, 30)))
	confirmed := f.insert(t, bookings.StatusConfirmed, at(13, 0), at(14, 0), nil)

	n, err := f.sweeper.Expiry(ctx, at(8, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.sweeper.Expiry(ctx, at(8, 20))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second run is a no-op")

	for id, want := range map[int64]bookings.Status{
		stale:     bookings.StatusCancelled,
		fresh:     bookings.StatusPendingPayment,
		confirmed: bookings.StatusConfirmed,
	} {
		b, _ := f.store.Booking(id)
		assert.Equal(t, want, b.Status, "booking %d", id)
	}
	assert.Empty(t, f.store.Payments(stale))
}

func ptr[T any](v T) *T { return &v }

func TestOvertime_OneUnpaidFinePerBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := f.insert(t, bookings.StatusConfirmed, at(9, 0), at(10, 0), nil)
	onTime := f.insert(t, bookings.StatusConfirmed, at(10, 0), at(13, 0), nil)

	for i := 0; i < 3; i++ {
		n, err := f.sweeper.Overtime(ctx, at(11, 0).Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, 1, n)
		} else {
			assert.Equal(t, 0, n)
		}
	}

	fines := f.store.Fines(late)
	require.Len(t, fines, 1)
	assert.Equal(t, bookings.FineUnpaid, fines[0].Status)
	assert.Equal(t, "100.00", fines[0].Amount.StringFixed(2))
	assert.Equal(t, DefaultOvertimeReason, fines[0].Reason)
	assert.Empty(t, f.store.Fines(onTime))

	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n notify.Notification) bool {
		return n.Type == notify.TypeFineAlert && n.BookingID == late
	}))
}

func TestOvertime_ConcurrentRuns(t *testing.T) {
	f := newFixture(t)
	late := f.insert(t, bookings.StatusConfirmed, at(9, 0), at(10, 0), nil)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sweeper.Overtime(context.Background(), at(11, 0))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.store.Fines(late), 1)
}

func TestOvertime_NotificationFailureKeepsFine(t *testing.T) {
	f := newFixture(t)
	n := &notifierMock{}
	n.On("Notify", mock.Anything, mock.Anything).Return(errors.New("sms gateway down"))
	f.sweeper.notifier = n
	late := f.insert(t, bookings.StatusConfirmed, at(9, 0), at(10, 0), nil)

	created, err := f.sweeper.Overtime(context.Background(), at(11, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Len(t, f.store.Fines(late), 1)
}

func TestReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := f.insert(t, bookings.StatusConfirmed, at(9, 0), at(10, 20), nil)
	edge := f.insert(t, bookings.StatusConfirmed, at(10, 20), at(10, 30), nil)
	later := f.insert(t, bookings.StatusConfirmed, at(10, 30), at(11, 0), nil)

	n, err := f.sweeper.Reminders(ctx, at(10, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []int64{soon, edge} {
		id := id
		f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n notify.Notification) bool {
			return n.Type == notify.TypeExpiryReminder && n.BookingID == id
		}))
	}
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n notify.Notification) bool {
		return n.BookingID == later
	}))

	b, _ := f.store.Booking(soon)
	assert.Equal(t, bookings.StatusConfirmed, b.Status)
}

func TestAll(t *testing.T) {
	f := newFixture(t)
	exp := at(8, 0)
	f.insert(t, bookings.StatusPendingPayment, at(9, 0), at(10, 0), &exp)
	f.insert(t, bookings.StatusConfirmed, at(7, 0), at(8, 30), nil)
	f.insert(t, bookings.StatusConfirmed, at(8, 30), at(9, 15), nil)

	rep, err := f.sweeper.All(context.Background(), at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, Report{Expired: 1, Fined: 1, Reminded: 1}, rep)
}

// stuck не отвечает, пока не истечёт контекст.
type stuck struct{ calls int }

func (s *stuck) Notify(ctx context.Context, _ notify.Notification) error {
	s.calls++
	<-ctx.Done()
	return ctx.Err()
}

func TestReminders_SlowNotifierIsBounded(t *testing.T) {
	f := newFixture(t)
	slow := &stuck{}
	f.sweeper = New(f.store, slow, slog.New(slog.NewTextHandler(io.Discard, nil))).WithNotifyTimeout(20 * time.Millisecond)
	f.insert(t, bookings.StatusConfirmed, at(9, 0), at(10, 20), nil)
	f.insert(t, bookings.StatusConfirmed, at(10, 20), at(10, 25), nil)

	started := time.Now()
	n, err := f.sweeper.Reminders(context.Background(), at(10, 0))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, slow.calls)
	assert.Less(t, time.Since(started), 2*time.Second)
}
