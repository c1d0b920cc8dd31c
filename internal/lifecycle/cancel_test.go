package lifecycle

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/parkaro/internal/apperr"
	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/refunds"
)

func ptr[T any](v T) *T { return &v }

func TestCancel_LocationPolicyBeatsLargerGlobal(t *testing.T) {
	f := newFixture(t)
	f.store.AddPolicy(refunds.Policy{MinMinutesBefore: 60, RefundPercentage: decimal.NewFromInt(50)})
	f.store.AddPolicy(refunds.Policy{LocationID: ptr(f.loc.ID), MinMinutesBefore: 30, RefundPercentage: decimal.NewFromInt(20)})
	id := f.book(t, at(9, 0), at(11, 0))

	res, err := f.mgr.Cancel(context.Background(), owner, id, at(8, 15))
	require.NoError(t, err)

	assert.InDelta(t, 45.0, res.Quote.MinutesBefore, 1e-9)
	assert.Equal(t, "20.00", res.Quote.Percentage.StringFixed(2))
	assert.Equal(t, "40.00", res.Quote.Refundable.StringFixed(2))
	assert.Equal(t, bookings.StatusCancelled, res.Booking.Status)
	assert.Equal(t, "160.00", res.Booking.AmountPaid.StringFixed(2))

	require.NotNil(t, res.Refund)
	assert.Equal(t, bookings.PaymentRefunded, res.Refund.Status)
	assert.Equal(t, bookings.MethodRefund, res.Refund.Method)
}

func TestCancel_FullRefundRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.store.AddPolicy(refunds.Policy{MinMinutesBefore: 0, RefundPercentage: decimal.NewFromInt(100)})
	id := f.book(t, at(9, 0), at(11, 0))

	res, err := f.mgr.Cancel(context.Background(), owner, id, at(8, 0))
	require.NoError(t, err)

	assert.True(t, res.Booking.AmountPaid.IsZero())
	pays := f.store.Payments(id)
	require.Len(t, pays, 2)
	assert.Equal(t, bookings.PaymentRefunded, pays[1].Status)
	assert.True(t, pays[1].Amount.Equal(pays[0].Amount), pays[1].Amount.String())
}

func TestCancel_NoPolicyNoRefund(t *testing.T) {
	f := newFixture(t)
	id := f.book(t, at(9, 0), at(11, 0))

	res, err := f.mgr.Cancel(context.Background(), owner, id, at(8, 50))
	require.NoError(t, err)

	assert.Nil(t, res.Refund)
	assert.Equal(t, "200.00", res.Booking.AmountPaid.StringFixed(2))
	assert.Len(t, f.store.Payments(id), 1)
}

func TestCancel_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.book(t, at(9, 0), at(11, 0))

	_, err := f.mgr.Cancel(ctx, owner, id, at(9, 0))
	require.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	_, err = f.mgr.Cancel(ctx, stranger, id, at(8, 0))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.mgr.Cancel(ctx, owner, id, at(8, 0))
	require.NoError(t, err)
	_, err = f.mgr.Cancel(ctx, owner, id, at(8, 1))
	assert.ErrorIs(t, err, ErrNotConfirmed)

	b, _ := f.store.Booking(id)
	assert.Equal(t, bookings.StatusCancelled, b.Status)
}

func TestQuoteCancellation_DoesNotWrite(t *testing.T) {
	f := newFixture(t)
	f.store.AddPolicy(refunds.Policy{MinMinutesBefore: 30, RefundPercentage: decimal.NewFromInt(50)})
	id := f.book(t, at(9, 0), at(11, 0))

	q, err := f.mgr.QuoteCancellation(context.Background(), owner, id, at(8, 0))
	require.NoError(t, err)
	assert.Equal(t, "100.00", q.Refundable.StringFixed(2))
	require.NotNil(t, q.Policy)
	assert.Equal(t, 30, q.Policy.MinMinutesBefore)

	b, _ := f.store.Booking(id)
	assert.Equal(t, bookings.StatusConfirmed, b.Status)
	assert.Len(t, f.store.Payments(id), 1)
}
