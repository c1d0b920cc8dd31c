package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/parkaro/internal/domain/pricing"
	"github.com/Spok95/parkaro/internal/identity"
	"github.com/Spok95/parkaro/internal/infra/logger"
	"github.com/Spok95/parkaro/internal/infra/payments"
	"github.com/Spok95/parkaro/internal/lifecycle"
)

func TestDemoStoreIsBookable(t *testing.T) {
	s := demoStore()
	mgr := lifecycle.New(s, pricing.NewEngine(time.UTC), payments.NewStub(), logger.Nop())

	// понедельник, 18:00-19:00 попадает в вечерний пик
	entry := time.Date(2026, 10, 12, 18, 0, 0, 0, time.UTC)
	b, err := mgr.Create(context.Background(), identity.User(1), lifecycle.CreateRequest{
		LocationID: 1, SlotID: 2, VehicleID: 6, Entry: entry, Exit: entry.Add(time.Hour),
	}, entry.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "75.00", b.AmountExpected.StringFixed(2))

	q, err := mgr.QuoteCancellation(context.Background(), identity.User(1), b.ID, entry.Add(-25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "75.00", q.Refundable.StringFixed(2))
}

func TestDemoRulesCoverWeekdays(t *testing.T) {
	rules := demoRules(1)
	require.Len(t, rules, 5)
	for i, r := range rules {
		assert.Equal(t, i, *r.DayOfWeek)
	}
}
