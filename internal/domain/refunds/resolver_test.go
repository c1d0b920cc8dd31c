package refunds

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestResolve_LocationThresholdBeatsGlobal(t *testing.T) {
	policies := []Policy{
		{ID: 1, MinMinutesBefore: 60, RefundPercentage: decimal.NewFromInt(50)},
		{ID: 2, LocationID: ptr(int64(7)), MinMinutesBefore: 30, RefundPercentage: decimal.NewFromInt(20)},
	}

	p, ok := Resolve(policies, 7, 45)

	require.True(t, ok)
	assert.Equal(t, int64(2), p.ID)
	assert.Equal(t, "20", Percentage(policies, 7, 45).String())
}

func TestResolve_Cases(t *testing.T) {
	policies := []Policy{
		{ID: 1, MinMinutesBefore: 1440, RefundPercentage: decimal.NewFromInt(100)},
		{ID: 2, MinMinutesBefore: 120, RefundPercentage: decimal.NewFromInt(75)},
		{ID: 3, LocationID: ptr(int64(2)), MinMinutesBefore: 60, RefundPercentage: decimal.NewFromInt(40)},
		{ID: 4, LocationID: ptr(int64(1)), MinMinutesBefore: 120, RefundPercentage: decimal.NewFromInt(80)},
	}

	tests := []struct {
		name     string
		location int64
		minutes  float64
		want     string
	}{
		{"far ahead", 1, 2000, "100"},
		{"exact threshold matches", 1, 1440, "100"},
		{"same threshold prefers location", 1, 130, "80"},
		{"other location policy ignored", 1, 90, "0"},
		{"location policy applies", 2, 90, "40"},
		{"fraction below threshold", 2, 59.9, "0"},
		{"nothing matches", 3, 10, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(policies, tt.location, tt.minutes).String())
		})
	}
}

func TestPercentage_MonotoneInLeadTime(t *testing.T) {
	policies := []Policy{
		{ID: 1, MinMinutesBefore: 0, RefundPercentage: decimal.NewFromInt(10)},
		{ID: 2, MinMinutesBefore: 30, RefundPercentage: decimal.NewFromInt(25)},
		{ID: 3, LocationID: ptr(int64(1)), MinMinutesBefore: 90, RefundPercentage: decimal.NewFromInt(60)},
		{ID: 4, MinMinutesBefore: 600, RefundPercentage: decimal.NewFromInt(100)},
	}

	prev := decimal.NewFromInt(101)
	for m := 1000.0; m >= 0; m -= 5 {
		pct := Percentage(policies, 1, m)
		assert.True(t, pct.LessThanOrEqual(prev), "minutes=%v pct=%s prev=%s", m, pct, prev)
		prev = pct
	}
}

func TestRefundable(t *testing.T) {
	assert.Equal(t, "100.00", Refundable(decimal.NewFromInt(200), decimal.NewFromInt(50)).StringFixed(2))
	assert.Equal(t, "33.33", Refundable(decimal.RequireFromString("166.67"), decimal.NewFromInt(20)).StringFixed(2))
	assert.True(t, Refundable(decimal.NewFromInt(200), decimal.Zero).IsZero())
	assert.True(t, Refundable(decimal.Zero, decimal.NewFromInt(100)).IsZero())
}

func TestOrdered_DoesNotMutateInput(t *testing.T) {
	in := []Policy{{ID: 1, MinMinutesBefore: 5}, {ID: 2, MinMinutesBefore: 50}}
	out := Ordered(in)

	assert.Equal(t, int64(1), in[0].ID)
	assert.Equal(t, int64(2), out[0].ID)
}
