package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStub_AlwaysApproves(t *testing.T) {
	s := NewStub()

	a, err := s.Authorize(context.Background(), Charge{BookingID: 1, Amount: decimal.NewFromInt(200), Currency: "INR"})
	require.NoError(t, err)
	assert.True(t, a.Approved())
	assert.True(t, strings.HasPrefix(a.TxnID, "DUMMY-"))

	b, err := s.Authorize(context.Background(), Charge{BookingID: 1, Amount: decimal.NewFromInt(200)})
	require.NoError(t, err)
	assert.NotEqual(t, a.TxnID, b.TxnID)
}

func TestStub_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStub().Authorize(ctx, Charge{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, context.Canceled)
}
