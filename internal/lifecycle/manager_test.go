package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/domain/pricing"
	"github.com/Spok95/parkaro/internal/domain/vehicles"
	"github.com/Spok95/parkaro/internal/identity"
	"github.com/Spok95/parkaro/internal/infra/payments"
	"github.com/Spok95/parkaro/internal/notify"
	"github.com/Spok95/parkaro/internal/storage/memory"
)

// 2026-10-12 — понедельник.
func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 12, hour, minute, 0, 0, time.UTC)
}

var (
	owner    = identity.User(1)
	stranger = identity.User(2)
	staff    = identity.Employee(100, 7)
)

type gatewayMock struct{ mock.Mock }

func (g *gatewayMock) Authorize(ctx context.Context, c payments.Charge) (payments.Authorization, error) {
	args := g.Called(ctx, c)
	return args.Get(0).(payments.Authorization), args.Error(1)
}

type notifierMock struct{ mock.Mock }

func (n *notifierMock) Notify(ctx context.Context, msg notify.Notification) error {
	return n.Called(ctx, msg).Error(0)
}

type fixture struct {
	store    *memory.Store
	loc      locations.Location
	slot     locations.Slot
	vehicle  vehicles.Vehicle
	notifier *notifierMock
	mgr      *Manager
}

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := memory.New()
	f := &fixture{store: s, notifier: &notifierMock{}}
	f.loc = s.AddLocation(locations.Location{
		Name:       "Central",
		TotalSlots: 2,
		HourlyRate: decimal.NewFromInt(100),
		DailyRate:  decimal.NewFromInt(600),
		Active:     true,
	})
	f.slot = s.AddSlot(locations.Slot{LocationID: f.loc.ID, Code: "A-01", Level: "B1", VehicleTypeAllowed: locations.Class4W})
	f.vehicle = s.AddVehicle(vehicles.Vehicle{OwnerID: owner.UserID, Number: "KA01AB1234", Type: locations.Class4W, IsDefault: true})

	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	all := append([]Option{WithNotifier(f.notifier)}, opts...)
	f.mgr = New(s, pricing.NewEngine(time.UTC), payments.NewStub(), quietLog(), all...)
	return f
}

func (f *fixture) request(from, to time.Time) CreateRequest {
	return CreateRequest{LocationID: f.loc.ID, SlotID: f.slot.ID, VehicleID: f.vehicle.ID, Entry: from, Exit: to}
}

func (f *fixture) book(t *testing.T, from, to time.Time) int64 {
	t.Helper()
	b, err := f.mgr.Create(context.Background(), owner, f.request(from, to), at(8, 0))
	require.NoError(t, err)
	return b.ID
}
