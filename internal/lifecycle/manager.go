// Package lifecycle ведёт бронь от создания до завершения: цена, оплата,
// продление, отмена с возвратом, въезд и выезд.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/parkaro/internal/apperr"
	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/domain/pricing"
	"github.com/Spok95/parkaro/internal/infra/metrics"
	"github.com/Spok95/parkaro/internal/infra/payments"
	"github.com/Spok95/parkaro/internal/notify"
	"github.com/Spok95/parkaro/internal/storage"
	"github.com/Spok95/parkaro/internal/ticket"
)

const (
	DefaultReservationTTL = 10 * time.Minute
	DefaultCurrency       = "INR"
)

type Manager struct {
	store    storage.Store
	pricing  *pricing.Engine
	gateway  payments.Gateway
	notifier notify.Notifier
	tickets  ticket.Generator
	log      *slog.Logger

	reservationTTL time.Duration
	currency       string
	notifyTimeout  time.Duration
}

type Option func(*Manager)

func WithNotifier(n notify.Notifier) Option { return func(m *Manager) { m.notifier = n } }

func WithTickets(g ticket.Generator) Option { return func(m *Manager) { m.tickets = g } }

func WithReservationTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.reservationTTL = d
		}
	}
}

// WithNotifyTimeout ограничивает ожидание уведомлений после коммита.
func WithNotifyTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.notifyTimeout = d
		}
	}
}

func WithCurrency(c string) Option {
	return func(m *Manager) {
		if c != "" {
			m.currency = c
		}
	}
}

func New(store storage.Store, engine *pricing.Engine, gw payments.Gateway, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		pricing:        engine,
		gateway:        gw,
		notifier:       notify.Fanout{},
		tickets:        ticket.JSON{},
		log:            log,
		reservationTTL: DefaultReservationTTL,
		currency:       DefaultCurrency,
		notifyTimeout:  notify.DefaultTimeout,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// track пишет метрики операции; вызывать через defer с указателем на именованную ошибку.
func (m *Manager) track(op string, started time.Time, errp *error) {
	outcome := "ok"
	if *errp != nil {
		outcome = string(apperr.KindOf(*errp))
	}
	metrics.Observe(op, outcome, started)
}

// authorize списывает amount; отказ шлюза — ErrPaymentDeclined.
func (m *Manager) authorize(ctx context.Context, bookingID int64, amount decimal.Decimal, desc string) (payments.Authorization, error) {
	auth, err := m.gateway.Authorize(ctx, payments.Charge{
		BookingID:   bookingID,
		Amount:      amount,
		Currency:    m.currency,
		Description: desc,
	})
	if err != nil {
		return auth, fmt.Errorf("authorize: %w", err)
	}
	if !auth.Approved() {
		return auth, ErrPaymentDeclined
	}
	return auth, nil
}

// notify вызывается после коммита. Ошибки только логируются.
func (m *Manager) notify(ctx context.Context, n notify.Notification) {
	ctx, cancel := context.WithTimeout(ctx, m.notifyTimeout)
	defer cancel()
	if err := m.notifier.Notify(ctx, n); err != nil {
		metrics.NotifyFailures.WithLabelValues(string(n.Type)).Inc()
		m.log.Warn("notification failed", "type", n.Type, "booking_id", n.BookingID, "err", err)
	}
}

// issueTicket генерирует и сохраняет билет; бронь остаётся в силе при любой ошибке.
func (m *Manager) issueTicket(ctx context.Context, b *bookings.Booking) {
	blob, err := m.tickets.Generate(ctx, *b)
	if err != nil {
		m.log.Warn("ticket generation failed", "booking_id", b.ID, "err", err)
		return
	}
	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		return tx.SaveTicket(ctx, b.ID, blob)
	})
	if err != nil {
		m.log.Warn("ticket save failed", "booking_id", b.ID, "err", err)
		return
	}
	b.Ticket = blob
}

func slotLabel(s *locations.Slot) string {
	if s.Level == "" {
		return s.Code
	}
	return s.Code + " (" + s.Level + ")"
}
