// Package notify доставляет уведомления пользователям и персоналу.
// Доставка вызывается после коммита; её ошибки не откатывают операцию.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultTimeout — сколько операция ждёт доставку после коммита.
const DefaultTimeout = 5 * time.Second

type Type string

const (
	TypeBookingConfirmation Type = "BOOKING_CONFIRMATION"
	TypeExpiryReminder      Type = "EXPIRY_REMINDER"
	TypeFineAlert           Type = "FINE_ALERT"
	TypeCancellation        Type = "BOOKING_CANCELLED"
)

type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelInApp Channel = "IN_APP"
)

type Notification struct {
	UserID    int64   `json:"user_id"`
	BookingID int64   `json:"booking_id,omitempty"`
	Type      Type    `json:"type"`
	Message   string  `json:"message"`
	Channel   Channel `json:"channel"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Log пишет уведомления в slog.
type Log struct{ log *slog.Logger }

func NewLog(log *slog.Logger) *Log { return &Log{log: log} }

func (l *Log) Notify(_ context.Context, n Notification) error {
	l.log.Info("notification",
		"user_id", n.UserID,
		"booking_id", n.BookingID,
		"type", n.Type,
		"channel", n.Channel,
		"message", n.Message,
	)
	return nil
}

// Fanout отдаёт уведомление всем получателям, даже если кто-то из них упал.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, x := range f {
		if err := x.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
