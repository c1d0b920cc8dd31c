package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/identity"
	"github.com/Spok95/parkaro/internal/storage"
	"github.com/Spok95/parkaro/internal/ticket"
)

// Action — что сделал проход через шлагбаум.
type Action string

const (
	ActionEntry           Action = "ENTRY_RECORDED"
	ActionExit            Action = "EXIT_RECORDED"
	ActionAlreadyRecorded Action = "ALREADY_RECORDED"
	ActionAlreadyComplete Action = "ALREADY_COMPLETE"
)

func (a Action) Message() string {
	switch a {
	case ActionEntry:
		return "entry recorded"
	case ActionExit:
		return "exit recorded"
	case ActionAlreadyRecorded:
		return "entry already recorded"
	case ActionAlreadyComplete:
		return "booking already has entry and exit"
	}
	return string(a)
}

type CheckResult struct {
	Booking *bookings.Booking
	Action  Action
}

func recordEntry(ctx context.Context, tx storage.Tx, b *bookings.Booking, employeeID *int64, at time.Time) (Action, error) {
	if b.ActualEntry != nil {
		return ActionAlreadyRecorded, nil
	}
	if b.Status != bookings.StatusConfirmed {
		return "", ErrNotConfirmed
	}
	ok, err := tx.SetActualEntry(ctx, b.ID, at)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrChangedMeanwhile
	}
	if err := tx.InsertEntryExitLog(ctx, &bookings.EntryExitLog{BookingID: b.ID, EmployeeID: employeeID, Event: bookings.EventEntry, At: at}); err != nil {
		return "", err
	}
	return ActionEntry, nil
}

func recordExit(ctx context.Context, tx storage.Tx, b *bookings.Booking, employeeID *int64, at time.Time) (Action, error) {
	if b.ActualEntry == nil {
		return "", ErrNoEntry
	}
	if b.ActualExit != nil {
		return "", ErrAlreadyExited
	}
	if b.Status != bookings.StatusConfirmed {
		return "", ErrNotConfirmed
	}
	ok, err := tx.SetActualExit(ctx, b.ID, at)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrChangedMeanwhile
	}
	if err := tx.InsertEntryExitLog(ctx, &bookings.EntryExitLog{BookingID: b.ID, EmployeeID: employeeID, Event: bookings.EventExit, At: at}); err != nil {
		return "", err
	}
	return ActionExit, nil
}

type step func(ctx context.Context, tx storage.Tx, b *bookings.Booking, employeeID *int64, at time.Time) (Action, error)

func (m *Manager) check(ctx context.Context, op string, bookingID int64, employeeID *int64, at time.Time, pick func(b *bookings.Booking) step) (res CheckResult, err error) {
	defer m.track(op, time.Now(), &err)

	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return or(err, ErrBookingNotFound)
		}
		s := pick(b)
		if s == nil {
			res.Action = ActionAlreadyComplete
			res.Booking = b
			return nil
		}
		res.Action, err = s(ctx, tx, b, employeeID, at)
		if err != nil {
			return err
		}
		res.Booking, err = tx.GetBooking(ctx, b.ID)
		return err
	})
	if err != nil {
		return CheckResult{}, fmt.Errorf("%s booking %d: %w", op, bookingID, err)
	}
	if res.Action == ActionEntry || res.Action == ActionExit {
		m.log.Info("check-in", "booking_id", bookingID, "action", res.Action, "employee_id", employeeID)
	}
	return res, nil
}

// RecordEntry отмечает въезд. Повторный въезд ничего не пишет и возвращает ActionAlreadyRecorded.
func (m *Manager) RecordEntry(ctx context.Context, bookingID int64, employeeID *int64, at time.Time) (CheckResult, error) {
	return m.check(ctx, "record_entry", bookingID, employeeID, at, func(*bookings.Booking) step { return recordEntry })
}

// RecordExit отмечает выезд и завершает бронь.
func (m *Manager) RecordExit(ctx context.Context, bookingID int64, employeeID *int64, at time.Time) (CheckResult, error) {
	return m.check(ctx, "record_exit", bookingID, employeeID, at, func(*bookings.Booking) step { return recordExit })
}

// Scan — сканирование билета персоналом: первый скан — въезд, второй — выезд.
func (m *Manager) Scan(ctx context.Context, p identity.Principal, code string, at time.Time) (CheckResult, error) {
	if !p.Staff {
		return CheckResult{}, ErrForbidden
	}
	id, err := ticket.ParseCode(code)
	if err != nil {
		return CheckResult{}, ErrBadCode
	}
	return m.check(ctx, "scan", id, p.EmployeeID, at, func(b *bookings.Booking) step {
		switch {
		case b.ActualEntry == nil:
			return recordEntry
		case b.ActualExit == nil:
			return recordExit
		}
		return nil
	})
}

// MarkNoShow закрывает подтверждённую бронь, по которой так и не въехали.
func (m *Manager) MarkNoShow(ctx context.Context, p identity.Principal, bookingID int64) (b *bookings.Booking, err error) {
	defer m.track("no_show", time.Now(), &err)

	if !p.Staff {
		return nil, ErrForbidden
	}
	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		cur, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return or(err, ErrBookingNotFound)
		}
		if cur.Status != bookings.StatusConfirmed {
			return ErrNotConfirmed
		}
		if cur.ActualEntry != nil {
			return ErrAlreadyEntered
		}
		if err := tx.SetStatus(ctx, cur.ID, bookings.StatusConfirmed, bookings.StatusNoShow); err != nil {
			return translate(err)
		}
		b, err = tx.GetBooking(ctx, cur.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("mark no-show %d: %w", bookingID, err)
	}
	m.log.Info("booking marked no-show", "booking_id", bookingID, "employee_id", p.EmployeeID)
	return b, nil
}
