package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Spok95/parkaro/internal/domain/availability"
	"github.com/Spok95/parkaro/internal/infra/db"
)

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

const bookingColumns = `
	id, user_id, vehicle_id, location_id, slot_id, status,
	entry_time_expected, exit_time_expected, actual_entry_time, actual_exit_time,
	duration_hours, amount_expected, amount_paid, reservation_expires_at, ticket,
	created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	if err := row.Scan(
		&b.ID, &b.UserID, &b.VehicleID, &b.LocationID, &b.SlotID, &b.Status,
		&b.EntryExpected, &b.ExitExpected, &b.ActualEntry, &b.ActualExit,
		&b.DurationHours, &b.AmountExpected, &b.AmountPaid, &b.ReservationExpiresAt, &b.Ticket,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func collect(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *Repo) get(ctx context.Context, q string, id int64) (*Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetForUpdate блокирует строку брони до конца транзакции.
func (r *Repo) GetForUpdate(ctx context.Context, id int64) (*Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repo) Insert(ctx context.Context, b *Booking) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO bookings (user_id, vehicle_id, location_id, slot_id, status,
		                      entry_time_expected, exit_time_expected, duration_hours,
		                      amount_expected, amount_paid, reservation_expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at, updated_at
	`, b.UserID, b.VehicleID, b.LocationID, b.SlotID, b.Status,
		b.EntryExpected, b.ExitExpected, b.DurationHours,
		b.AmountExpected, b.AmountPaid, b.ReservationExpiresAt,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *Repo) affected(ctx context.Context, q string, args ...any) (bool, error) {
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Confirm переводит PENDING_PAYMENT в CONFIRMED и фиксирует оплату.
func (r *Repo) Confirm(ctx context.Context, id int64, paid decimal.Decimal) (bool, error) {
	return r.affected(ctx, `
		UPDATE bookings
		SET status='CONFIRMED', amount_paid=$2, reservation_expires_at=NULL, updated_at=now()
		WHERE id=$1 AND status='PENDING_PAYMENT'
	`, id, paid)
}

// SetStatus — compare-and-set по статусу.
func (r *Repo) SetStatus(ctx context.Context, id int64, from, to Status) (bool, error) {
	return r.affected(ctx, `
		UPDATE bookings SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2
	`, id, from, to)
}

// Extend сдвигает выезд и увеличивает обе суммы одной командой.
func (r *Repo) Extend(ctx context.Context, id int64, newExit time.Time, extra decimal.Decimal) (bool, error) {
	return r.affected(ctx, `
		UPDATE bookings
		SET exit_time_expected = $2,
		    duration_hours     = round((extract(epoch FROM ($2 - entry_time_expected)) / 3600)::numeric, 2),
		    amount_expected    = amount_expected + $3,
		    amount_paid        = amount_paid + $3,
		    updated_at         = now()
		WHERE id=$1 AND status='CONFIRMED' AND exit_time_expected < $2
	`, id, newExit, extra)
}

// DeductPaid уменьшает оплату, не уходя в минус.
func (r *Repo) DeductPaid(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	return r.affected(ctx, `
		UPDATE bookings SET amount_paid = GREATEST(amount_paid - $2, 0), updated_at=now()
		WHERE id=$1
	`, id, amount)
}

func (r *Repo) SetActualEntry(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.affected(ctx, `
		UPDATE bookings SET actual_entry_time=$2, updated_at=now()
		WHERE id=$1 AND status='CONFIRMED' AND actual_entry_time IS NULL
	`, id, at)
}

func (r *Repo) SetActualExit(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.affected(ctx, `
		UPDATE bookings SET actual_exit_time=$2, status='COMPLETED', updated_at=now()
		WHERE id=$1 AND status='CONFIRMED'
		  AND actual_entry_time IS NOT NULL AND actual_exit_time IS NULL
	`, id, at)
}

func (r *Repo) SaveTicket(ctx context.Context, id int64, blob []byte) error {
	_, err := r.db.Exec(ctx, `UPDATE bookings SET ticket=$2, updated_at=now() WHERE id=$1`, id, blob)
	return err
}

/* Окна занятости */

func collectWindows(rows pgx.Rows) ([]availability.Window, error) {
	defer rows.Close()
	var out []availability.Window
	for rows.Next() {
		var w availability.Window
		if err := rows.Scan(&w.BookingID, &w.SlotID, &w.Start, &w.End); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ConfirmedWindows — подтверждённые брони места, пересекающие [from, to).
func (r *Repo) ConfirmedWindows(ctx context.Context, slotID int64, from, to time.Time) ([]availability.Window, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, slot_id, entry_time_expected, exit_time_expected
		FROM bookings
		WHERE slot_id = $1 AND status = 'CONFIRMED'
		  AND entry_time_expected < $3 AND exit_time_expected > $2
		ORDER BY entry_time_expected
	`, slotID, from, to)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

// ActiveWindows — подтверждённые брони парковки, идущие в момент at.
func (r *Repo) ActiveWindows(ctx context.Context, locationID int64, at time.Time) ([]availability.Window, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, slot_id, entry_time_expected, exit_time_expected
		FROM bookings
		WHERE location_id = $1 AND status = 'CONFIRMED'
		  AND entry_time_expected <= $2 AND exit_time_expected >= $2
	`, locationID, at)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

/* Выборки для автоматических проходов */

// ExpirePending отменяет просроченные резервы одной командой и возвращает их.
func (r *Repo) ExpirePending(ctx context.Context, now time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE bookings SET status='CANCELLED', updated_at=now()
		WHERE status='PENDING_PAYMENT' AND reservation_expires_at < $1
		RETURNING `+bookingColumns, now)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repo) Overdue(ctx context.Context, now time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status='CONFIRMED' AND exit_time_expected < $1
		ORDER BY id
	`, now)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repo) EndingBetween(ctx context.Context, from, to time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status='CONFIRMED' AND exit_time_expected BETWEEN $1 AND $2
		ORDER BY exit_time_expected, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
