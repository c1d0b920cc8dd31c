package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

/* Payments */

func (r *Repo) InsertPayment(ctx context.Context, p *Payment) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO payments (booking_id, amount, currency, status, gateway_txn_id, method)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, p.BookingID, p.Amount, p.Currency, p.Status, p.GatewayTxnID, p.Method).Scan(&p.ID, &p.CreatedAt)
}

func (r *Repo) ListPayments(ctx context.Context, bookingID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, amount, currency, status, gateway_txn_id, method, created_at
		FROM payments WHERE booking_id = $1
		ORDER BY id
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Currency, &p.Status, &p.GatewayTxnID, &p.Method, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

/* Extensions */

func (r *Repo) InsertExtension(ctx context.Context, e *Extension) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO booking_extensions (booking_id, extra_hours, extra_amount, payment_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at
	`, e.BookingID, e.ExtraHours, e.ExtraAmount, e.PaymentID).Scan(&e.ID, &e.CreatedAt)
}

func (r *Repo) ListExtensions(ctx context.Context, bookingID int64) ([]Extension, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, extra_hours, extra_amount, payment_id, created_at
		FROM booking_extensions WHERE booking_id = $1
		ORDER BY id
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Extension
	for rows.Next() {
		var e Extension
		if err := rows.Scan(&e.ID, &e.BookingID, &e.ExtraHours, &e.ExtraAmount, &e.PaymentID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

/* Entry / exit */

func (r *Repo) InsertEntryExitLog(ctx context.Context, l *EntryExitLog) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO entry_exit_logs (booking_id, employee_id, event_type, event_time)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, l.BookingID, l.EmployeeID, l.Event, l.At).Scan(&l.ID)
}

/* Fines */

// CreateFineIfNoneUnpaid опирается на частичный уникальный индекс (booking_id) WHERE status='UNPAID'.
// false — у брони уже есть неоплаченный штраф.
func (r *Repo) CreateFineIfNoneUnpaid(ctx context.Context, f *Fine) (bool, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO fines (booking_id, reason, amount, status)
		VALUES ($1,$2,$3,'UNPAID')
		ON CONFLICT (booking_id) WHERE status = 'UNPAID' DO NOTHING
		RETURNING id, status, created_at
	`, f.BookingID, f.Reason, f.Amount).Scan(&f.ID, &f.Status, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const fineColumns = `id, booking_id, reason, amount, status, paid_at, created_at`

func scanFine(row pgx.Row) (*Fine, error) {
	var f Fine
	if err := row.Scan(&f.ID, &f.BookingID, &f.Reason, &f.Amount, &f.Status, &f.PaidAt, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) GetFineForUpdate(ctx context.Context, id int64) (*Fine, error) {
	f, err := scanFine(r.db.QueryRow(ctx, `SELECT `+fineColumns+` FROM fines WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (r *Repo) MarkFinePaid(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.affected(ctx, `
		UPDATE fines SET status='PAID', paid_at=$2
		WHERE id=$1 AND status='UNPAID'
	`, id, at)
}

func (r *Repo) ListFines(ctx context.Context, bookingID int64) ([]Fine, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fineColumns+` FROM fines WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fine
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}
