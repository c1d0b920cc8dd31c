package locations

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/parkaro/internal/infra/db"
)

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

func (r *Repo) GetByID(ctx context.Context, id int64) (*Location, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, address, total_slots, base_rate_per_hour, base_rate_per_day, is_active, created_at
		FROM parking_locations WHERE id = $1
	`, id)
	var l Location
	if err := row.Scan(&l.ID, &l.Name, &l.Address, &l.TotalSlots, &l.HourlyRate, &l.DailyRate, &l.Active, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) Create(ctx context.Context, l Location) (*Location, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO parking_locations (name, address, total_slots, base_rate_per_hour, base_rate_per_day, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, l.Name, l.Address, l.TotalSlots, l.HourlyRate, l.DailyRate, l.Active)
	if err := row.Scan(&l.ID, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

/* Slots */

const slotColumns = `id, location_id, slot_code, level, status, vehicle_type_allowed`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	if err := row.Scan(&s.ID, &s.LocationID, &s.Code, &s.Level, &s.Status, &s.VehicleTypeAllowed); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetSlot(ctx context.Context, id int64) (*Slot, error) {
	s, err := scanSlot(r.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM parking_slots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// LockSlot берёт строку места FOR UPDATE до конца транзакции.
func (r *Repo) LockSlot(ctx context.Context, id int64) (bool, error) {
	var got int64
	err := r.db.QueryRow(ctx, `SELECT id FROM parking_slots WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *Repo) ListSlots(ctx context.Context, locationID int64) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM parking_slots WHERE location_id = $1
		ORDER BY slot_code
	`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repo) CreateSlot(ctx context.Context, s Slot) (*Slot, error) {
	if s.Status == "" {
		s.Status = SlotAvailable
	}
	if s.VehicleTypeAllowed == "" {
		s.VehicleTypeAllowed = Class4W
	}
	return scanSlot(r.db.QueryRow(ctx, `
		INSERT INTO parking_slots (location_id, slot_code, level, status, vehicle_type_allowed)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+slotColumns,
		s.LocationID, s.Code, s.Level, s.Status, s.VehicleTypeAllowed))
}

// SetSlotStatus меняет административный флаг места.
func (r *Repo) SetSlotStatus(ctx context.Context, id int64, st SlotStatus) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE parking_slots SET status=$2, updated_at=now() WHERE id=$1`, id, st)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

/* Maintenance */

// MaintenanceAt — записи обслуживания мест парковки, действующие в момент at.
func (r *Repo) MaintenanceAt(ctx context.Context, locationID int64, at time.Time) ([]MaintenanceLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.slot_id, m.start_datetime, m.end_datetime, m.reason
		FROM maintenance_slot_logs m
		JOIN parking_slots s ON s.id = m.slot_id
		WHERE s.location_id = $1
		  AND m.start_datetime <= $2
		  AND (m.end_datetime IS NULL OR m.end_datetime >= $2)
		ORDER BY m.slot_id, m.start_datetime
	`, locationID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MaintenanceLog
	for rows.Next() {
		var m MaintenanceLog
		if err := rows.Scan(&m.ID, &m.SlotID, &m.Start, &m.End, &m.Reason); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) AddMaintenance(ctx context.Context, m *MaintenanceLog) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO maintenance_slot_logs (slot_id, start_datetime, end_datetime, reason)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, m.SlotID, m.Start, m.End, m.Reason).Scan(&m.ID)
}

// CloseMaintenance проставляет окончание открытой записи. false — записи нет или уже закрыта.
func (r *Repo) CloseMaintenance(ctx context.Context, id int64, end time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE maintenance_slot_logs SET end_datetime=$2, updated_at=now()
		WHERE id=$1 AND end_datetime IS NULL
	`, id, end)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
