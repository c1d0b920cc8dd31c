package pricing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Spok95/parkaro/internal/infra/db"
)

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

// ForLocation возвращает правила парковки и глобальные правила.
func (r *Repo) ForLocation(ctx context.Context, locationID int64) ([]Rule, error) {
	const q = `
        SELECT id, location_id, day_of_week, start_time, end_time, multiplier, notes
        FROM pricing_rules
        WHERE location_id = $1 OR location_id IS NULL
        ORDER BY multiplier DESC, id ASC;
    `
	rows, err := r.db.Query(ctx, q, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Rule{}
	for rows.Next() {
		var rl Rule
		var start, end pgtype.Time
		if err := rows.Scan(&rl.ID, &rl.LocationID, &rl.DayOfWeek, &start, &end, &rl.Multiplier, &rl.Notes); err != nil {
			return nil, err
		}
		rl.Start = clockFromPG(start)
		rl.End = clockFromPG(end)
		out = append(out, rl)
	}
	return out, rows.Err()
}

func (r *Repo) Create(ctx context.Context, rl Rule) (int64, error) {
	const q = `
        INSERT INTO pricing_rules(location_id, day_of_week, start_time, end_time, multiplier, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id;
    `
	var id int64
	err := r.db.QueryRow(ctx, q, rl.LocationID, rl.DayOfWeek, clockToPG(rl.Start), clockToPG(rl.End), rl.Multiplier, rl.Notes).Scan(&id)
	return id, err
}

func clockFromPG(t pgtype.Time) Clock {
	return Clock(time.Duration(t.Microseconds) * time.Microsecond)
}

func clockToPG(c Clock) pgtype.Time {
	return pgtype.Time{Microseconds: time.Duration(c).Microseconds(), Valid: true}
}
