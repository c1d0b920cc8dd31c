package refunds

import (
	"context"

	"github.com/Spok95/parkaro/internal/infra/db"
)

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

// ForLocation — политики парковки плюс глобальные, от большего порога к меньшему.
func (r *Repo) ForLocation(ctx context.Context, locationID int64) ([]Policy, error) {
	const q = `
        SELECT id, location_id, min_minutes_before_start, refund_percentage, description
        FROM cancellation_policies
        WHERE location_id = $1 OR location_id IS NULL
        ORDER BY min_minutes_before_start DESC, location_id NULLS LAST, id;
    `
	rows, err := r.db.Query(ctx, q, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Policy{}
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.ID, &p.LocationID, &p.MinMinutesBefore, &p.RefundPercentage, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Create(ctx context.Context, p Policy) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO cancellation_policies (location_id, min_minutes_before_start, refund_percentage, description)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, p.LocationID, p.MinMinutesBefore, p.RefundPercentage, p.Description).Scan(&id)
	return id, err
}
