package vehicles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/parkaro/internal/infra/db"
)

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

func (r *Repo) GetByID(ctx context.Context, id int64) (*Vehicle, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, owner_id, number, vehicle_type, is_default
		FROM vehicles WHERE id = $1
	`, id)
	var v Vehicle
	if err := row.Scan(&v.ID, &v.OwnerID, &v.Number, &v.Type, &v.IsDefault); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// Upsert по паре (owner, number), как требует уникальный ключ.
func (r *Repo) Upsert(ctx context.Context, v Vehicle) (*Vehicle, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO vehicles (owner_id, number, vehicle_type, is_default)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (owner_id, number)
		DO UPDATE SET vehicle_type = EXCLUDED.vehicle_type,
		              is_default   = EXCLUDED.is_default,
		              updated_at   = now()
		RETURNING id, owner_id, number, vehicle_type, is_default
	`, v.OwnerID, v.Number, v.Type, v.IsDefault)
	var out Vehicle
	if err := row.Scan(&out.ID, &out.OwnerID, &out.Number, &out.Type, &out.IsDefault); err != nil {
		return nil, err
	}
	return &out, nil
}
