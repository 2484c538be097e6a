// README: Vehicle store backed by PostgreSQL.
package vehicle

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"carpool/internal/infra"
	"carpool/internal/types"
)

type Store struct {
	db infra.DB
}

func NewStore(db infra.DB) *Store {
	return &Store{db: db}
}

const vehicleColumns = `user_id, make, model, year, color, plate, seats, created_at, updated_at`

func (s *Store) Get(ctx context.Context, userID types.ID) (*Vehicle, error) {
	row := s.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE user_id = $1`, string(userID))
	var v Vehicle
	err := row.Scan(&v.UserID, &v.Make, &v.Model, &v.Year, &v.Color, &v.Plate, &v.Seats, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no vehicle for user %s", types.ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) Exists(ctx context.Context, userID types.ID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vehicles WHERE user_id = $1)`, string(userID)).Scan(&exists)
	return exists, err
}

func (s *Store) Create(ctx context.Context, v *Vehicle) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicles (user_id, make, model, year, color, plate, seats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(v.UserID), v.Make, v.Model, v.Year, v.Color, v.Plate, v.Seats, v.CreatedAt, v.UpdatedAt,
	)
	if infra.IsUniqueViolation(err, "") {
		return fmt.Errorf("%w: vehicle already registered or plate in use", types.ErrConflict)
	}
	return err
}

func (s *Store) Update(ctx context.Context, v *Vehicle) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE vehicles
		SET make = $2, model = $3, year = $4, color = $5, plate = $6, seats = $7, updated_at = $8
		WHERE user_id = $1`,
		string(v.UserID), v.Make, v.Model, v.Year, v.Color, v.Plate, v.Seats, v.UpdatedAt,
	)
	if infra.IsUniqueViolation(err, "") {
		return fmt.Errorf("%w: plate in use", types.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: no vehicle for user %s", types.ErrNotFound, v.UserID)
	}
	return nil
}
