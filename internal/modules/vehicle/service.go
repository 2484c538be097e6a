// README: Vehicle service: register, read and update the caller's vehicle; driver capability check.
package vehicle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carpool/internal/types"
)

type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: time.Now}
}

type RegisterCommand struct {
	Make  string
	Model string
	Year  int
	Color string
	Plate string
	Seats int
}

// UpdateCommand applies only the non-nil fields.
type UpdateCommand struct {
	Make  *string
	Model *string
	Year  *int
	Color *string
	Plate *string
	Seats *int
}

func (s *Service) Register(ctx context.Context, actor types.Actor, cmd RegisterCommand) (*Vehicle, error) {
	now := s.now()
	v := &Vehicle{
		UserID:    actor.ID,
		Make:      strings.TrimSpace(cmd.Make),
		Model:     strings.TrimSpace(cmd.Model),
		Year:      cmd.Year,
		Color:     strings.TrimSpace(cmd.Color),
		Plate:     normalizePlate(cmd.Plate),
		Seats:     cmd.Seats,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.validate(actor, v); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, userID types.ID) (*Vehicle, error) {
	return s.store.Get(ctx, userID)
}

func (s *Service) Update(ctx context.Context, actor types.Actor, cmd UpdateCommand) (*Vehicle, error) {
	v, err := s.store.Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if cmd.Make != nil {
		v.Make = strings.TrimSpace(*cmd.Make)
	}
	if cmd.Model != nil {
		v.Model = strings.TrimSpace(*cmd.Model)
	}
	if cmd.Year != nil {
		v.Year = *cmd.Year
	}
	if cmd.Color != nil {
		v.Color = strings.TrimSpace(*cmd.Color)
	}
	if cmd.Plate != nil {
		v.Plate = normalizePlate(*cmd.Plate)
	}
	if cmd.Seats != nil {
		v.Seats = *cmd.Seats
	}
	v.UpdatedAt = s.now()
	if err := s.validate(actor, v); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// IsDriver is true for callers carrying the driver role claim or owning a vehicle.
func (s *Service) IsDriver(ctx context.Context, actor types.Actor) (bool, error) {
	if actor.Role == types.RoleDriver {
		return true, nil
	}
	return s.store.Exists(ctx, actor.ID)
}

// Vehicle returns the actor's vehicle, or nil when none is registered.
func (s *Service) Vehicle(ctx context.Context, userID types.ID) (*Vehicle, error) {
	v, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (s *Service) validate(actor types.Actor, v *Vehicle) error {
	switch {
	case actor.ID == "":
		return fmt.Errorf("%w: missing user", types.ErrValidation)
	case v.Make == "" || v.Model == "":
		return fmt.Errorf("%w: make and model are required", types.ErrValidation)
	case v.Plate == "":
		return fmt.Errorf("%w: plate is required", types.ErrValidation)
	case v.Seats < 1:
		return fmt.Errorf("%w: seats must be at least 1, got %d", types.ErrValidation, v.Seats)
	case v.Year < minYear || v.Year > s.now().Year()+1:
		return fmt.Errorf("%w: year %d out of range", types.ErrValidation, v.Year)
	}
	return nil
}

func normalizePlate(p string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(p), " ", ""))
}
