package rental

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/saltybikes/fleet-backend/bike"
	"github.com/saltybikes/fleet-backend/internal/fault"
	"github.com/saltybikes/fleet-backend/user"
)

// Reserve places a hold on an available bike for the acting user. The hold
// lapses HoldDuration after creation; nothing enforces that actively, the
// next access normalizes it.
func (s *Service) Reserve(ctx context.Context, bikeID uuid.UUID, actorID uuid.UUID) (bike.Bike, bike.Reservation, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return bike.Bike{}, bike.Reservation{}, err
	}
	defer tx.Rollback()

	actor, err := lockUser(ctx, tx, actorID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return bike.Bike{}, bike.Reservation{}, fault.NotFoundf("user not found")
		}
		return bike.Bike{}, bike.Reservation{}, err
	}
	if actor.Blocked() {
		return bike.Bike{}, bike.Reservation{}, fault.Forbiddenf("user blocked")
	}

	now := s.clock.Now()

	// Lapsed holds still sitting in the table must not count against the
	// limit; only holds that are live right now do.
	var held int
	if err := tx.GetContext(ctx, &held, countReservationsByUserQuery, actor.ID, now); err != nil {
		return bike.Bike{}, bike.Reservation{}, err
	}
	if held >= MaxReservations {
		return bike.Bike{}, bike.Reservation{}, fault.InvalidStatef("reservation limit reached")
	}

	b, err := lockBike(ctx, tx, bikeID)
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			return bike.Bike{}, bike.Reservation{}, fault.NotFoundf("bike not found")
		}
		return bike.Bike{}, bike.Reservation{}, err
	}

	if _, err := expireIfLapsed(ctx, tx, &b, now); err != nil {
		return bike.Bike{}, bike.Reservation{}, err
	}

	if b.Status != bike.StatusAvailable {
		return bike.Bike{}, bike.Reservation{}, fault.InvalidStatef("bike not available")
	}

	blocked, err := stationBlocked(ctx, tx, b)
	if err != nil {
		return bike.Bike{}, bike.Reservation{}, err
	}
	if blocked {
		return bike.Bike{}, bike.Reservation{}, fault.InvalidStatef("station blocked")
	}

	var res bike.Reservation
	err = tx.GetContext(ctx, &res, createReservationQuery,
		uuid.New(), b.ID, actor.ID, now, now.Add(bike.HoldDuration))
	if err != nil {
		return bike.Bike{}, bike.Reservation{}, err
	}

	if err := tx.GetContext(ctx, &b, reserveBikeQuery, b.ID); err != nil {
		return bike.Bike{}, bike.Reservation{}, err
	}

	return b, res, tx.Commit()
}

const countReservationsByUserQuery = `
SELECT count(*) FROM reservations WHERE user_id = $1 AND reserved_till > $2
`

const createReservationQuery = `
INSERT INTO reservations (id, bike_id, user_id, reserved_at, reserved_till)
VALUES ($1, $2, $3, $4, $5)
RETURNING *
`

const reserveBikeQuery = `UPDATE bikes SET status = 'reserved' WHERE id = $1 RETURNING *`

// CancelReservation releases the acting user's hold on a bike. A missing
// bike reports invalid state rather than not found, matching long-observed
// behavior of this endpoint.
func (s *Service) CancelReservation(ctx context.Context, bikeID uuid.UUID, actorID uuid.UUID) (bike.Bike, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return bike.Bike{}, err
	}
	defer tx.Rollback()

	b, err := lockBike(ctx, tx, bikeID)
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			return bike.Bike{}, fault.InvalidStatef("bike does not exist")
		}
		return bike.Bike{}, err
	}

	res, err := expireIfLapsed(ctx, tx, &b, s.clock.Now())
	if err != nil {
		return bike.Bike{}, err
	}

	if b.Status != bike.StatusReserved || res == nil {
		return bike.Bike{}, fault.InvalidStatef("bike not reserved")
	}
	if res.UserID != actorID {
		return bike.Bike{}, fault.InvalidStatef("reservation belongs to another user")
	}

	if _, err := tx.ExecContext(ctx, deleteReservationQuery, b.ID); err != nil {
		return bike.Bike{}, err
	}
	if err := tx.GetContext(ctx, &b, releaseBikeQuery, b.ID); err != nil {
		return bike.Bike{}, err
	}

	return b, tx.Commit()
}
