package rental

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/saltybikes/fleet-backend/bike"
	"github.com/saltybikes/fleet-backend/internal/fault"
	"github.com/saltybikes/fleet-backend/station"
	"github.com/saltybikes/fleet-backend/user"
)

// Rent moves a bike to rented for the acting user. A reserved bike can only
// be rented by the user holding the reservation, which is consumed.
func (s *Service) Rent(ctx context.Context, bikeID uuid.UUID, actorID uuid.UUID) (bike.Bike, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return bike.Bike{}, err
	}
	defer tx.Rollback()

	// The actor row lock serializes rental-limit checks for the same user.
	actor, err := lockUser(ctx, tx, actorID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return bike.Bike{}, fault.NotFoundf("user not found")
		}
		return bike.Bike{}, err
	}
	if actor.Blocked() {
		return bike.Bike{}, fault.Forbiddenf("user blocked")
	}

	var rented int
	if err := tx.GetContext(ctx, &rented, countRentedByUserQuery, actor.ID); err != nil {
		return bike.Bike{}, err
	}
	if rented >= actor.RentalLimit {
		return bike.Bike{}, fault.Forbiddenf("rental limit reached")
	}

	b, err := lockBike(ctx, tx, bikeID)
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			return bike.Bike{}, fault.NotFoundf("bike not found")
		}
		return bike.Bike{}, err
	}

	res, err := expireIfLapsed(ctx, tx, &b, s.clock.Now())
	if err != nil {
		return bike.Bike{}, err
	}

	blocked, err := stationBlocked(ctx, tx, b)
	if err != nil {
		return bike.Bike{}, err
	}
	if blocked {
		return bike.Bike{}, fault.InvalidStatef("station blocked")
	}

	switch b.Status {
	case bike.StatusBlocked:
		return bike.Bike{}, fault.InvalidStatef("bike blocked")
	case bike.StatusRented:
		return bike.Bike{}, fault.InvalidStatef("bike already rented")
	case bike.StatusReserved:
		if res == nil || res.UserID != actor.ID {
			return bike.Bike{}, fault.InvalidStatef("bike reserved by another user")
		}
		if _, err := tx.ExecContext(ctx, deleteReservationQuery, b.ID); err != nil {
			return bike.Bike{}, err
		}
	}

	if err := tx.GetContext(ctx, &b, rentBikeQuery, b.ID, actor.ID); err != nil {
		return bike.Bike{}, err
	}

	return b, tx.Commit()
}

const countRentedByUserQuery = `SELECT count(*) FROM bikes WHERE user_id = $1 AND status = 'rented'`

const rentBikeQuery = `
UPDATE bikes SET status = 'rented', user_id = $2, station_id = NULL
WHERE id = $1
RETURNING *
`

// Return docks a rented bike at a station, by the renting user only.
func (s *Service) Return(ctx context.Context, bikeID, stationID uuid.UUID, actorID uuid.UUID) (bike.Bike, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return bike.Bike{}, err
	}
	defer tx.Rollback()

	b, err := lockBike(ctx, tx, bikeID)
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			return bike.Bike{}, fault.NotFoundf("bike not found")
		}
		return bike.Bike{}, err
	}

	if b.Status != bike.StatusRented || b.Docked() {
		return bike.Bike{}, fault.InvalidStatef("bike not rented")
	}
	if b.UserID == nil || *b.UserID != actorID {
		return bike.Bike{}, fault.InvalidStatef("bike rented by another user")
	}

	// Lock the target station so concurrent returns cannot both pass the
	// capacity check.
	var target station.Station
	err = tx.GetContext(ctx, &target, lockStationQuery, stationID)
	if err != nil {
		if isNoRows(err) {
			return bike.Bike{}, fault.NotFoundf("station not found")
		}
		return bike.Bike{}, err
	}
	if target.State == station.Blocked {
		return bike.Bike{}, fault.InvalidStatef("station blocked")
	}

	docked, err := dockedCount(ctx, tx, target.ID)
	if err != nil {
		return bike.Bike{}, err
	}
	if docked >= target.BikesLimit {
		return bike.Bike{}, fault.InvalidStatef("station full")
	}

	if err := tx.GetContext(ctx, &b, returnBikeQuery, b.ID, target.ID); err != nil {
		return bike.Bike{}, err
	}

	return b, tx.Commit()
}

const lockStationQuery = `SELECT * FROM stations WHERE id = $1 FOR UPDATE`

const returnBikeQuery = `
UPDATE bikes SET status = 'available', station_id = $2, user_id = NULL
WHERE id = $1
RETURNING *
`

// CreateBike registers a new bike docked at a working or blocked station's
// dock, respecting its capacity.
func (s *Service) CreateBike(ctx context.Context, stationID uuid.UUID) (bike.Bike, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return bike.Bike{}, err
	}
	defer tx.Rollback()

	var target station.Station
	err = tx.GetContext(ctx, &target, lockStationQuery, stationID)
	if err != nil {
		if isNoRows(err) {
			return bike.Bike{}, fault.NotFoundf("station not found")
		}
		return bike.Bike{}, err
	}

	docked, err := dockedCount(ctx, tx, target.ID)
	if err != nil {
		return bike.Bike{}, err
	}
	if docked >= target.BikesLimit {
		return bike.Bike{}, fault.InvalidStatef("station full")
	}

	var b bike.Bike
	if err := tx.GetContext(ctx, &b, createBikeQuery, uuid.New(), target.ID); err != nil {
		return bike.Bike{}, err
	}

	return b, tx.Commit()
}

const createBikeQuery = `
INSERT INTO bikes (id, status, station_id)
VALUES ($1, 'available', $2)
RETURNING *
`
