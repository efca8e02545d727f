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

// BlockBike takes an available bike out of circulation. It stays docked.
func (s *Service) BlockBike(ctx context.Context, bikeID uuid.UUID) (bike.Bike, error) {
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

	if _, err := expireIfLapsed(ctx, tx, &b, s.clock.Now()); err != nil {
		return bike.Bike{}, err
	}

	if b.Status == bike.StatusBlocked {
		return bike.Bike{}, fault.InvalidStatef("bike already blocked")
	}
	if b.Status != bike.StatusAvailable {
		return bike.Bike{}, fault.InvalidStatef("bike not available")
	}

	if err := tx.GetContext(ctx, &b, blockBikeQuery, b.ID); err != nil {
		return bike.Bike{}, err
	}

	return b, tx.Commit()
}

const blockBikeQuery = `UPDATE bikes SET status = 'blocked' WHERE id = $1 RETURNING *`

func (s *Service) UnblockBike(ctx context.Context, bikeID uuid.UUID) (bike.Bike, error) {
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

	if b.Status != bike.StatusBlocked {
		return bike.Bike{}, fault.InvalidStatef("bike not blocked")
	}

	if err := tx.GetContext(ctx, &b, releaseBikeQuery, b.ID); err != nil {
		return bike.Bike{}, err
	}

	return b, tx.Commit()
}

// BlockStation blocks a working station and force-releases every hold on a
// bike docked there: the reservations are deleted and the bikes returned to
// available, in the same transaction as the block.
func (s *Service) BlockStation(ctx context.Context, stationID uuid.UUID) (station.Station, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return station.Station{}, err
	}
	defer tx.Rollback()

	var target station.Station
	err = tx.GetContext(ctx, &target, lockStationQuery, stationID)
	if err != nil {
		if isNoRows(err) {
			return station.Station{}, fault.NotFoundf("station not found")
		}
		return station.Station{}, err
	}
	if target.State != station.Working {
		return station.Station{}, fault.InvalidStatef("station already blocked")
	}

	if err := tx.GetContext(ctx, &target, blockStationQuery, target.ID); err != nil {
		return station.Station{}, err
	}

	if _, err := tx.ExecContext(ctx, cancelStationReservationsQuery, target.ID); err != nil {
		return station.Station{}, err
	}
	if _, err := tx.ExecContext(ctx, releaseStationBikesQuery, target.ID); err != nil {
		return station.Station{}, err
	}

	return target, tx.Commit()
}

const blockStationQuery = `UPDATE stations SET state = 'blocked' WHERE id = $1 RETURNING *`

const cancelStationReservationsQuery = `
DELETE FROM reservations
WHERE bike_id IN (SELECT id FROM bikes WHERE station_id = $1 AND status = 'reserved')
`

const releaseStationBikesQuery = `
UPDATE bikes SET status = 'available' WHERE station_id = $1 AND status = 'reserved'
`

func (s *Service) UnblockStation(ctx context.Context, stationID uuid.UUID) (station.Station, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return station.Station{}, err
	}
	defer tx.Rollback()

	var target station.Station
	err = tx.GetContext(ctx, &target, lockStationQuery, stationID)
	if err != nil {
		if isNoRows(err) {
			return station.Station{}, fault.NotFoundf("station not found")
		}
		return station.Station{}, err
	}
	if target.State != station.Blocked {
		return station.Station{}, fault.InvalidStatef("station not blocked")
	}

	if err := tx.GetContext(ctx, &target, unblockStationQuery, target.ID); err != nil {
		return station.Station{}, err
	}

	return target, tx.Commit()
}

const unblockStationQuery = `UPDATE stations SET state = 'working' WHERE id = $1 RETURNING *`

// BlockUser blocks a rider account. Tech and admin accounts cannot be
// blocked. A blocked rider keeps any active rentals but is rejected at the
// precondition layer for new rent and reserve operations.
func (s *Service) BlockUser(ctx context.Context, userID uuid.UUID) (user.User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, err
	}
	defer tx.Rollback()

	u, err := lockUser(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, fault.NotFoundf("user not found")
		}
		return user.User{}, err
	}

	if u.Role != user.RoleRider {
		return user.User{}, fault.InvalidStatef("only riders can be blocked")
	}
	if u.State != user.StateActive {
		return user.User{}, fault.InvalidStatef("user already blocked")
	}

	if err := tx.GetContext(ctx, &u, blockUserQuery, u.ID); err != nil {
		return user.User{}, err
	}

	return u, tx.Commit()
}

const blockUserQuery = `UPDATE users SET state = 'blocked' WHERE id = $1 RETURNING *`

func (s *Service) UnblockUser(ctx context.Context, userID uuid.UUID) (user.User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, err
	}
	defer tx.Rollback()

	u, err := lockUser(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, fault.NotFoundf("user not found")
		}
		return user.User{}, err
	}

	if u.State != user.StateBlocked {
		return user.User{}, fault.InvalidStatef("user not blocked")
	}

	if err := tx.GetContext(ctx, &u, unblockUserQuery, u.ID); err != nil {
		return user.User{}, err
	}

	return u, tx.Commit()
}

const unblockUserQuery = `UPDATE users SET state = 'active' WHERE id = $1 RETURNING *`
