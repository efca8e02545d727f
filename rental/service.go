// Package rental is the transition layer for the fleet. Every use case is
// one method on Service running as a single transaction: lock the rows it
// will judge, evaluate preconditions in order, apply the effects, commit.
// The first failing precondition decides the returned fault.
package rental

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saltybikes/fleet-backend/bike"
	"github.com/saltybikes/fleet-backend/internal/clock"
	"github.com/saltybikes/fleet-backend/user"
)

// MaxReservations caps concurrent holds per user.
const MaxReservations = 3

type Service struct {
	db    *sqlx.DB
	clock clock.Clock
}

func NewService(db *sqlx.DB, clk clock.Clock) *Service {
	return &Service{db: db, clock: clk}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// lockBike fetches a bike under a row lock held until the transaction ends.
// Concurrent transitions on the same bike serialize here, so the loser of a
// race observes the winner's state and fails its precondition check.
func lockBike(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bike.Bike, error) {
	var b bike.Bike
	err := tx.GetContext(ctx, &b, lockBikeQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return b, bike.ErrNotFound
	}
	return b, err
}

const lockBikeQuery = `SELECT * FROM bikes WHERE id = $1 FOR UPDATE`

func lockUser(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (user.User, error) {
	var u user.User
	err := tx.GetContext(ctx, &u, lockUserQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return u, user.ErrNotFound
	}
	return u, err
}

const lockUserQuery = `SELECT * FROM users WHERE id = $1 FOR UPDATE`

// expireIfLapsed normalizes a reserved bike whose hold has run out before
// any precondition is evaluated: the reservation is deleted and the bike
// returned to available, all inside the caller's transaction. It returns
// the reservation still in force, or nil. This is the only time-driven
// transition; there is no background sweep.
func expireIfLapsed(ctx context.Context, tx *sqlx.Tx, b *bike.Bike, now time.Time) (*bike.Reservation, error) {
	if b.Status != bike.StatusReserved {
		return nil, nil
	}

	var res bike.Reservation
	err := tx.GetContext(ctx, &res, getReservationQuery, b.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Reserved status with no reservation row should not happen; treat
		// the hold as lapsed and repair the bike.
		err = tx.GetContext(ctx, b, releaseBikeQuery, b.ID)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if !res.Expired(now) {
		return &res, nil
	}

	if _, err := tx.ExecContext(ctx, deleteReservationQuery, b.ID); err != nil {
		return nil, err
	}
	err = tx.GetContext(ctx, b, releaseBikeQuery, b.ID)
	return nil, err
}

const getReservationQuery = `SELECT * FROM reservations WHERE bike_id = $1`
const deleteReservationQuery = `DELETE FROM reservations WHERE bike_id = $1`
const releaseBikeQuery = `UPDATE bikes SET status = 'available' WHERE id = $1 RETURNING *`

// stationBlocked reports whether the station a bike is docked at is blocked.
// Undocked bikes have no station to judge.
func stationBlocked(ctx context.Context, tx *sqlx.Tx, b bike.Bike) (bool, error) {
	if !b.Docked() {
		return false, nil
	}
	var blocked bool
	err := tx.GetContext(ctx, &blocked, stationBlockedQuery, *b.StationID)
	return blocked, err
}

const stationBlockedQuery = `SELECT state = 'blocked' FROM stations WHERE id = $1`

// dockedCount counts docked bikes at a station inside the transaction, so
// capacity checks see a snapshot consistent with the mutation they guard.
func dockedCount(ctx context.Context, tx *sqlx.Tx, stationID uuid.UUID) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n, dockedCountQuery, stationID)
	return n, err
}

const dockedCountQuery = `SELECT count(*) FROM bikes WHERE station_id = $1 AND status IN ('available', 'reserved', 'blocked')`
