package bike

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("bike not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListByStatus(ctx context.Context, status Status) ([]Bike, error) {
	var bikes []Bike
	err := r.db.SelectContext(ctx, &bikes, listByStatus, status)
	return bikes, err
}

const listByStatus = `SELECT * FROM bikes WHERE status = $1 ORDER BY id`

// ListDockedAt fetches bikes with the given status docked at a station.
func (r *Repository) ListDockedAt(ctx context.Context, stationID uuid.UUID, status Status) ([]Bike, error) {
	var bikes []Bike
	err := r.db.SelectContext(ctx, &bikes, listDockedAt, stationID, status)
	return bikes, err
}

const listDockedAt = `SELECT * FROM bikes WHERE station_id = $1 AND status = $2 ORDER BY id`

// ListReservedBy fetches the bikes currently held by a user's reservations.
func (r *Repository) ListReservedBy(ctx context.Context, userID uuid.UUID) ([]Bike, error) {
	var bikes []Bike
	err := r.db.SelectContext(ctx, &bikes, listReservedBy, userID)
	return bikes, err
}

const listReservedBy = `
SELECT b.* FROM bikes b
JOIN reservations res ON res.bike_id = b.id
WHERE res.user_id = $1
ORDER BY res.reserved_at ASC
`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Bike, error) {
	var b Bike
	err := r.db.GetContext(ctx, &b, getBike, id)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

const getBike = `SELECT * FROM bikes WHERE id = $1`

// Delete removes a bike regardless of its status.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteBike, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const deleteBike = `DELETE FROM bikes WHERE id = $1`

// ExpireLapsed deletes every reservation whose hold has run out and returns
// the affected bikes to available. Read paths call this before rendering so
// a lapsed hold is never observed as reserved.
func (r *Repository) ExpireLapsed(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, expireLapsed, now)
	return err
}

const expireLapsed = `
WITH lapsed AS (
    DELETE FROM reservations WHERE reserved_till <= $1 RETURNING bike_id
)
UPDATE bikes SET status = 'available'
WHERE id IN (SELECT bike_id FROM lapsed) AND status = 'reserved'
`
