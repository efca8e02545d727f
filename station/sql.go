package station

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saltybikes/fleet-backend/internal/fault"
)

var ErrNotFound = errors.New("station not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) List(ctx context.Context) ([]Station, error) {
	var stations []Station
	err := r.db.SelectContext(ctx, &stations, listStations)
	return stations, err
}

const listStations = `SELECT * FROM stations ORDER BY name`

func (r *Repository) ListByState(ctx context.Context, state State) ([]Station, error) {
	var stations []Station
	err := r.db.SelectContext(ctx, &stations, listStationsByState, state.String())
	return stations, err
}

const listStationsByState = `SELECT * FROM stations WHERE state = $1 ORDER BY name`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Station, error) {
	var s Station
	err := r.db.GetContext(ctx, &s, getStation, id)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

const getStation = `SELECT * FROM stations WHERE id = $1`

func (r *Repository) Create(ctx context.Context, name string, bikesLimit int) (Station, error) {
	var s Station
	err := r.db.GetContext(ctx, &s, createStation, uuid.New(), name, bikesLimit)
	return s, err
}

const createStation = `
INSERT INTO stations (id, name, bikes_limit)
VALUES ($1, $2, $3)
RETURNING *
`

// Delete removes a station. Refused while any bike still references it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	err = tx.GetContext(ctx, &n, countStationBikes, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fault.Conflictf("station has bikes")
	}

	res, err := tx.ExecContext(ctx, deleteStation, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

const countStationBikes = `SELECT count(*) FROM bikes WHERE station_id = $1`
const deleteStation = `DELETE FROM stations WHERE id = $1`

// DockedCount counts docked bikes at a station, the number the bikes_limit
// invariant constrains. Rented bikes carry no station and never count.
func (r *Repository) DockedCount(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, countDocked, id)
	return n, err
}

const countDocked = `SELECT count(*) FROM bikes WHERE station_id = $1 AND status IN ('available', 'reserved', 'blocked')`
