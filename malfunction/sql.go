package malfunction

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("malfunction not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]Malfunction, error) {
	var reports []Malfunction
	err := r.db.SelectContext(ctx, &reports, listMalfunctions)
	return reports, err
}

const listMalfunctions = `SELECT * FROM malfunctions ORDER BY created_at ASC`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Malfunction, error) {
	var m Malfunction
	err := r.db.GetContext(ctx, &m, getMalfunction, id)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

const getMalfunction = `SELECT * FROM malfunctions WHERE id = $1`

// Delete clears a report. The bike's status is untouched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteMalfunction, id)
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

const deleteMalfunction = `DELETE FROM malfunctions WHERE id = $1`
