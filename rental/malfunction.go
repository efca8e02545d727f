package rental

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/saltybikes/fleet-backend/bike"
	"github.com/saltybikes/fleet-backend/internal/fault"
	"github.com/saltybikes/fleet-backend/malfunction"
)

// ReportMalfunction files an issue report against a bike. Only the rider
// currently renting the bike may file one; the report does not change the
// bike's status.
func (s *Service) ReportMalfunction(ctx context.Context, bikeID uuid.UUID, description string, actorID uuid.UUID) (malfunction.Malfunction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return malfunction.Malfunction{}, err
	}
	defer tx.Rollback()

	b, err := lockBike(ctx, tx, bikeID)
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			return malfunction.Malfunction{}, fault.NotFoundf("bike not found")
		}
		return malfunction.Malfunction{}, err
	}

	if b.Status != bike.StatusRented || b.UserID == nil || *b.UserID != actorID {
		return malfunction.Malfunction{}, fault.InvalidStatef("bike not rented by reporting user")
	}

	var m malfunction.Malfunction
	err = tx.GetContext(ctx, &m, createMalfunctionQuery, uuid.New(), b.ID, actorID, description)
	if err != nil {
		return malfunction.Malfunction{}, err
	}

	return m, tx.Commit()
}

const createMalfunctionQuery = `
INSERT INTO malfunctions (id, bike_id, user_id, description, created_at)
VALUES ($1, $2, $3, $4, now())
RETURNING *
`
