// Package malfunction holds rider-filed issue reports. Clearing a report is
// independent of blocking the bike; a technician does both explicitly.
package malfunction

import (
	"time"

	"github.com/google/uuid"
)

type Malfunction struct {
	ID     uuid.UUID `db:"id"`
	BikeID uuid.UUID `db:"bike_id"`
	// UserID is the rider who filed the report while renting the bike.
	UserID      uuid.UUID `db:"user_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}
