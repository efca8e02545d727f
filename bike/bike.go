// Package bike
package bike

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusRented    Status = "rented"
	StatusReserved  Status = "reserved"
	StatusBlocked   Status = "blocked"
)

// HoldDuration is how long a reservation keeps a bike before it lapses.
const HoldDuration = 30 * time.Minute

// Bike is a fleet bike. A bike is docked (StationID set) in every status
// except rented, where UserID identifies the rider holding it instead.
type Bike struct {
	ID     uuid.UUID `db:"id"`
	Status Status    `db:"status"`

	StationID *uuid.UUID `db:"station_id"`
	UserID    *uuid.UUID `db:"user_id"`
}

// Docked reports whether the bike sits at a station dock.
func (b Bike) Docked() bool {
	return b.StationID != nil
}

// Reservation is a hold on a bike. One exists iff the bike's status is
// reserved; it is created and destroyed together with that status.
type Reservation struct {
	ID           uuid.UUID `db:"id"`
	BikeID       uuid.UUID `db:"bike_id"`
	UserID       uuid.UUID `db:"user_id"`
	ReservedAt   time.Time `db:"reserved_at"`
	ReservedTill time.Time `db:"reserved_till"`
}

// Expired reports whether the hold has lapsed at the given instant.
func (r Reservation) Expired(now time.Time) bool {
	return !now.Before(r.ReservedTill)
}
