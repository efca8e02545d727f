package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleRider Role = "user"
	RoleTech  Role = "tech"
	RoleAdmin Role = "admin"
)

type State string

const (
	StateActive  State = "active"
	StateBlocked State = "blocked"
)

// DefaultRentalLimit is how many bikes a new account may rent at once.
const DefaultRentalLimit = 4

type User struct {
	ID       uuid.UUID `db:"id"`
	Username string    `db:"username"`
	// PasswordHash is a bcrypt hash. Never serialized.
	PasswordHash string `db:"password_hash" json:"-"`
	Role         Role   `db:"role"`
	State        State  `db:"state"`
	// RentalLimit caps concurrent active rentals for this account.
	RentalLimit int       `db:"rental_limit"`
	CreatedAt   time.Time `db:"created_at"`
}

func (u User) Blocked() bool {
	return u.State == StateBlocked
}
