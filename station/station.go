package station

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type State int

const (
	Working State = iota
	Blocked
)

// Station is a docking station. BikesLimit caps how many bikes may sit at
// its docks; rented bikes do not count against it.
type Station struct {
	ID         uuid.UUID
	Name       string
	State      State
	BikesLimit int `db:"bikes_limit"`
}

func (s State) String() string {
	return [...]string{"working", "blocked"}[s]
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) Scan(i any) error {
	switch v := i.(type) {
	case string:
		switch v {
		case "working":
			*s = Working
			return nil
		case "blocked":
			*s = Blocked
			return nil
		}
	}
	panic("invalid scan type")
}
