// Package fault carries typed failures from state transitions to the
// presentation layer, which maps kinds to protocol status codes.
package fault

import "errors"

type Kind int

const (
	// NotFound means a referenced entity id does not exist.
	NotFound Kind = iota
	// InvalidState means the operation is not legal given current entity state.
	InvalidState
	// Forbidden means the acting user lacks standing for the operation.
	Forbidden
	// Conflict means a structural deletion is blocked by existing dependents.
	Conflict
)

func (k Kind) String() string {
	return [...]string{"not_found", "invalid_state", "forbidden", "conflict"}[k]
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFoundf(msg string) *Error {
	return &Error{Kind: NotFound, Message: msg}
}

func InvalidStatef(msg string) *Error {
	return &Error{Kind: InvalidState, Message: msg}
}

func Forbiddenf(msg string) *Error {
	return &Error{Kind: Forbidden, Message: msg}
}

func Conflictf(msg string) *Error {
	return &Error{Kind: Conflict, Message: msg}
}

// KindOf reports the fault kind of err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
