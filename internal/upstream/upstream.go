// Package upstream describes failures of external collaborators (spend source,
// calendar sink, notification sink). They never touch scorer or learner state.
package upstream

import "fmt"

// Error reports that a collaborator did not respond.
type Error struct {
	Collaborator string
	Err          error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as an upstream failure of collaborator.
func Unavailable(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Collaborator: collaborator, Err: err}
}
