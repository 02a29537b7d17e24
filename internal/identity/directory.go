// Package identity resolves opaque actor ids to display data. Results are used
// to label records for display only and never to authorize anything.
package identity

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the directory has no entry for an actor id.
var ErrNotFound = errors.New("identity not found")

// Identity is the display data of an actor.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// Directory resolves a single actor id.
type Directory interface {
	Resolve(ctx context.Context, actorID string) (Identity, error)
}

// Lister is implemented by directories that can enumerate their actors.
type Lister interface {
	List(ctx context.Context) ([]Identity, error)
}

// LookupError reports a failed resolution of one actor id.
type LookupError struct {
	ActorID string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("resolve actor %q: %v", e.ActorID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
