package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrActorNotFound is returned when no actor matches the presented key hash.
var ErrActorNotFound = errors.New("actor not found")

// Actor is the back-office identity resolved from a validated API key.
// Authorization itself happens in the outer layer; the core only needs a
// stable actor id to stamp audit entries and stock movements with.
type Actor struct {
	ID      string
	KeyHash string
	Name    string
}

// Repository provides lookup of actors by the HMAC hash of their API key.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Actor, error)
}
