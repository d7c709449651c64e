// Package audit keeps the immutable trail of every mutating action taken
// against core entities. Entries are written synchronously with the mutation
// they describe; a failed audit write fails the whole operation.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
)

// Action enumerates the recordable mutation kinds.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionCancel Action = "cancel"
	ActionBlock  Action = "block"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionCancel, ActionBlock:
		return true
	}
	return false
}

// ErrUnknownAction is returned when an entry carries an action outside the
// known set.
var ErrUnknownAction = errors.New("unknown audit action")

// Changes holds the before/after snapshots of the mutated fields.
// Snapshots are arbitrary JSON documents; an empty object means
// "not applicable".
type Changes struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

// Origin identifies where a mutation came from.
type Origin struct {
	IP        string
	UserAgent string
}

// Entry is one immutable audit record. Entries are created once and never
// updated or deleted by the application.
type Entry struct {
	ID        string
	ActorID   string
	Action    Action
	Entity    string
	EntityID  string
	Changes   Changes
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// Filter narrows a Recent query. Zero values mean "no constraint".
type Filter struct {
	Action Action
	Entity string
	From   time.Time
	To     time.Time
}

// Repository persists and queries audit entries. All query results are
// sorted newest first.
type Repository interface {
	Insert(ctx context.Context, e Entry) (*Entry, error)
	HistoryFor(ctx context.Context, entity, entityID string, limit int) ([]Entry, error)
	ActivityBy(ctx context.Context, actorID string, limit int) ([]Entry, error)
	Recent(ctx context.Context, limit int, f Filter) ([]Entry, error)
}
