package audit

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
)

var emptyObject = json.RawMessage(`{}`)

// Recorder writes and reads the audit trail.
type Recorder struct {
	repo Repository
}

// NewRecorder creates a Recorder backed by the given repository.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record appends one entry describing a mutation that has just been applied.
// The before and after snapshots are marshalled to JSON; nil snapshots become
// empty objects. Record must run inside the same logical operation as the
// mutation so that its failure surfaces to the caller.
func (r *Recorder) Record(ctx context.Context, actorID string, action Action, entity, entityID string, before, after any, origin Origin) (*Entry, error) {
	if !action.Valid() {
		return nil, errors.Wrapf(ErrUnknownAction, "%q", action)
	}

	beforeJSON, err := marshalSnapshot(before)
	if err != nil {
		return nil, errors.Wrap(err, "marshal before snapshot")
	}
	afterJSON, err := marshalSnapshot(after)
	if err != nil {
		return nil, errors.Wrap(err, "marshal after snapshot")
	}

	entry, err := r.repo.Insert(ctx, Entry{
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Changes:   Changes{Before: beforeJSON, After: afterJSON},
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
	})
	if err != nil {
		return nil, errors.Wrap(err, "insert audit entry")
	}
	return entry, nil
}

// HistoryFor returns the newest entries for one entity.
func (r *Recorder) HistoryFor(ctx context.Context, entity, entityID string, limit int) ([]Entry, error) {
	return r.repo.HistoryFor(ctx, entity, entityID, limit)
}

// ActivityBy returns the newest entries produced by one actor.
func (r *Recorder) ActivityBy(ctx context.Context, actorID string, limit int) ([]Entry, error) {
	return r.repo.ActivityBy(ctx, actorID, limit)
}

// Recent returns the newest entries matching the filter.
func (r *Recorder) Recent(ctx context.Context, limit int, f Filter) ([]Entry, error) {
	return r.repo.Recent(ctx, limit, f)
}

func marshalSnapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return emptyObject, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
