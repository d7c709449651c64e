package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/maisonoak/storefront/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// ErrAPIKeyNotFound is returned when no API key matches the given hash.
var ErrAPIKeyNotFound = errors.New("api key not found")

// APIKeyRepository provides back-office actor lookups backed by PostgreSQL.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository returns an APIKeyRepository over the given DB.
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// FindByHash looks up an actor by the HMAC-SHA256 hash of their API key.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.Actor, error) {
	var actor auth.Actor
	err := r.db.conn(ctx).QueryRow(ctx,
		`SELECT id, key_hash, name FROM api_keys WHERE key_hash = $1`, hash,
	).Scan(&actor.ID, &actor.KeyHash, &actor.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding api key by hash")
	}
	return &actor, nil
}

// InsertKey stores a new peppered key hash for an actor. Used by seeding.
func (r *APIKeyRepository) InsertKey(ctx context.Context, actor auth.Actor) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO api_keys (key_hash, id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_hash) DO NOTHING`,
		actor.KeyHash, actor.ID, actor.Name,
	)
	return errors.Wrap(err, "inserting api key")
}
