package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maisonoak/storefront/internal/domain/audit"
)

var _ audit.Repository = (*AuditRepository)(nil)

// AuditRepository implements audit.Repository backed by PostgreSQL. Rows are
// insert-only; the application never updates or deletes them.
type AuditRepository struct {
	db *DB
}

// NewAuditRepository returns an AuditRepository over the given DB.
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `id, actor_id, action, entity, entity_id, before, after, ip, user_agent, created_at`

// Insert appends one entry and returns it with id and timestamp filled in.
func (r *AuditRepository) Insert(ctx context.Context, e audit.Entry) (*audit.Entry, error) {
	e.ID = uuid.New().String()
	err := r.db.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_log (id, actor_id, action, entity, entity_id, before, after, ip, user_agent)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		e.ID, e.ActorID, string(e.Action), e.Entity, e.EntityID,
		[]byte(e.Changes.Before), []byte(e.Changes.After), e.IP, e.UserAgent,
	).Scan(&e.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "inserting audit entry")
	}
	return &e, nil
}

// HistoryFor returns the newest entries for one entity.
func (r *AuditRepository) HistoryFor(ctx context.Context, entity, entityID string, limit int) ([]audit.Entry, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE entity = $1 AND entity_id = $2
		ORDER BY seq DESC
		LIMIT $3`,
		entity, entityID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying entity history")
	}
	return scanEntries(rows)
}

// ActivityBy returns the newest entries produced by one actor.
func (r *AuditRepository) ActivityBy(ctx context.Context, actorID string, limit int) ([]audit.Entry, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE actor_id = $1
		ORDER BY seq DESC
		LIMIT $2`,
		actorID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying actor activity")
	}
	return scanEntries(rows)
}

// Recent returns the newest entries matching the filter.
func (r *AuditRepository) Recent(ctx context.Context, limit int, f audit.Filter) ([]audit.Entry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log WHERE 1=1`
	args := []any{}

	if f.Action != "" {
		args = append(args, string(f.Action))
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if f.Entity != "" {
		args = append(args, f.Entity)
		query += fmt.Sprintf(" AND entity = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d", len(args))

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent audit entries")
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]audit.Entry, error) {
	defer rows.Close()

	entries := make([]audit.Entry, 0)
	for rows.Next() {
		var (
			e      audit.Entry
			action string
		)
		err := rows.Scan(&e.ID, &e.ActorID, &action, &e.Entity, &e.EntityID,
			&e.Changes.Before, &e.Changes.After, &e.IP, &e.UserAgent, &e.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning audit entry")
		}
		e.Action = audit.Action(action)
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "iterating audit entries")
}
