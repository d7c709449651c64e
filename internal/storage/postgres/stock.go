package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maisonoak/storefront/internal/domain/catalog"
	"github.com/maisonoak/storefront/internal/domain/stock"
)

var _ stock.Repository = (*StockRepository)(nil)

// StockRepository implements stock.Repository backed by PostgreSQL. The
// counter check and write happen in a single conditional UPDATE, so
// concurrent deductions against the same variant can never both pass the
// guard on the same previous value.
type StockRepository struct {
	db *DB
}

// NewStockRepository returns a StockRepository over the given DB.
func NewStockRepository(db *DB) *StockRepository {
	return &StockRepository{db: db}
}

// Apply shifts the stock counter and appends the movement row atomically.
// Counter update and ledger insert commit together: they join the caller's
// transaction when one is in flight, otherwise they run in their own.
func (r *StockRepository) Apply(ctx context.Context, m stock.Movement, guarded bool) (*stock.Movement, error) {
	var applied *stock.Movement
	err := r.db.WithinTx(ctx, func(ctx context.Context) error {
		var newStock int
		err := r.db.conn(ctx).QueryRow(ctx, `
			UPDATE variants
			SET stock = stock + $2, updated_at = now()
			WHERE id = $1
			  AND track_stock
			  AND (NOT $3::boolean OR allow_backorder OR stock + $2 >= 0)
			RETURNING stock`,
			m.VariantID, m.Quantity, guarded,
		).Scan(&newStock)

		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyRejection(ctx, m)
		}
		if err != nil {
			return errors.Wrapf(err, "updating stock of variant %q", m.VariantID)
		}

		m.PreviousStock = newStock - m.Quantity
		m.NewStock = newStock
		if err := r.insertMovement(ctx, &m); err != nil {
			return err
		}
		applied = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// SetLevel moves the counter to an absolute level in one statement, deriving
// the delta from the pre-update value. Variants with stock tracking disabled
// are rejected: their counter is meaningless and must not accrue ledger rows.
func (r *StockRepository) SetLevel(ctx context.Context, level int, m stock.Movement) (*stock.Movement, error) {
	var applied *stock.Movement
	err := r.db.WithinTx(ctx, func(ctx context.Context) error {
		var previous int
		err := r.db.conn(ctx).QueryRow(ctx, `
			UPDATE variants v
			SET stock = $2, updated_at = now()
			FROM (SELECT stock AS prev FROM variants WHERE id = $1 AND track_stock FOR UPDATE) p
			WHERE v.id = $1 AND p.prev <> $2
			RETURNING p.prev`,
			m.VariantID, level,
		).Scan(&previous)

		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifySetLevelRejection(ctx, m.VariantID)
		}
		if err != nil {
			return errors.Wrapf(err, "setting stock of variant %q", m.VariantID)
		}

		m.Quantity = level - previous
		m.PreviousStock = previous
		m.NewStock = level
		if err := r.insertMovement(ctx, &m); err != nil {
			return err
		}
		applied = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// History returns the newest movements for a variant.
func (r *StockRepository) History(ctx context.Context, variantID string, limit int) ([]stock.Movement, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT id, variant_id, type, quantity, previous_stock, new_stock,
			order_id, actor_id, reason, notes, created_at
		FROM stock_movements
		WHERE variant_id = $1
		ORDER BY seq DESC
		LIMIT $2`,
		variantID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying stock history")
	}
	return scanMovements(rows)
}

// HistoryForOrder returns the newest movements tied to an order.
func (r *StockRepository) HistoryForOrder(ctx context.Context, orderID string) ([]stock.Movement, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT id, variant_id, type, quantity, previous_stock, new_stock,
			order_id, actor_id, reason, notes, created_at
		FROM stock_movements
		WHERE order_id = $1
		ORDER BY seq DESC`,
		orderID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying order stock history")
	}
	return scanMovements(rows)
}

// classifyRejection turns a zero-row conditional update into the right error:
// missing variant, untracked no-op, or insufficient stock. The counter is
// re-read here after the update already failed, so under concurrency the
// reported Available may differ from the value that caused the rejection; it
// is a best-effort figure for the error message, not the guard itself.
func (r *StockRepository) classifyRejection(ctx context.Context, m stock.Movement) error {
	var (
		current    int
		trackStock bool
	)
	err := r.db.conn(ctx).QueryRow(ctx,
		`SELECT stock, track_stock FROM variants WHERE id = $1`, m.VariantID,
	).Scan(&current, &trackStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrVariantNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "inspecting variant %q", m.VariantID)
	}

	if !trackStock {
		// Stock is not tracked for this variant: no counter change, no
		// ledger entry.
		return nil
	}

	return &stock.InsufficientStockError{
		VariantID: m.VariantID,
		Requested: -m.Quantity,
		Available: current,
	}
}

// classifySetLevelRejection distinguishes the three ways the absolute-level
// update can match no row: missing variant, tracking disabled, or a target
// equal to the current level.
func (r *StockRepository) classifySetLevelRejection(ctx context.Context, variantID string) error {
	var trackStock bool
	err := r.db.conn(ctx).QueryRow(ctx,
		`SELECT track_stock FROM variants WHERE id = $1`, variantID,
	).Scan(&trackStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrVariantNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "inspecting variant %q", variantID)
	}
	if !trackStock {
		return stock.ErrNotTracked
	}
	return stock.ErrZeroAdjustment
}

func (r *StockRepository) insertMovement(ctx context.Context, m *stock.Movement) error {
	m.ID = uuid.New().String()
	err := r.db.conn(ctx).QueryRow(ctx, `
		INSERT INTO stock_movements (id, variant_id, type, quantity, previous_stock, new_stock,
			order_id, actor_id, reason, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		m.ID, m.VariantID, string(m.Type), m.Quantity, m.PreviousStock, m.NewStock,
		m.OrderID, m.ActorID, m.Reason, m.Notes,
	).Scan(&m.CreatedAt)
	return errors.Wrap(err, "inserting stock movement")
}

func scanMovements(rows pgx.Rows) ([]stock.Movement, error) {
	defer rows.Close()

	movements := make([]stock.Movement, 0)
	for rows.Next() {
		var (
			m   stock.Movement
			typ string
		)
		err := rows.Scan(&m.ID, &m.VariantID, &typ, &m.Quantity, &m.PreviousStock, &m.NewStock,
			&m.OrderID, &m.ActorID, &m.Reason, &m.Notes, &m.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning stock movement")
		}
		m.Type = stock.MovementType(typ)
		movements = append(movements, m)
	}
	return movements, errors.Wrap(rows.Err(), "iterating stock movements")
}
