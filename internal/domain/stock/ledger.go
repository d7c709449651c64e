package stock

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/maisonoak/storefront/internal/domain/audit"
)

// TxRunner executes fn inside one storage transaction. The transaction is
// carried through the context to every repository call fn makes.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Ledger is the only writer of the stock counter. Order creation and
// cancellation call Deduct and Restore inside the order transaction;
// Adjust and Restock are standalone back-office operations that pair the
// movement with an audit entry in a transaction of their own.
type Ledger struct {
	repo     Repository
	recorder *audit.Recorder
	tx       TxRunner
}

// NewLedger creates a Ledger over the given movement repository.
func NewLedger(repo Repository, recorder *audit.Recorder, tx TxRunner) *Ledger {
	return &Ledger{repo: repo, recorder: recorder, tx: tx}
}

// Deduct removes quantity units from the variant's stock and appends a sale
// movement. It fails with InsufficientStockError when the variant tracks
// stock, disallows backorder, and has fewer than quantity units left; in that
// case nothing is written.
func (l *Ledger) Deduct(ctx context.Context, variantID string, quantity int, reason string, orderID *string) (*Movement, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	return l.repo.Apply(ctx, Movement{
		VariantID: variantID,
		Type:      MovementSale,
		Quantity:  -quantity,
		OrderID:   orderID,
		Reason:    reason,
	}, true)
}

// Restore puts quantity units back, typically after a cancellation. It is
// always accepted; there is no upper bound on a variant's stock.
func (l *Ledger) Restore(ctx context.Context, variantID string, quantity int, reason string, orderID, actorID *string, notes string) (*Movement, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	return l.repo.Apply(ctx, Movement{
		VariantID: variantID,
		Type:      MovementCancellation,
		Quantity:  quantity,
		OrderID:   orderID,
		ActorID:   actorID,
		Reason:    reason,
		Notes:     notes,
	}, false)
}

// Adjust moves the variant's stock to an absolute level and records the
// signed delta. A target equal to the current level is an error, not a
// silent success.
func (l *Ledger) Adjust(ctx context.Context, variantID string, level int, reason, actorID string, origin audit.Origin) (*Movement, error) {
	if level < 0 {
		return nil, ErrNegativeTarget
	}

	var movement *Movement
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := l.repo.SetLevel(ctx, level, Movement{
			VariantID: variantID,
			Type:      MovementAdjustment,
			ActorID:   &actorID,
			Reason:    reason,
		})
		if err != nil {
			return err
		}
		movement = m
		return l.recordStockChange(ctx, actorID, m, origin)
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// Restock adds quantity units of incoming goods. Semantically a Restore, but
// tagged restock for reporting. Unlike the order flow, a variant that does
// not track stock is an explicit ErrNotTracked, not a silent no-op: the
// caller asked for a movement and there is none to return.
func (l *Ledger) Restock(ctx context.Context, variantID string, quantity int, actorID, notes string, origin audit.Origin) (*Movement, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	var movement *Movement
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := l.repo.Apply(ctx, Movement{
			VariantID: variantID,
			Type:      MovementRestock,
			Quantity:  quantity,
			ActorID:   &actorID,
			Reason:    "restock",
			Notes:     notes,
		}, false)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrNotTracked
		}
		movement = m
		return l.recordStockChange(ctx, actorID, m, origin)
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// History returns the newest movements for a variant.
func (l *Ledger) History(ctx context.Context, variantID string, limit int) ([]Movement, error) {
	return l.repo.History(ctx, variantID, limit)
}

// HistoryForOrder returns the newest movements tied to an order.
func (l *Ledger) HistoryForOrder(ctx context.Context, orderID string) ([]Movement, error) {
	return l.repo.HistoryForOrder(ctx, orderID)
}

type stockSnapshot struct {
	Stock int `json:"stock"`
}

func (l *Ledger) recordStockChange(ctx context.Context, actorID string, m *Movement, origin audit.Origin) error {
	if m == nil {
		return nil
	}
	_, err := l.recorder.Record(ctx, actorID, audit.ActionUpdate, "Variant", m.VariantID,
		stockSnapshot{Stock: m.PreviousStock},
		stockSnapshot{Stock: m.NewStock},
		origin,
	)
	return errors.Wrap(err, "audit stock change")
}
