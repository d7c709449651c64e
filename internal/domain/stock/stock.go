// Package stock maintains the per-variant stock counter and the append-only
// ledger of movements that justify every counter change.
package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// MovementType classifies a ledger entry.
type MovementType string

const (
	MovementSale         MovementType = "sale"
	MovementCancellation MovementType = "cancellation"
	MovementAdjustment   MovementType = "adjustment"
	MovementReturn       MovementType = "return"
	MovementRestock      MovementType = "restock"
)

// Movement is one immutable ledger row. Quantity is signed: negative for
// deductions, positive for additions, never zero. NewStock always equals
// PreviousStock + Quantity.
type Movement struct {
	ID            string
	VariantID     string
	Type          MovementType
	Quantity      int
	PreviousStock int
	NewStock      int
	OrderID       *string
	ActorID       *string
	Reason        string
	Notes         string
	CreatedAt     time.Time
}

// Sentinel errors for adjustment validation.
var (
	ErrZeroAdjustment = errors.New("adjustment changes nothing")
	ErrNegativeTarget = errors.New("target stock must not be negative")
	ErrNotTracked     = errors.New("stock is not tracked for this variant")
)

// InsufficientStockError rejects a deduction that would drive a guarded
// counter negative.
type InsufficientStockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// InvalidQuantityError rejects a non-positive movement quantity.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0, got %d", e.Quantity)
}

// Repository is the single write path to the stock counter. Apply and
// SetLevel must execute the counter check and write as one atomic operation
// against the store, so that concurrent writers can never both pass the same
// guard.
type Repository interface {
	// Apply shifts the variant's counter by m.Quantity and appends m in the
	// same atomic operation, filling in PreviousStock, NewStock, ID and
	// CreatedAt. When guarded is true and the variant tracks stock without
	// allowing backorder, a shift that would drive the counter negative
	// fails with InsufficientStockError and writes nothing. For a variant
	// with stock tracking disabled Apply writes nothing and returns
	// (nil, nil).
	Apply(ctx context.Context, m Movement, guarded bool) (*Movement, error)

	// SetLevel moves the counter to an absolute level, deriving the signed
	// delta at the store. A delta of zero fails with ErrZeroAdjustment, and a
	// variant with stock tracking disabled fails with ErrNotTracked.
	SetLevel(ctx context.Context, level int, m Movement) (*Movement, error)

	History(ctx context.Context, variantID string, limit int) ([]Movement, error)
	HistoryForOrder(ctx context.Context, orderID string) ([]Movement, error)
}
