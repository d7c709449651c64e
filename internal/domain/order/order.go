package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/maisonoak/storefront/internal/domain/catalog"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ValidationError rejects malformed or missing input before anything is
// persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StateConflictError rejects an illegal lifecycle transition.
type StateConflictError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("order %s: cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

// DeliveryMethod enumerates how an order leaves the store.
type DeliveryMethod string

const (
	DeliveryPickup  DeliveryMethod = "pickup"
	DeliveryCourier DeliveryMethod = "delivery"
)

// PaymentMethod enumerates the offline payment options. There is no payment
// gateway; settlement happens outside the system.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

// Customer is the contact snapshot copied into the order at creation time.
// It is deliberately not a live reference: later profile edits never alter
// historical orders.
type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Item is an immutable snapshot of one purchased variant. UnitPrice is the
// catalog price at the time of purchase; PricePerUnit is the price actually
// charged after discounts.
type Item struct {
	VariantID    string
	SKU          string
	Name         string
	UnitPrice    int64
	Attributes   []catalog.Attribute
	Image        catalog.Image
	Quantity     int
	PricePerUnit int64
	Discount     int64
	Subtotal     int64
}

// Order is the aggregate root. It is the only core entity updated in place
// after creation, and only through the lifecycle operations of Service.
// Monetary fields are minor currency units. Subtotal equals the sum of item
// subtotals; Total equals Subtotal plus ShippingCost (discounts are already
// baked into PricePerUnit and carried in TotalDiscount for reporting only).
type Order struct {
	ID             string
	Number         string
	Customer       Customer
	Items          []Item
	Subtotal       int64
	TotalDiscount  int64
	ShippingCost   int64
	Total          int64
	DeliveryMethod DeliveryMethod
	PaymentMethod  PaymentMethod
	Status         Status
	Notes          string

	NotificationSent      bool
	NotificationSentAt    *time.Time
	NotificationMessageID string

	CancelledBy  string
	CancelledAt  *time.Time
	CancelReason string

	ConfirmedAt *time.Time
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for orders. GetForUpdate must
// lock the order row for the duration of the surrounding transaction so that
// concurrent lifecycle operations on the same order serialize.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
}

// NumberSequence hands out the next per-day sequence value used to build the
// human-readable order number. Next must be atomic under concurrent callers.
type NumberSequence interface {
	Next(ctx context.Context, day time.Time) (int, error)
}

// FormatNumber builds the human-readable order number: PREFIX-YYYYMMDD-NNN
// with a zero-padded three-digit daily sequence.
func FormatNumber(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, day.UTC().Format("20060102"), seq)
}
