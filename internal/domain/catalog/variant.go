package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrVariantNotFound is returned when a requested variant does not exist.
var ErrVariantNotFound = errors.New("variant not found")

// DiscountType enumerates the supported discount strategies.
type DiscountType string

const (
	// DiscountPercentage reduces the unit price by a percentage.
	DiscountPercentage DiscountType = "percentage"
	// DiscountAmount reduces the unit price by a fixed amount of minor units.
	DiscountAmount DiscountType = "amount"
)

// FixedDiscount is a flat discount attached to a variant, optionally limited
// to a validity window.
type FixedDiscount struct {
	Enabled    bool
	Type       DiscountType
	Value      decimal.Decimal
	ValidFrom  *time.Time
	ValidUntil *time.Time
	Badge      string
}

// ActiveAt reports whether the discount is enabled and inside its validity
// window at the given instant.
func (d *FixedDiscount) ActiveAt(now time.Time) bool {
	if d == nil || !d.Enabled {
		return false
	}
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && now.After(*d.ValidUntil) {
		return false
	}
	return true
}

// Tier is one row of a quantity-ranked discount table. MaxQuantity nil means
// the tier is unbounded above.
type Tier struct {
	MinQuantity int
	MaxQuantity *int
	Type        DiscountType
	Value       decimal.Decimal
}

// Contains reports whether the given quantity falls inside the tier's range.
func (t Tier) Contains(quantity int) bool {
	if quantity < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || quantity <= *t.MaxQuantity
}

// TierDiscount is a quantity-dependent discount rule set.
type TierDiscount struct {
	Active bool
	Tiers  []Tier
}

// Attribute is a single display label of a variant, e.g. "Color" -> "Navy".
// Attributes keep the insertion order defined by the product's variant
// configuration; order matters for display only, not for equality.
type Attribute struct {
	Name  string
	Value string
}

// Image holds responsive image URLs for a variant.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// Variant is a purchasable SKU-level unit of a catalog product. The
// fulfillment core reads price and stock fields and mutates stock only
// through the stock ledger.
type Variant struct {
	ID             string
	SKU            string
	Name           string
	Price          int64
	Stock          int
	TrackStock     bool
	AllowBackorder bool
	Attributes     []Attribute
	Image          Image
	FixedDiscount  *FixedDiscount
	TierDiscount   *TierDiscount
}

// Repository defines catalog access needed by the fulfillment core and the
// import tooling.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Variant, error)
	GetByIDs(ctx context.Context, ids []string) ([]Variant, error)
	Upsert(ctx context.Context, v *Variant) error
}
