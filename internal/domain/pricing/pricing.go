// Package pricing computes the effective per-unit price of an order line.
// It is side-effect free: rules in, numbers out.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/maisonoak/storefront/internal/domain/catalog"
)

var hundred = decimal.NewFromInt(100)

// PricedLine is the result of pricing one order line. DiscountPerUnit is the
// amount saved per unit; Subtotal is UnitPrice times the requested quantity.
type PricedLine struct {
	UnitPrice       int64
	DiscountPerUnit int64
	Subtotal        int64
}

// PriceLine applies the variant's discount rules to a unit price and quantity.
//
// A fixed discount and a tiered discount never stack: when both qualify, the
// one giving the customer the larger per-unit discount wins, with the fixed
// discount taking precedence on an exact tie. Unknown or disabled rules leave
// the price untouched. The result never goes below zero.
func PriceLine(unitPrice int64, quantity int, fixed *catalog.FixedDiscount, tiered *catalog.TierDiscount, now time.Time) PricedLine {
	if unitPrice < 0 {
		unitPrice = 0
	}
	if quantity < 0 {
		quantity = 0
	}

	var fixedOff, tierOff int64
	if fixed.ActiveAt(now) {
		fixedOff = discountOff(unitPrice, fixed.Type, fixed.Value)
	}
	if tier, ok := selectTier(tiered, quantity); ok {
		tierOff = discountOff(unitPrice, tier.Type, tier.Value)
	}

	off := fixedOff
	if tierOff > fixedOff {
		off = tierOff
	}

	finalUnit := unitPrice - off
	if finalUnit < 0 {
		finalUnit = 0
		off = unitPrice
	}

	return PricedLine{
		UnitPrice:       finalUnit,
		DiscountPerUnit: off,
		Subtotal:        finalUnit * int64(quantity),
	}
}

// selectTier returns the qualifying tier with the highest MinQuantity.
func selectTier(d *catalog.TierDiscount, quantity int) (catalog.Tier, bool) {
	if d == nil || !d.Active {
		return catalog.Tier{}, false
	}

	var best catalog.Tier
	found := false
	for _, t := range d.Tiers {
		if !t.Contains(quantity) {
			continue
		}
		if !found || t.MinQuantity > best.MinQuantity {
			best = t
			found = true
		}
	}
	return best, found
}

// discountOff converts a discount rule into a per-unit amount of minor units,
// clamped to [0, unitPrice]. Percentage math rounds half-up to whole units.
func discountOff(unitPrice int64, typ catalog.DiscountType, value decimal.Decimal) int64 {
	if value.IsNegative() {
		return 0
	}

	var off int64
	switch typ {
	case catalog.DiscountPercentage:
		off = decimal.NewFromInt(unitPrice).Mul(value).Div(hundred).Round(0).IntPart()
	case catalog.DiscountAmount:
		off = value.Round(0).IntPart()
	default:
		return 0
	}

	if off < 0 {
		return 0
	}
	if off > unitPrice {
		return unitPrice
	}
	return off
}
