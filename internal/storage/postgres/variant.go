package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/maisonoak/storefront/internal/domain/catalog"
)

var _ catalog.Repository = (*VariantRepository)(nil)

// VariantRepository implements catalog.Repository backed by PostgreSQL.
// Discount tiers live in a side table keyed by (variant_id, position).
type VariantRepository struct {
	db *DB
}

// NewVariantRepository returns a VariantRepository over the given DB.
func NewVariantRepository(db *DB) *VariantRepository {
	return &VariantRepository{db: db}
}

const variantColumns = `id, sku, name, price, stock, track_stock, allow_backorder,
	attributes, image,
	fixed_discount_enabled, fixed_discount_type, fixed_discount_value,
	fixed_discount_from, fixed_discount_until, fixed_discount_badge,
	tier_discount_active`

// GetByID returns a single variant with its discount tiers.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*catalog.Variant, error) {
	row := r.db.conn(ctx).QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1`, id)

	v, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, errors.Wrapf(err, "getting variant %q", id)
	}

	if err := r.attachTiers(ctx, map[string]*catalog.Variant{v.ID: v}); err != nil {
		return nil, err
	}
	return v, nil
}

// GetByIDs returns all variants matching the given ids in one round trip.
// Missing ids are simply absent from the result.
func (r *VariantRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Variant, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying variants")
	}
	defer rows.Close()

	byID := make(map[string]*catalog.Variant)
	var order []string
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning variant")
		}
		byID[v.ID] = v
		order = append(order, v.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating variants")
	}

	if err := r.attachTiers(ctx, byID); err != nil {
		return nil, err
	}

	variants := make([]catalog.Variant, len(order))
	for i, id := range order {
		variants[i] = *byID[id]
	}
	return variants, nil
}

// Upsert inserts or replaces a variant and its tier table. Used by seeding
// and catalog import; the stock counter of an existing variant is left alone
// so imports never bypass the ledger.
func (r *VariantRepository) Upsert(ctx context.Context, v *catalog.Variant) error {
	attrs, err := json.Marshal(v.Attributes)
	if err != nil {
		return errors.Wrap(err, "marshaling attributes")
	}
	image, err := json.Marshal(v.Image)
	if err != nil {
		return errors.Wrap(err, "marshaling image")
	}

	fd := v.FixedDiscount
	if fd == nil {
		fd = &catalog.FixedDiscount{}
	}
	tierActive := v.TierDiscount != nil && v.TierDiscount.Active

	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		_, err := r.db.conn(ctx).Exec(ctx, `
			INSERT INTO variants (id, sku, name, price, stock, track_stock, allow_backorder,
				attributes, image,
				fixed_discount_enabled, fixed_discount_type, fixed_discount_value,
				fixed_discount_from, fixed_discount_until, fixed_discount_badge,
				tier_discount_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			ON CONFLICT (id) DO UPDATE SET
				sku = EXCLUDED.sku,
				name = EXCLUDED.name,
				price = EXCLUDED.price,
				track_stock = EXCLUDED.track_stock,
				allow_backorder = EXCLUDED.allow_backorder,
				attributes = EXCLUDED.attributes,
				image = EXCLUDED.image,
				fixed_discount_enabled = EXCLUDED.fixed_discount_enabled,
				fixed_discount_type = EXCLUDED.fixed_discount_type,
				fixed_discount_value = EXCLUDED.fixed_discount_value,
				fixed_discount_from = EXCLUDED.fixed_discount_from,
				fixed_discount_until = EXCLUDED.fixed_discount_until,
				fixed_discount_badge = EXCLUDED.fixed_discount_badge,
				tier_discount_active = EXCLUDED.tier_discount_active,
				updated_at = now()`,
			v.ID, v.SKU, v.Name, v.Price, v.Stock, v.TrackStock, v.AllowBackorder,
			attrs, image,
			fd.Enabled, nullableString(string(fd.Type)), nullableDecimal(fd.Enabled, fd.Value),
			fd.ValidFrom, fd.ValidUntil, fd.Badge,
			tierActive,
		)
		if err != nil {
			return errors.Wrapf(err, "upserting variant %q", v.ID)
		}

		if _, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM variant_tiers WHERE variant_id = $1`, v.ID); err != nil {
			return errors.Wrap(err, "clearing variant tiers")
		}
		if v.TierDiscount == nil {
			return nil
		}
		for i, t := range v.TierDiscount.Tiers {
			_, err := r.db.conn(ctx).Exec(ctx, `
				INSERT INTO variant_tiers (variant_id, position, min_quantity, max_quantity, type, value)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				v.ID, i, t.MinQuantity, t.MaxQuantity, string(t.Type), t.Value,
			)
			if err != nil {
				return errors.Wrap(err, "inserting variant tier")
			}
		}
		return nil
	})
}

func (r *VariantRepository) attachTiers(ctx context.Context, byID map[string]*catalog.Variant) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT variant_id, min_quantity, max_quantity, type, value
		FROM variant_tiers
		WHERE variant_id = ANY($1)
		ORDER BY variant_id, position`, ids)
	if err != nil {
		return errors.Wrap(err, "querying variant tiers")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			variantID string
			tier      catalog.Tier
			typ       string
		)
		if err := rows.Scan(&variantID, &tier.MinQuantity, &tier.MaxQuantity, &typ, &tier.Value); err != nil {
			return errors.Wrap(err, "scanning variant tier")
		}
		tier.Type = catalog.DiscountType(typ)

		v := byID[variantID]
		if v.TierDiscount == nil {
			v.TierDiscount = &catalog.TierDiscount{}
		}
		v.TierDiscount.Tiers = append(v.TierDiscount.Tiers, tier)
	}
	return errors.Wrap(rows.Err(), "iterating variant tiers")
}

func scanVariant(row pgx.Row) (*catalog.Variant, error) {
	var (
		v           catalog.Variant
		attrs       []byte
		image       []byte
		fdEnabled   bool
		fdType      *string
		fdValue     *decimal.Decimal
		fdFrom      *time.Time
		fdUntil     *time.Time
		fdBadge     string
		tiersActive bool
	)

	err := row.Scan(&v.ID, &v.SKU, &v.Name, &v.Price, &v.Stock, &v.TrackStock, &v.AllowBackorder,
		&attrs, &image,
		&fdEnabled, &fdType, &fdValue, &fdFrom, &fdUntil, &fdBadge,
		&tiersActive)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(attrs, &v.Attributes); err != nil {
		return nil, errors.Wrap(err, "unmarshaling attributes")
	}
	if err := json.Unmarshal(image, &v.Image); err != nil {
		return nil, errors.Wrap(err, "unmarshaling image")
	}

	if fdEnabled || fdType != nil {
		fd := &catalog.FixedDiscount{
			Enabled:    fdEnabled,
			ValidFrom:  fdFrom,
			ValidUntil: fdUntil,
			Badge:      fdBadge,
		}
		if fdType != nil {
			fd.Type = catalog.DiscountType(*fdType)
		}
		if fdValue != nil {
			fd.Value = *fdValue
		}
		v.FixedDiscount = fd
	}
	if tiersActive {
		v.TierDiscount = &catalog.TierDiscount{Active: true}
	}
	return &v, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableDecimal(set bool, d decimal.Decimal) *decimal.Decimal {
	if !set && d.IsZero() {
		return nil
	}
	return &d
}
