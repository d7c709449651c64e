// Command seed-db prepares a database for local development: it runs the
// migrations, loads variants from a JSON file, and registers a back-office
// API key.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/maisonoak/storefront/internal/domain/auth"
	"github.com/maisonoak/storefront/internal/domain/catalog"
	"github.com/maisonoak/storefront/internal/storage/postgres"
)

type discountJSON struct {
	Enabled    bool            `json:"enabled"`
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	ValidFrom  *time.Time      `json:"validFrom,omitempty"`
	ValidUntil *time.Time      `json:"validUntil,omitempty"`
	Badge      string          `json:"badge,omitempty"`
}

type tierJSON struct {
	MinQuantity int             `json:"minQuantity"`
	MaxQuantity *int            `json:"maxQuantity,omitempty"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
}

type variantJSON struct {
	ID             string            `json:"id"`
	SKU            string            `json:"sku"`
	Name           string            `json:"name"`
	Price          int64             `json:"price"`
	Stock          int               `json:"stock"`
	TrackStock     bool              `json:"trackStock"`
	AllowBackorder bool              `json:"allowBackorder"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Image          struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
	FixedDiscount *discountJSON `json:"fixedDiscount,omitempty"`
	TierDiscount  *struct {
		Active bool       `json:"active"`
		Tiers  []tierJSON `json:"tiers"`
	} `json:"tierDiscount,omitempty"`
}

func main() {
	var (
		databaseURL  string
		variantsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&variantsFile, "variants-file", "db/seed/variants.json", "path to variants JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOP_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, variantsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, variantsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	database := postgres.NewDB(pool)

	if err := seedVariants(ctx, postgres.NewVariantRepository(database), variantsFile); err != nil {
		return errors.Wrap(err, "seed variants")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(database), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedVariants(ctx context.Context, repo *postgres.VariantRepository, variantsFile string) error {
	slog.Info("reading variants file", slog.String("path", variantsFile))

	data, err := os.ReadFile(variantsFile)
	if err != nil {
		return errors.Wrap(err, "read variants file")
	}

	var variants []variantJSON
	if err := json.Unmarshal(data, &variants); err != nil {
		return errors.Wrap(err, "parse variants JSON")
	}

	slog.Info("upserting variants", slog.Int("count", len(variants)))

	for _, v := range variants {
		variant := toDomainVariant(v)
		if err := repo.Upsert(ctx, &variant); err != nil {
			return errors.Wrapf(err, "upsert variant %s", v.ID)
		}

		slog.Info("upserted variant", slog.String("id", v.ID), slog.String("sku", v.SKU))
	}

	return nil
}

func toDomainVariant(v variantJSON) catalog.Variant {
	variant := catalog.Variant{
		ID:             v.ID,
		SKU:            v.SKU,
		Name:           v.Name,
		Price:          v.Price,
		Stock:          v.Stock,
		TrackStock:     v.TrackStock,
		AllowBackorder: v.AllowBackorder,
		Image: catalog.Image{
			Thumbnail: v.Image.Thumbnail,
			Mobile:    v.Image.Mobile,
			Tablet:    v.Image.Tablet,
			Desktop:   v.Image.Desktop,
		},
	}
	for name, value := range v.Attributes {
		variant.Attributes = append(variant.Attributes, catalog.Attribute{Name: name, Value: value})
	}
	if v.FixedDiscount != nil {
		variant.FixedDiscount = &catalog.FixedDiscount{
			Enabled:    v.FixedDiscount.Enabled,
			Type:       catalog.DiscountType(v.FixedDiscount.Type),
			Value:      v.FixedDiscount.Value,
			ValidFrom:  v.FixedDiscount.ValidFrom,
			ValidUntil: v.FixedDiscount.ValidUntil,
			Badge:      v.FixedDiscount.Badge,
		}
	}
	if v.TierDiscount != nil {
		td := &catalog.TierDiscount{Active: v.TierDiscount.Active}
		for _, t := range v.TierDiscount.Tiers {
			td.Tiers = append(td.Tiers, catalog.Tier{
				MinQuantity: t.MinQuantity,
				MaxQuantity: t.MaxQuantity,
				Type:        catalog.DiscountType(t.Type),
				Value:       t.Value,
			})
		}
		variant.TierDiscount = td
	}
	return variant
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if err := repo.InsertKey(ctx, auth.Actor{
		ID:      "default",
		KeyHash: keyHash,
		Name:    "Default back-office key",
	}); err != nil {
		return errors.Wrap(err, "insert default API key")
	}

	slog.Info("inserted API key", slog.String("id", "default"))

	return nil
}
