//go:build integration

package postgres_test

import (
	"context"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/maisonoak/storefront/internal/domain/catalog"
	"github.com/maisonoak/storefront/internal/storage/postgres"
)

// startPostgres brings up a throwaway PostgreSQL container, runs the schema,
// and returns a pool connected to it.
func startPostgres(ctx context.Context) (testcontainers.Container, *pgxpool.Pool, error) {
	container, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, nil, err
	}

	pool, err := postgres.NewPool(ctx, connStr)
	if err != nil {
		return container, nil, err
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return container, nil, err
	}

	return container, pool, nil
}

func fakeVariant() catalog.Variant {
	return catalog.Variant{
		ID:         gofakeit.UUID(),
		SKU:        gofakeit.LetterN(3) + "-" + gofakeit.DigitN(6),
		Name:       gofakeit.ProductName(),
		Price:      int64(gofakeit.Number(100, 100_000)),
		Stock:      gofakeit.Number(1, 500),
		TrackStock: true,
		Attributes: []catalog.Attribute{
			{Name: "Color", Value: gofakeit.Color()},
			{Name: "Material", Value: gofakeit.ProductMaterial()},
		},
		Image: catalog.Image{
			Thumbnail: gofakeit.URL(),
			Mobile:    gofakeit.URL(),
			Tablet:    gofakeit.URL(),
			Desktop:   gofakeit.URL(),
		},
	}
}

func fakeDiscountedVariant() catalog.Variant {
	v := fakeVariant()
	v.FixedDiscount = &catalog.FixedDiscount{
		Enabled: true,
		Type:    catalog.DiscountPercentage,
		Value:   decimal.NewFromInt(int64(gofakeit.Number(5, 40))),
		Badge:   "Sale",
	}
	upper := 10
	v.TierDiscount = &catalog.TierDiscount{
		Active: true,
		Tiers: []catalog.Tier{
			{MinQuantity: 3, MaxQuantity: &upper, Type: catalog.DiscountPercentage, Value: decimal.NewFromInt(5)},
			{MinQuantity: 11, Type: catalog.DiscountPercentage, Value: decimal.RequireFromString("12.5")},
		},
	}
	return v
}
