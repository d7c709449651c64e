// Command catalog-import loads supplier catalog feeds into the variants
// table. Feeds are gzip-compressed NDJSON files, one variant record per line.
// Files are streamed concurrently; duplicate SKUs across feeds are dropped,
// first occurrence wins.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/maisonoak/storefront/internal/domain/catalog"
	"github.com/maisonoak/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// feedRecord is one supplier feed line. Prices come in major currency units
// and are converted to minor units on import.
type feedRecord struct {
	SKU        string            `json:"sku"`
	Name       string            `json:"name"`
	Price      decimal.Decimal   `json:"price"`
	Stock      int               `json:"stock"`
	TrackStock bool              `json:"trackStock"`
	Backorder  bool              `json:"allowBackorder"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Image      struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
	Discount *struct {
		Type       string          `json:"type"`
		Value      decimal.Decimal `json:"value"`
		ValidFrom  *time.Time      `json:"validFrom,omitempty"`
		ValidUntil *time.Time      `json:"validUntil,omitempty"`
		Badge      string          `json:"badge,omitempty"`
	} `json:"discount,omitempty"`
}

// skuSet tracks SKUs already imported. The bloom filter answers the common
// "never seen" case without locking per string; only bloom hits fall through
// to the exact map that resolves false positives.
type skuSet struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	seen   map[string]struct{}
}

func newSKUSet() *skuSet {
	return &skuSet{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		seen:   make(map[string]struct{}),
	}
}

// add reports whether sku was newly added.
func (s *skuSet) add(sku string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.TestString(sku) {
		if _, dup := s.seen[sku]; dup {
			return false
		}
	}
	s.filter.AddString(sku)
	s.seen[sku] = struct{}{}
	return true
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.ndjson.gz supplier feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.ndjson.gz"))
	if err != nil {
		return errors.Wrap(err, "list feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.ndjson.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewVariantRepository(postgres.NewDB(pool))
	skus := newSKUSet()

	slog.Info("importing feeds", slog.Int("files", len(files)))

	records := make(chan catalog.Variant, 256)

	g, gctx := errgroup.WithContext(ctx)
	readers, rctx := errgroup.WithContext(gctx)
	for _, f := range files {
		readers.Go(importFeed(rctx, f, skus, records))
	}
	g.Go(func() error {
		defer close(records)
		return readers.Wait()
	})

	// Single writer keeps upserts ordered and the pool uncontended.
	g.Go(func() error {
		var written int
		for v := range records {
			if err := repo.Upsert(gctx, &v); err != nil {
				return errors.Wrapf(err, "upsert variant %s", v.SKU)
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("import progress", slog.Int("written", written))
			}
		}
		slog.Info("import complete", slog.Int("written", written))
		return nil
	})

	return g.Wait()
}

func importFeed(ctx context.Context, path string, skus *skuSet, out chan<- catalog.Variant) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var total, dupes int
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var rec feedRecord
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				return errors.Wrapf(err, "parse record in %s", path)
			}
			if rec.SKU == "" {
				continue
			}
			total++

			if !skus.add(rec.SKU) {
				dupes++
				continue
			}

			select {
			case out <- toVariant(rec):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed done",
			slog.String("file", filepath.Base(path)),
			slog.Int("records", total),
			slog.Int("duplicates", dupes),
		)
		return nil
	}
}

var hundred = decimal.NewFromInt(100)

// toVariant converts a feed record to a domain variant. The variant ID is
// derived from the SKU so re-imports hit the same row.
func toVariant(rec feedRecord) catalog.Variant {
	v := catalog.Variant{
		ID:             uuid.NewSHA1(uuid.NameSpaceOID, []byte(rec.SKU)).String(),
		SKU:            rec.SKU,
		Name:           rec.Name,
		Price:          rec.Price.Mul(hundred).Round(0).IntPart(),
		Stock:          rec.Stock,
		TrackStock:     rec.TrackStock,
		AllowBackorder: rec.Backorder,
		Image: catalog.Image{
			Thumbnail: rec.Image.Thumbnail,
			Mobile:    rec.Image.Mobile,
			Tablet:    rec.Image.Tablet,
			Desktop:   rec.Image.Desktop,
		},
	}
	for name, value := range rec.Attributes {
		v.Attributes = append(v.Attributes, catalog.Attribute{Name: name, Value: value})
	}
	if rec.Discount != nil {
		v.FixedDiscount = &catalog.FixedDiscount{
			Enabled:    true,
			Type:       catalog.DiscountType(rec.Discount.Type),
			Value:      rec.Discount.Value,
			ValidFrom:  rec.Discount.ValidFrom,
			ValidUntil: rec.Discount.ValidUntil,
			Badge:      rec.Discount.Badge,
		}
	}
	return v
}
