// Command catalog-ingest imports supplier catalog dumps into the products
// table. Suppliers ship large gzip'd exports that overlap; a product is
// imported only when its ID appears in at least two dumps, which filters out
// entries a single supplier has already delisted.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/teashop/internal/domain/catalog"
	"github.com/xenking/teashop/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	fieldCount    = 4 // id;name;price;category
)

// record is one parsed dump line.
type record struct {
	id       string
	name     string
	price    decimal.Decimal
	category string
}

// fileResult holds candidate records found in a single file during pass 2.
type fileResult struct {
	records map[string]record
	seen    map[string]uint
}

func main() {
	var (
		dataDir     string
		numFiles    int
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalogN.gz dump files")
	flag.IntVar(&numFiles, "files", 3, "number of dump files to ingest")
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

	if err := run(ctx, dataDir, numFiles, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir string, numFiles int, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("catalog%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: build one bloom filter of product IDs per file, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: collect records whose ID appears in 2+ files.
	slog.Info("pass 2: collecting agreed products")

	products, err := collectAgreedProducts(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "collect products")
	}

	slog.Info("agreed products found", slog.Int("count", len(products)))

	if len(products) == 0 {
		slog.Info("no products to import")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeProducts(ctx, repository.NewProductRepository(pool), products)
}

func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			rec, ok := parseRecord(line)
			if !ok {
				return
			}
			filter.AddString(rec.id)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("records", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_records", count),
		)

		filters[idx] = filter
		return nil
	}
}

// collectAgreedProducts re-streams each file and checks IDs against OTHER
// files' bloom filters. A product is imported when it appears in 2 or more
// files.
func collectAgreedProducts(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]record, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(collectCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge per-file bitmasks and keep records seen in 2+ files. The latest
	// parsed record for an ID wins, matching supplier export semantics.
	merged := make(map[string]uint)
	records := make(map[string]record)
	for _, r := range results {
		for id, mask := range r.seen {
			merged[id] |= mask
			records[id] = r.records[id]
		}
	}

	var agreed []record
	for id, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			agreed = append(agreed, records[id])
		}
	}

	return agreed, nil
}

func collectCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		res := fileResult{
			records: make(map[string]record),
			seen:    make(map[string]uint),
		}
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			rec, ok := parseRecord(line)
			if !ok {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("records", count),
				)
			}

			// Keep only IDs that appear in some OTHER file's filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(rec.id) {
					res.records[rec.id] = rec
					res.seen[rec.id] |= fileBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_records", count),
			slog.Int("candidates", len(res.records)),
		)

		results[idx] = res
		return nil
	}
}

// parseRecord parses an "id;name;price;category" dump line. Malformed lines
// and negative prices are skipped.
func parseRecord(line string) (record, bool) {
	parts := strings.SplitN(line, ";", fieldCount)
	if len(parts) != fieldCount {
		return record{}, false
	}

	price, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
	if err != nil || price.IsNegative() {
		return record{}, false
	}

	rec := record{
		id:       strings.TrimSpace(parts[0]),
		name:     strings.TrimSpace(parts[1]),
		price:    price,
		category: strings.TrimSpace(parts[3]),
	}
	if rec.id == "" || rec.name == "" {
		return record{}, false
	}
	return rec, true
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
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

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeProducts upserts all agreed products into the database.
func writeProducts(ctx context.Context, repo *repository.ProductRepository, products []record) error {
	slog.Info("writing products to database", slog.Int("count", len(products)))

	for i, rec := range products {
		p := catalog.Product{
			ID:       rec.id,
			Name:     rec.name,
			Price:    rec.price,
			Category: rec.category,
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", rec.id)
		}

		if (i+1)%100 == 0 || i+1 == len(products) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(products)))
		}
	}

	return nil
}
