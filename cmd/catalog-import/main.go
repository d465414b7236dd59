package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/storage/postgres"
)

const (
	bloomFPR      = 0.001
	progressEvery = 10_000
	maxLineSize   = 1 << 20
)

// stats counts records across all files.
type stats struct {
	read    atomic.Int64
	invalid atomic.Int64
	skipped atomic.Int64
	created atomic.Int64
}

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		workers     int
		capacity    uint
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing gzip-compressed JSON-lines product files")
	flag.StringVar(&pattern, "pattern", "*.jsonl.gz", "file name pattern inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 4, "files decoded in parallel")
	flag.UintVar(&capacity, "capacity", 1_000_000, "expected number of distinct products, sizes the duplicate filter")
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

	if err := run(ctx, filepath.Join(dataDir, pattern), databaseURL, workers, capacity); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, glob, databaseURL string, workers int, capacity uint) error {
	files, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrap(err, "glob data files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s", glob)
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
	repo := postgres.NewProductRepository(pool)

	existing, err := repo.List(ctx, product.Filter{})
	if err != nil {
		return errors.Wrap(err, "list existing products")
	}
	filter := bloom.NewWithEstimates(max(capacity, uint(len(existing))), bloomFPR)
	for _, p := range existing {
		filter.AddString(dedupeKey(p))
	}
	slog.Info("duplicate filter seeded", slog.Int("existing", len(existing)), slog.Int("files", len(files)))

	var st stats
	err = importFiles(ctx, files, workers, filter, &st, func(ctx context.Context, p *product.Product) error {
		p.ID = uuid.NewString()
		return repo.Create(ctx, p)
	})

	slog.Info("import summary",
		slog.Int64("read", st.read.Load()),
		slog.Int64("invalid", st.invalid.Load()),
		slog.Int64("skipped_duplicates", st.skipped.Load()),
		slog.Int64("created", st.created.Load()),
	)
	return err
}

// importFiles decodes files concurrently and hands every product whose key is
// not yet in filter to create, from a single goroutine.
func importFiles(
	ctx context.Context,
	files []string,
	workers int,
	filter *bloom.BloomFilter,
	st *stats,
	create func(context.Context, *product.Product) error,
) error {
	out := make(chan product.Product, 256)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(out)
		readers, rctx := errgroup.WithContext(ctx)
		readers.SetLimit(max(workers, 1))
		for i, f := range files {
			readers.Go(func() error {
				return decodeFile(rctx, i, f, out, st)
			})
		}
		return readers.Wait()
	})
	g.Go(func() error {
		for p := range out {
			if filter.TestAndAddString(dedupeKey(p)) {
				st.skipped.Add(1)
				continue
			}
			if err := create(ctx, &p); err != nil {
				return errors.Wrapf(err, "create product %q", p.Name)
			}
			if n := st.created.Add(1); n%progressEvery == 0 {
				slog.Info("write progress", slog.Int64("created", n))
			}
		}
		return nil
	})
	return g.Wait()
}

// decodeFile streams one gzip-compressed JSON-lines file into out. Invalid
// lines are logged and counted, not fatal.
func decodeFile(ctx context.Context, idx int, path string, out chan<- product.Product, st *stats) error {
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
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var line int
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		st.read.Add(1)

		p, err := parseRecord(raw)
		if err != nil {
			st.invalid.Add(1)
			slog.Warn("skipping invalid record",
				slog.Int("file", idx+1),
				slog.Int("line", line),
				slog.String("error", err.Error()),
			)
			continue
		}

		select {
		case out <- p:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("file complete", slog.Int("file", idx+1), slog.Int("lines", line))
	return nil
}

// parseRecord decodes and validates one product line:
// {"name","price","category","image_url","description","stock","featured"}.
func parseRecord(raw []byte) (product.Product, error) {
	var (
		p        product.Product
		category string
		hasPrice bool
	)
	err := jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = cart.DecodeDecimal(d)
			hasPrice = err == nil
		case "category":
			category, err = d.Str()
		case "image_url":
			if d.Next() == jx.Null {
				return d.Null()
			}
			p.ImageURL, err = d.Str()
		case "description":
			if d.Next() == jx.Null {
				return d.Null()
			}
			p.Description, err = d.Str()
		case "stock":
			p.Stock, err = d.Int()
		case "featured":
			p.Featured, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return product.Product{}, errors.Wrap(err, "decode")
	}

	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return product.Product{}, errors.New("name is required")
	case !hasPrice:
		return product.Product{}, errors.New("price is required")
	case p.Stock < 0:
		return product.Product{}, errors.New("stock must not be negative")
	}
	if msg := product.CheckPrice(p.Price); msg != "" {
		return product.Product{}, errors.New("price " + msg)
	}
	if p.Category, err = product.ParseCategory(strings.ToLower(strings.TrimSpace(category))); err != nil {
		return product.Product{}, err
	}
	if p.Category == "" {
		return product.Product{}, errors.New("category is required")
	}
	return p, nil
}

// dedupeKey identifies a product by case-folded name within its category.
func dedupeKey(p product.Product) string {
	return string(p.Category) + "\x00" + strings.ToLower(p.Name)
}
