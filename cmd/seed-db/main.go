package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "", "email of the admin account to seed (or SHOP_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "password of the admin account (or SHOP_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminEmail == "" {
		adminEmail = os.Getenv("SHOP_SEED_ADMIN_EMAIL")
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("SHOP_SEED_ADMIN_PASSWORD")
	}
	if adminEmail != "" && adminPassword == "" {
		slog.Error("admin password is required with an admin email: set --admin-password or SHOP_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminPassword string) error {
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

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if adminEmail == "" {
		slog.Info("no admin email given, skipping admin account")
		return nil
	}
	if err := seedAdmin(ctx, pool, adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, pj := range products {
		category, err := product.ParseCategory(pj.Category)
		if err != nil || category == "" {
			return errors.Errorf("product %s: invalid category %q", pj.ID, pj.Category)
		}
		p := &product.Product{
			ID:          pj.ID,
			Name:        pj.Name,
			Price:       pj.Price,
			Category:    category,
			ImageURL:    pj.ImageURL,
			Description: pj.Description,
			Stock:       pj.Stock,
			Featured:    pj.Featured,
		}

		switch _, err := repo.GetByID(ctx, p.ID); {
		case err == nil:
			if err := repo.Update(ctx, p); err != nil {
				return errors.Wrapf(err, "update product %s", p.ID)
			}
		case errors.Is(err, product.ErrNotFound):
			if err := repo.Create(ctx, p); err != nil {
				return errors.Wrapf(err, "create product %s", p.ID)
			}
		default:
			return errors.Wrapf(err, "get product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	slog.Info("seeding admin account", slog.String("email", email))

	users := postgres.NewUserRepository(pool)
	roles := postgres.NewRoleRepository(pool)
	svc := auth.NewService(users, postgres.NewSessionRepository(pool), roles, auth.Config{})

	u, err := svc.SignUp(ctx, email, password, auth.Profile{FirstName: "Admin"})
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		slog.Info("admin account exists, granting role only")
		if u, err = users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email))); err != nil {
			return errors.Wrap(err, "get existing user")
		}
	case err != nil:
		return errors.Wrap(err, "sign up")
	}

	if err := roles.Grant(ctx, u.ID, auth.RoleAdmin); err != nil {
		return errors.Wrap(err, "grant admin role")
	}

	slog.Info("granted admin role", slog.String("user_id", u.ID))

	return nil
}
