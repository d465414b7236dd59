//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/order"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/realtime"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "shop",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = c.Terminate(context.Background()) }()

	host, err := c.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host: %v\n", err)
		return 1
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}
	// Second run must be a no-op.
	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations rerun: %v\n", err)
		return 1
	}

	return m.Run()
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	mk := func(name string, cat product.Category, featured bool) *product.Product {
		p := &product.Product{
			ID:       uuid.New().String(),
			Name:     name,
			Price:    decimal.RequireFromString("1250.50"),
			Category: cat,
			Stock:    3,
			Featured: featured,
		}
		require.NoError(t, repo.Create(ctx, p))
		assert.False(t, p.CreatedAt.IsZero())
		return p
	}

	oud := mk("Oud Intense", product.CategoryPerfume, true)
	mk("Leather Sandals", product.CategoryShoes, false)
	mk("Rose Mist", product.CategoryPerfume, false)

	got, err := repo.GetByID(ctx, oud.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oud Intense", got.Name)
	assert.True(t, oud.Price.Equal(got.Price))

	_, err = repo.GetByID(ctx, uuid.New().String())
	require.ErrorIs(t, err, product.ErrNotFound)
	_, err = repo.GetByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, product.ErrNotFound)

	perfumes, err := repo.List(ctx, product.Filter{Category: product.CategoryPerfume})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(perfumes), 2)
	for _, p := range perfumes {
		assert.Equal(t, product.CategoryPerfume, p.Category)
	}
	assert.Equal(t, "Rose Mist", perfumes[0].Name, "newest first")

	featured, err := repo.List(ctx, product.Filter{Featured: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.True(t, featured[0].Featured)

	oud.Stock = 0
	oud.Name = "Oud Intense (sold out)"
	require.NoError(t, repo.Update(ctx, oud))
	got, err = repo.GetByID(ctx, oud.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
	assert.False(t, got.InStock())

	missing := &product.Product{ID: uuid.New().String(), Category: product.CategoryShoes}
	require.ErrorIs(t, repo.Update(ctx, missing), product.ErrNotFound)
}

func TestOrderRepositoryAndListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := realtime.NewHub(zap.NewNop(), 8)
	sub, err := hub.Subscribe("orders", realtime.Update)
	require.NoError(t, err)
	defer hub.Unsubscribe(sub)

	listener := NewListener(testPool, hub, zap.NewNop())
	go func() { _ = listener.Run(ctx) }()
	require.Eventually(t, func() bool { return listener.Check(ctx) == nil }, 10*time.Second, 50*time.Millisecond)

	repo := NewOrderRepository(testPool)
	o := &order.Order{
		ID: uuid.New().String(),
		Customer: order.Customer{
			Name: "Achieng", Email: "achieng@example.com", Phone: "254712345678", Address: "Nairobi",
		},
		Items: []cart.Item{
			{ID: "p1", Name: "Shea", Price: decimal.RequireFromString("450.50"), Quantity: 2},
		},
		Total:  decimal.RequireFromString("901"),
		Status: order.StatusPending,
	}
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Customer, got.Customer)
	require.Len(t, got.Items, 1)
	assert.True(t, decimal.RequireFromString("450.50").Equal(got.Items[0].Price))
	assert.Equal(t, order.StatusPending, got.Status)

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusProcessing))

	select {
	case ev := <-sub.C():
		id, _ := realtime.StringField(ev.New, "id")
		status, _ := realtime.StringField(ev.New, "status")
		prev, _ := realtime.StringField(ev.Old, "status")
		assert.Equal(t, o.ID, id)
		assert.Equal(t, "processing", status)
		assert.Equal(t, "pending", prev)
	case <-time.After(10 * time.Second):
		t.Fatal("no realtime event")
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	require.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New().String(), order.StatusCompleted), order.ErrNotFound)
}

func TestAuthRepositories(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(testPool)
	sessions := NewSessionRepository(testPool)
	roles := NewRoleRepository(testPool)

	u := &auth.User{ID: uuid.New().String(), Email: "wanjiru@example.com", PasswordHash: "x", FirstName: "Wanjiru"}
	require.NoError(t, users.Create(ctx, u))

	dup := &auth.User{ID: uuid.New().String(), Email: u.Email, PasswordHash: "y"}
	require.ErrorIs(t, users.Create(ctx, dup), auth.ErrEmailTaken)

	got, err := users.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	_, err = users.GetByID(ctx, uuid.New().String())
	require.ErrorIs(t, err, auth.ErrUserNotFound)

	ok, err := roles.HasRole(ctx, u.ID, auth.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, roles.Grant(ctx, u.ID, auth.RoleAdmin))
	require.NoError(t, roles.Grant(ctx, u.ID, auth.RoleAdmin))
	ok, err = roles.HasRole(ctx, u.ID, auth.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok)

	live := auth.StoredSession{TokenHash: "live", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}
	stale := auth.StoredSession{TokenHash: "stale", UserID: u.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, sessions.Create(ctx, live))
	require.NoError(t, sessions.Create(ctx, stale))

	n, err := sessions.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, err := sessions.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)

	require.NoError(t, sessions.Delete(ctx, "live"))
	_, err = sessions.Get(ctx, "live")
	require.ErrorIs(t, err, auth.ErrNoSession)
}

func TestCartStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewCartStorage(testPool)
	key := cart.Key(uuid.New().String())

	_, err := storage.Load(ctx, key)
	require.ErrorIs(t, err, cart.ErrNotStored)

	store := cart.Load(ctx, storage, key, zap.NewNop())
	store.AddItem(cart.Product{ID: "p1", Name: "Shea", Price: decimal.RequireFromString("450.50")})
	store.AddItem(cart.Product{ID: "p1", Name: "Shea", Price: decimal.RequireFromString("450.50")})
	store.AddItem(cart.Product{ID: "p2", Name: "Oud", Price: decimal.RequireFromString("1200")})

	reloaded := cart.Load(ctx, storage, key, zap.NewNop())
	assert.Equal(t, 3, reloaded.TotalItems())
	assert.True(t, decimal.RequireFromString("2101").Equal(reloaded.TotalPrice()))

	reloaded.Clear()
	assert.Zero(t, cart.Load(ctx, storage, key, zap.NewNop()).Len())
}
