package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/order"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/realtime"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/storage/memory"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/storage/postgres"
	"github.com/CharityMuthoka/c-braids-beauty-shop/pkg/health"
)

// stores bundles the repositories of one storage backend.
type stores struct {
	products product.Repository
	orders   order.Repository
	users    auth.UserRepository
	sessions auth.SessionRepository
	roles    auth.RoleRepository
	carts    cart.Storage

	close func()
}

// openStores connects the configured backend, registers its readiness checks
// and starts change-event delivery into hub.
func openStores(ctx context.Context, lg *zap.Logger, cfg *Config, hub *realtime.Hub, hs *health.Health) (*stores, error) {
	if cfg.Storage == StorageMemory {
		lg.Warn("Using in-memory storage, data is lost on restart")
		return &stores{
			products: memory.NewProducts(),
			orders:   memory.NewOrders(hub),
			users:    memory.NewUsers(),
			sessions: memory.NewSessions(),
			roles:    memory.NewRoles(),
			carts:    memory.NewKV(),
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}

	listenCtx, cancel := context.WithCancel(ctx)
	listener := postgres.NewListener(pool, hub, lg.Named("listener"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = listener.Run(listenCtx)
	}()

	hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	hs.AddReadinessCheck("realtime", time.Second, listener.Check)

	return &stores{
		products: postgres.NewProductRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		users:    postgres.NewUserRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
		roles:    postgres.NewRoleRepository(pool),
		carts:    postgres.NewCartStorage(pool),
		close: func() {
			cancel()
			<-done
			pool.Close()
		},
	}, nil
}
