package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/admin"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/checkout"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/handler"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/payment"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/realtime"
	"github.com/CharityMuthoka/c-braids-beauty-shop/pkg/health"
	"github.com/CharityMuthoka/c-braids-beauty-shop/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	hub := realtime.NewHub(lg.Named("realtime"), cfg.Realtime.Buffer)
	defer hub.Close()

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	st, err := openStores(ctx, lg, cfg, hub, healthSvc)
	if err != nil {
		return err
	}
	defer st.close()

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	svc, err := newServices(lg, cfg, st, hub, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}
	unsubscribe := svc.auth.OnAuthStateChange(func(ev auth.Event, s *auth.Session) {
		if s == nil {
			return
		}
		lg.Info("Auth state changed",
			zap.String("event", string(ev)),
			zap.String("user_id", s.User.ID),
		)
	})
	defer unsubscribe()

	go svc.carts.RunSweeper(ctx, cfg.Cart.SweepInterval, cfg.Cart.IdleTTL)
	go purgeSessions(ctx, lg, svc.auth, cfg.Auth.PurgeInterval)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, cfg, svc.api, healthSvc, m.TracerProvider(), m.MeterProvider()),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// services holds the wired domain layer.
type services struct {
	auth  *auth.Service
	carts *cart.Sessions
	api   *handler.Handler
}

func newServices(lg *zap.Logger, cfg *Config, st *stores, hub *realtime.Hub, tp trace.TracerProvider, mp metric.MeterProvider) (*services, error) {
	authService := auth.NewService(st.users, st.sessions, st.roles, auth.Config{
		SessionTTL: cfg.Auth.SessionTTL,
		Pepper:     []byte(cfg.Auth.Pepper),
		BcryptCost: cfg.Auth.BcryptCost,
	})

	payments := payment.New(payment.Options{
		URL:            cfg.Payment.URL,
		Timeout:        cfg.Payment.Timeout,
		TracerProvider: tp,
		MeterProvider:  mp,
	})
	checkoutService, err := checkout.NewService(st.orders, payments, mp.Meter("shop/checkout"))
	if err != nil {
		return nil, errors.Wrap(err, "create checkout service")
	}

	carts := cart.NewSessions(st.carts, lg.Named("cart"))

	api := handler.NewHandler(
		handler.HandlerConfig{
			ImageBaseURL:  cfg.ImageBaseURL,
			SecureCookies: cfg.SecureCookies,
		},
		product.NewCatalog(st.products),
		carts,
		checkoutService,
		authService,
		admin.NewConsole(authService, st.orders, st.products, hub),
	)
	return &services{auth: authService, carts: carts, api: api}, nil
}

// newRouter mounts health and API routes and wraps them in the middleware
// chain.
func newRouter(
	ctx context.Context,
	cfg *Config,
	api *handler.Handler,
	hs *health.Health,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", hs.LiveEndpoint)
	mux.HandleFunc("GET /readyz", hs.ReadyEndpoint)
	api.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:          cfg.RateLimit.Max,
			Window:       cfg.RateLimit.Window,
			PathPrefixes: cfg.RateLimit.Paths,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument("shop-api", routeFinder, tp, mp),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
}

// purgeSessions deletes expired sessions every interval until ctx is done.
func purgeSessions(ctx context.Context, lg *zap.Logger, svc *auth.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				lg.Warn("Purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Debug("Purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
