// Package app wires the storefront API server together.
package app

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/tax"
	"github.com/xenking/storefront/internal/events"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/repository"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Telemetry provides the OpenTelemetry providers, usually *app.Telemetry
// from go-faster/sdk.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", cfg.Health.CheckTimeout, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(cfg.Health.MaxGoroutines))

	taxes, err := tax.NewRegistry(tax.DefaultRules()...)
	if err != nil {
		return errors.Wrap(err, "tax registry")
	}

	orderOpts := []order.Option{
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	}
	if cfg.NATS.URL != "" {
		nc, js, err := events.Connect(cfg.NATS.URL, cfg.NATS.Timeout)
		if err != nil {
			return err
		}
		defer nc.Close()

		if err := events.EnsureStream(ctx, js, cfg.NATS.Stream, cfg.NATS.Subject); err != nil {
			return err
		}
		healthSvc.AddReadinessCheck("nats", cfg.Health.CheckTimeout, func(context.Context) error {
			if !nc.IsConnected() {
				return errors.Errorf("nats status %s", nc.Status())
			}
			return nil
		})
		orderOpts = append(orderOpts, order.WithEvents(events.NewPublisher(js, cfg.NATS.Subject, cfg.NATS.Timeout)))
		lg.Info("Publishing order events",
			zap.String("stream", cfg.NATS.Stream),
			zap.String("subject", cfg.NATS.Subject),
		)
	}

	carts := repository.NewCartRepository(pool)
	users := repository.NewUserRepository(pool)
	orders := repository.NewOrderRepository(pool)

	orderService, err := order.NewService(carts, users, orders, orders, taxes, orderOpts...)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	reportService := order.NewReportService(orders)

	tokens, err := auth.NewTokens([]byte(cfg.Auth.Secret), cfg.Auth.Issuer)
	if err != nil {
		return errors.Wrap(err, "create token verifier")
	}

	limiter := httpmiddleware.NewLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)

	h := handler.NewHandler(orderService, reportService, tokens)
	h.UseAuthenticated(httpmiddleware.RateLimit(limiter, principalKey))

	api := otelhttp.NewHandler(h.Router("/api"), "storefront-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", api)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.LogRequests(),
			httpmiddleware.Recovery(),
		),
	}

	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(gctx, cfg.Health.Interval)
	})
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	return g.Wait()
}

// principalKey counts authenticated callers by user id.
func principalKey(r *http.Request) string {
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		return "user:" + strconv.FormatInt(p.UserID, 10)
	}
	return httpmiddleware.ClientIP(r)
}
