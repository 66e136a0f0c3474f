package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rinaldiihsan/sixstreet-sub001/api/controllers"
	"github.com/rinaldiihsan/sixstreet-sub001/api/routes"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/catalog"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/checkout"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/cron"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/notify"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/regions"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/shipping"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/backend"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/config"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/db"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/metrics"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/rajaongkir"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/redis"
)

const serviceName = "sixstreet-storefront"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	upstreamMetrics := metrics.NewUpstreamMetrics(reg)
	shippingMetrics := metrics.NewShippingMetrics(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	jobs := cron.NewRegistry()
	var (
		store    checkout.Store
		dbPinger controllers.Pinger
	)
	if cfg.Checkout.UsesSQL() {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}()
		if cfg.DB.AutoMigrate {
			if err := dbClient.Migrate(ctx); err != nil {
				return err
			}
		}
		sqlStore := checkout.NewSQLStore(dbClient.DB(), cfg.Checkout.SessionTTL)
		purge, err := cron.NewSessionPurgeJob(sqlStore, logg, jobMetrics)
		if err != nil {
			return err
		}
		jobs.Register(purge)
		store = sqlStore
		dbPinger = dbClient
	} else {
		store = checkout.NewRedisStore(redisClient, cfg.Checkout.SessionTTL)
	}

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithMetrics(upstreamMetrics),
	)
	if err != nil {
		return err
	}
	rateClient, err := rajaongkir.NewClient(cfg.Shipping.ResolvedBaseURL(cfg.Backend),
		rajaongkir.WithTimeout(cfg.Shipping.Timeout),
		rajaongkir.WithAPIKey(cfg.Shipping.APIKey),
		rajaongkir.WithMetrics(upstreamMetrics),
	)
	if err != nil {
		return err
	}

	registry, err := shipping.RegistryFromConfig(cfg.Shipping)
	if err != nil {
		return err
	}
	aggregator, err := shipping.NewAggregator(rateClient, registry, shipping.Options{
		OriginID:    cfg.Shipping.OriginID,
		WeightGrams: cfg.Shipping.WeightGrams,
		Metrics:     shippingMetrics,
		Logger:      logg,
	})
	if err != nil {
		return err
	}

	notifier := notify.NewRedisNotifier(redisClient, cfg.Checkout.NotificationLimit, cfg.Checkout.SessionTTL)
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Store:              store,
		Quoter:             aggregator,
		Notifier:           notifier,
		Metrics:            shippingMetrics,
		Logger:             logg,
		CalculationTimeout: cfg.Checkout.CalculationTimeout,
	})
	if err != nil {
		return err
	}

	catalogService := catalog.NewService(backendClient, logg)
	regionsService := regions.NewService(rateClient, redisClient, cfg.Shipping.RegionCacheTTL, logg)

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbPinger, redisClient, reg,
			catalogService, regionsService, aggregator, checkoutService, notifier),
		ReadHeaderTimeout: 10 * time.Second,
	}

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"checkout_store": cfg.Checkout.Store,
		"couriers":       registry.Len(),
	})
	logg.Info(startCtx, "starting api server")

	var maintenance *cron.Service
	if jobs.Len() > 0 {
		lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cron.SessionPurgeJobName), cfg.Checkout.PurgeInterval)
		if err != nil {
			return err
		}
		maintenance, err = cron.NewService(cron.ServiceParams{
			Logger:   logg,
			Registry: jobs,
			Lock:     lock,
			Metrics:  jobMetrics,
			Interval: cfg.Checkout.PurgeInterval,
		})
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		logg.Info(startCtx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})
	if maintenance != nil {
		g.Go(func() error { return maintenance.Run(gctx) })
	}

	return g.Wait()
}
