package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/cafeflow-backend/api/routes"
	"github.com/angelmondragon/cafeflow-backend/internal/audit"
	"github.com/angelmondragon/cafeflow-backend/internal/dashboard"
	"github.com/angelmondragon/cafeflow-backend/internal/feed"
	"github.com/angelmondragon/cafeflow-backend/internal/orders"
	"github.com/angelmondragon/cafeflow-backend/pkg/config"
	"github.com/angelmondragon/cafeflow-backend/pkg/db"
	"github.com/angelmondragon/cafeflow-backend/pkg/docstore"
	"github.com/angelmondragon/cafeflow-backend/pkg/env"
	"github.com/angelmondragon/cafeflow-backend/pkg/instance"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/angelmondragon/cafeflow-backend/pkg/metrics"
	"github.com/angelmondragon/cafeflow-backend/pkg/migrate"
	"github.com/angelmondragon/cafeflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), "config.dotenv_missing")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "config.load_failed", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api.stopped", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer closeLogged(logg, "db", dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer closeLogged(logg, "redis", redisClient)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gormStore, err := docstore.NewGormStore(dbClient)
	if err != nil {
		return err
	}
	hub, err := docstore.NewHub(gormStore, cfg.Feed.MinPushInterval, logg)
	if err != nil {
		return err
	}
	defer hub.Close()

	group, groupCtx := errgroup.WithContext(ctx)

	var notifier docstore.ChangeNotifier = hub
	if cfg.Feed.UsesRedis() {
		fanout, err := docstore.NewRedisNotifier(redisClient, cfg.Feed.RedisChannel, instance.GetID(), hub, logg)
		if err != nil {
			return err
		}
		group.Go(func() error { return fanout.Run(groupCtx) })
		notifier = fanout
	}
	store := docstore.WithNotifier(gormStore, notifier)

	sinks, closers, err := buildSinks(ctx, cfg, logg, dbClient)
	if err != nil {
		return err
	}
	for _, c := range closers {
		defer closeLogged(logg, "audit sink", c)
	}
	dispatcher, err := audit.NewDispatcher(audit.DispatcherParams{
		Sinks:         sinks,
		Logger:        logg,
		Metrics:       metrics.NewAuditMetrics(reg),
		QueueSize:     cfg.Audit.QueueSize,
		BatchSize:     cfg.Audit.BatchSize,
		Workers:       cfg.Audit.Workers,
		FlushInterval: cfg.Audit.FlushInterval,
	})
	if err != nil {
		return err
	}

	policy, err := orders.ParseTransitionPolicy(cfg.Orders.TransitionPolicy)
	if err != nil {
		return err
	}
	prep, err := orders.LoadPrepTimeTable(cfg.Orders.PrepTimesFile)
	if err != nil {
		return err
	}
	repo, err := orders.NewRepository(store)
	if err != nil {
		return err
	}
	svc, err := orders.NewService(repo, redisClient, dispatcher, metrics.NewOrderMetrics(reg), logg, orders.Options{
		Policy:            policy,
		MaxUpdateAttempts: cfg.Orders.MaxUpdateAttempts,
		StatisticsSource:  cfg.Orders.StatisticsSource,
		PrepTimes:         prep,
	})
	if err != nil {
		return err
	}
	liveFeed, err := feed.New(hub, logg, metrics.NewFeedMetrics(reg))
	if err != nil {
		return err
	}
	board, err := dashboard.NewController(dashboard.ControllerParams{
		Orders:    svc,
		Feed:      liveFeed,
		PrepTimes: prep,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	server := newServer(addr, func(streamsDone <-chan struct{}) http.Handler {
		return routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Orders:      svc,
			Dashboard:   board,
			Gatherer:    reg,
			StreamsDone: streamsDone,
		})
	})

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"policy": string(policy),
	})
	group.Go(func() error {
		logg.Info(logCtx, "api.listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logg.Info(logCtx, "api.shutting_down")
		return shutdown(logCtx, server, dispatcher, shutdownTimeout, drainTimeout, logg)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(logCtx, "api.stopped_cleanly")
	return nil
}

func closeLogged(logg *logger.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logg.Error(logg.WithField(context.Background(), "resource", name), "api.close_failed", err)
	}
}
