package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/publora/publora/modules/api"
	"github.com/publora/publora/modules/publish"
	"github.com/publora/publora/pkg/backoff"
	"github.com/publora/publora/pkg/config"
	"github.com/publora/publora/pkg/httpserver"
	"github.com/publora/publora/pkg/idempotency"
	"github.com/publora/publora/pkg/logger"
	"github.com/publora/publora/pkg/pg"
	"github.com/publora/publora/pkg/queue"
	"github.com/publora/publora/pkg/ratelimit"
	"github.com/publora/publora/pkg/redis"
	"github.com/publora/publora/pkg/telemetry"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"publora"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		appCfg        appConfig
		httpCfg       httpserver.Config
		pgCfg         pg.Config
		redisCfg      redis.Config
		publishCfg    publish.Config
		idemCfg       idempotency.Config
		telegramCfg   publish.TelegramConfig
		newsletterCfg publish.NewsletterConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&publishCfg)
	config.MustLoad(&idemCfg)
	config.MustLoad(&telegramCfg)
	config.MustLoad(&newsletterCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	// Delivery pipeline: durable queue, sweeper, provider registry, worker.
	storage, err := queue.NewPostgresStorage(pool)
	if err != nil {
		return fmt.Errorf("queue storage: %w", err)
	}

	enqueuer, err := queue.NewEnqueuer(storage,
		queue.WithDefaultMaxAttempts(int8(publishCfg.MaxAttempts)),
	)
	if err != nil {
		return fmt.Errorf("queue enqueuer: %w", err)
	}

	scheduleStore, err := publish.NewPostgresStore(pool)
	if err != nil {
		return fmt.Errorf("schedule store: %w", err)
	}

	registry, err := buildRegistry(telegramCfg, newsletterCfg, log)
	if err != nil {
		return fmt.Errorf("publisher registry: %w", err)
	}

	recorder, err := publish.NewOutcomeRecorder(scheduleStore, log)
	if err != nil {
		return fmt.Errorf("outcome recorder: %w", err)
	}

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	handler, err := publish.NewHandler(registry, scheduleStore, recorder, metrics, log)
	if err != nil {
		return fmt.Errorf("publish handler: %w", err)
	}

	worker, err := queue.NewWorker(storage,
		queue.WithPullInterval(publishCfg.WorkerPullInterval),
		queue.WithLockTimeout(publishCfg.WorkerLockTimeout),
		queue.WithMaxConcurrentJobs(publishCfg.WorkerConcurrency),
		queue.WithBackoff(backoff.Default()),
		queue.WithObserver(publish.NewPipelineObserver(metrics, recorder, log)),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return fmt.Errorf("queue worker: %w", err)
	}
	if err := worker.RegisterHandler(handler.QueueHandler()); err != nil {
		return fmt.Errorf("register handler: %w", err)
	}

	sweeper, err := publish.NewSweeper(scheduleStore, enqueuer,
		publish.WithSweepInterval(publishCfg.SweepInterval),
		publish.WithBatchSize(publishCfg.SweepBatchSize),
		publish.WithSweeperLogger(log),
	)
	if err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}

	// Inbound surface: idempotency guard, login guard, JSON API.
	idemStore, err := idempotency.NewRedisStore(redisClient)
	if err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}

	guardStore, err := ratelimit.NewRedisStore(redisClient)
	if err != nil {
		return fmt.Errorf("login guard store: %w", err)
	}
	loginGuard, err := ratelimit.NewGuard(guardStore, ratelimit.DefaultConfig())
	if err != nil {
		return fmt.Errorf("login guard: %w", err)
	}

	userStore, err := api.NewPostgresUserStore(pool)
	if err != nil {
		return fmt.Errorf("user store: %w", err)
	}
	authSvc, err := api.NewAuthService(userStore, loginGuard, log)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	scheduleSvc, err := api.NewScheduleService(scheduleStore, log)
	if err != nil {
		return fmt.Errorf("schedule service: %w", err)
	}
	dlqSvc, err := api.NewDLQService(storage, log)
	if err != nil {
		return fmt.Errorf("dlq service: %w", err)
	}

	router := api.Router(api.RouterOptions{
		Schedules:        scheduleSvc,
		Auth:             authSvc,
		IdempotencyStore: idemStore,
		IdempotencyOptions: []idempotency.MiddlewareOption{
			idempotency.WithReservationTTL(idemCfg.ReservationTTL),
			idempotency.WithResponseTTL(idemCfg.ResponseTTL),
			idempotency.WithLogger(log),
		},
		LoginGuard:  loginGuard,
		DeadLetters: dlqSvc,
		Healthchecks: []func(context.Context) error{
			pg.Healthcheck(pool),
			redis.Healthcheck(redisClient),
		},
	})

	server := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(worker.Run(gctx))
	g.Go(func() error {
		return server.Run(gctx, router)
	})

	log.InfoContext(ctx, "publora started", "addr", httpCfg.Addr, "env", appCfg.Environment)

	if err := g.Wait(); err != nil && !isShutdown(err) {
		return err
	}
	log.InfoContext(context.Background(), "publora stopped")
	return nil
}

// buildRegistry wires the publishers whose provider credentials are present.
// A missing credential disables that platform; its jobs dead-letter with an
// unknown-platform error instead of retrying against nothing.
func buildRegistry(tg publish.TelegramConfig, nl publish.NewsletterConfig, log *slog.Logger) (*publish.Registry, error) {
	var publishers []publish.Publisher

	if tg.Token != "" {
		p, err := publish.NewTelegramPublisher(tg)
		if err != nil {
			return nil, fmt.Errorf("telegram publisher: %w", err)
		}
		publishers = append(publishers, p)
	} else {
		log.Warn("telegram publisher disabled, TELEGRAM_BOT_TOKEN not set")
	}

	if nl.ServerToken != "" {
		p, err := publish.NewNewsletterPublisher(nl)
		if err != nil {
			return nil, fmt.Errorf("newsletter publisher: %w", err)
		}
		publishers = append(publishers, p)
	} else {
		log.Warn("newsletter publisher disabled, POSTMARK_SERVER_TOKEN not set")
	}

	return publish.NewRegistry(publishers...)
}

func isShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
