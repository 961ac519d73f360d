package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	applicationhandler "tuitionhub/internal/application/handler"
	applicationservice "tuitionhub/internal/application/service"
	applicationstore "tuitionhub/internal/application/store"
	"tuitionhub/internal/audit"
	auditstore "tuitionhub/internal/audit/store"
	"tuitionhub/internal/audit/worker"
	identityhandler "tuitionhub/internal/identity/handler"
	identityservice "tuitionhub/internal/identity/service"
	identitystore "tuitionhub/internal/identity/store"
	paymenthandler "tuitionhub/internal/payment/handler"
	"tuitionhub/internal/payment/provider/stripeapi"
	paymentservice "tuitionhub/internal/payment/service"
	paymentstore "tuitionhub/internal/payment/store"
	"tuitionhub/internal/platform/config"
	"tuitionhub/internal/platform/httpserver"
	"tuitionhub/internal/platform/kafka"
	"tuitionhub/internal/platform/logger"
	"tuitionhub/internal/platform/metrics"
	"tuitionhub/internal/platform/postgres"
	redisplat "tuitionhub/internal/platform/redis"
	"tuitionhub/internal/token"
	transporthttp "tuitionhub/internal/transport/http"
	tuitionhandler "tuitionhub/internal/tuition/handler"
	tuitionservice "tuitionhub/internal/tuition/service"
	tuitionstore "tuitionhub/internal/tuition/store"
	txpkg "tuitionhub/pkg/platform/tx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	m := metrics.New()

	// Stores: postgres when configured, memory otherwise so the service runs
	// without infrastructure in development.
	var (
		db           *sql.DB
		runner       txpkg.Runner = txpkg.NoopRunner{}
		users        identitystore.UserStore
		tuitions     tuitionstore.TuitionStore
		applications applicationstore.ApplicationStore
		payments     paymentstore.PaymentStore
		outbox       auditstore.OutboxStore
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		runner = txpkg.SQLRunner{DB: db}
		users = identitystore.NewPostgres(db)
		tuitions = tuitionstore.NewPostgres(db)
		applications = applicationstore.NewPostgres(db)
		payments = paymentstore.NewPostgres(db)
		outbox = auditstore.NewPostgres(db)
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
		users = identitystore.NewInMemory()
		tuitions = tuitionstore.NewInMemory()
		applications = applicationstore.NewInMemory()
		payments = paymentstore.NewInMemory()
		outbox = auditstore.NewInMemory()
	}

	redisClient, err := redisplat.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, log)
	if err != nil {
		return err
	}
	defer producer.Close()

	auditor := audit.NewPublisher(outbox)
	verifier := token.NewVerifier(cfg.JWTSigningKey, cfg.JWTIssuer)

	identitySvc := identityservice.New(users, auditor, m, log)
	tuitionSvc := tuitionservice.New(tuitions, identitySvc, auditor, log)
	applicationSvc := applicationservice.New(applications, tuitions, identitySvc, auditor, log)
	paymentSvc := paymentservice.New(paymentservice.Deps{
		Provider:     stripeapi.New(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout),
		Payments:     payments,
		Applications: applications,
		Runner:       runner,
		Receipts:     paymentservice.NewReceiptCache(redisClient, cfg.ReceiptCacheTTL),
		Auditor:      auditor,
		Metrics:      m,
		Logger:       log,
		SiteDomain:   cfg.SiteDomain,
	})

	router := transporthttp.New(transporthttp.Deps{
		Identity:     identityhandler.New(identitySvc, log),
		Tuitions:     tuitionhandler.New(tuitionSvc, log),
		Applications: applicationhandler.New(applicationSvc, log),
		Payments:     paymenthandler.New(paymentSvc, log),
		Verifier:     verifier,
		Roles:        identitySvc,
		Metrics:      m,
		Logger:       log,
		Health: func(r *http.Request) error {
			if db != nil {
				if err := db.PingContext(r.Context()); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(r.Context())
			}
			return nil
		},
	})

	server := httpserver.New(cfg.Addr, router)
	var sink worker.EventPublisher
	if producer != nil {
		sink = producer
	}
	relay := worker.NewRelay(outbox, sink, cfg.OutboxPollInterval, log)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := relay.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}

	// Flush any events the relay has not picked up yet.
	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if producer != nil {
		if err := relay.Drain(flushCtx); err != nil {
			log.Warn("outbox flush incomplete", "error", err)
		}
	}

	log.Info("server stopped")
	return nil
}
