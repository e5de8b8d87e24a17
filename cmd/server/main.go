package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	nomhandler "ovation/internal/nomination/handler"
	nommetrics "ovation/internal/nomination/metrics"
	nomservice "ovation/internal/nomination/service"
	nomstore "ovation/internal/nomination/store"
	"ovation/internal/notify"
	"ovation/internal/payment/gateway"
	payhandler "ovation/internal/payment/handler"
	paymetrics "ovation/internal/payment/metrics"
	payservice "ovation/internal/payment/service"
	paystore "ovation/internal/payment/store"
	"ovation/internal/platform/config"
	"ovation/internal/platform/httpserver"
	"ovation/internal/platform/kafka"
	"ovation/internal/platform/logger"
	platformmetrics "ovation/internal/platform/metrics"
	"ovation/internal/platform/postgres"
	"ovation/internal/platform/redis"
	reghandler "ovation/internal/registration/handler"
	regmetrics "ovation/internal/registration/metrics"
	regservice "ovation/internal/registration/service"
	regstore "ovation/internal/registration/store"
	"ovation/internal/router"
	"ovation/internal/session"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	health := map[string]router.HealthCheck{}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		health["postgres"] = pool.Ping
		log.Info("postgres connected")
	} else {
		log.Warn("DATABASE_URL not set, committed records held in memory")
	}

	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = redisClient.Health
		log.Info("redis connected")
	} else {
		log.Warn("REDIS_URL not set, wizard drafts held in memory")
	}

	var kafkaClient *kgo.Client
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err = kafka.Connect(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		health["kafka"] = kafkaClient.Ping
		log.Info("kafka connected", "topic", cfg.KafkaTopic)
	}

	var notifier notify.Notifier
	if kafkaClient != nil {
		notifier = notify.NewKafkaNotifier(kafkaClient, cfg.KafkaTopic)
	} else {
		log.Warn("KAFKA_BROKERS not set, notifications go to the log")
		notifier = notify.NewLogNotifier(log)
	}
	dispatcher := notify.NewDispatcher(notifier, log, 256)

	var nomDrafts nomstore.Store = nomstore.NewInMemory()
	var regDrafts regstore.Store = regstore.NewInMemory()
	if redisClient != nil {
		nomDrafts = nomstore.NewRedis(redisClient)
		regDrafts = regstore.NewRedis(redisClient)
	}

	var nomRecords nomstore.Store = nomstore.NewInMemory()
	var regRecords regstore.RecordStore = regstore.NewInMemory()
	var attempts paystore.Store = paystore.NewInMemory()
	if pool != nil {
		nomRecords = nomstore.NewPostgres(pool)
		regRecords = regstore.NewPostgres(pool)
		attempts = paystore.NewPostgres(pool)
	}

	if cfg.GatewayBaseURL == "" {
		log.Warn("GATEWAY_BASE_URL not set, gateway payments will fail until configured")
	}
	gatewayClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewaySecretKey)

	tokens := session.NewTokenService(cfg.SessionSigningKey, cfg.SessionTTL)

	nominations := nomservice.New(nomDrafts, nomRecords, dispatcher, log,
		nommetrics.New(registry))
	registrations := regservice.New(regDrafts, regRecords, log,
		regmetrics.New(registry))
	payments := payservice.New(attempts, regRecords, gatewayClient, dispatcher,
		cfg.GatewayCallbackURL, log, paymetrics.New(registry))

	mux := router.New(router.Deps{
		Logger:        log,
		Registry:      registry,
		Metrics:       platformmetrics.New(registry),
		Sessions:      tokens,
		Nominations:   nomhandler.New(nominations, tokens, log),
		Registrations: reghandler.New(registrations, tokens, cfg.Currency, log),
		Payments:      payhandler.New(payments, log),
		Health:        health,
	})

	server := httpserver.New(cfg.Addr, mux)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return dispatcher.Run(groupCtx)
	})

	group.Go(func() error {
		for {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case err := <-dispatcher.Errors():
				log.Error("notification delivery failed", "error", err.Error())
			}
		}
	})

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
