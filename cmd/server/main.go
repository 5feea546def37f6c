package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"edustream/internal/analytics"
	"edustream/internal/audit"
	"edustream/internal/events"
	"edustream/internal/events/consumer"
	"edustream/internal/events/handler"
	"edustream/internal/events/producer"
	"edustream/internal/events/store"
	"edustream/internal/notification"
	"edustream/internal/platform/config"
	"edustream/internal/platform/httpserver"
	"edustream/internal/platform/kafka"
	"edustream/internal/platform/logger"
	"edustream/internal/platform/metrics"
	platformredis "edustream/internal/platform/redis"
	transporthttp "edustream/internal/transport/http"

	prom "github.com/prometheus/client_golang/prometheus"
)

// main wires the event pipeline: durable store, producer, consumer, handler
// and the operational HTTP surface. Business logic lives in the internal
// packages; this stays a lifecycle shell.
func main() {
	cfg := config.FromEnv()
	log := logger.New("edustream")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Error("open postgres", "error", err)
		return
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("ping postgres", "error", err)
		return
	}

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		return
	}
	var cache *store.Cache
	if rdb != nil {
		defer rdb.Close()
		cache = store.NewCache(rdb)
	} else {
		log.Warn("redis not configured, event cache disabled")
	}

	m := metrics.New()
	eventStore := store.NewPostgres(db, cache, log)

	produceClient, err := kafka.NewProducerClient(cfg.Kafka.Brokers)
	if err != nil {
		log.Error("connect kafka producer", "error", err)
		return
	}
	txnClient, err := kafka.NewTransactionalClient(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-txn")
	if err != nil {
		log.Error("connect kafka transactional producer", "error", err)
		return
	}
	prod := producer.New(produceClient, txnClient, log, m)
	defer prod.Close()

	if err := prod.EnsureTopics(ctx); err != nil {
		log.Error("provision topics", "error", err)
		return
	}

	eventHandler := handler.New(
		eventStore,
		notification.NewLogService(log),
		analytics.NewTracker(log, prom.DefaultRegisterer),
		audit.NewPostgresTrail(db),
		log,
		m,
	)

	cons, err := consumer.New(consumer.Config{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       cfg.Kafka.GroupID,
		Topics:        events.Topics(),
		FromBeginning: cfg.Kafka.FromBeginning,
	}, eventHandler, log, m)
	if err != nil {
		log.Error("connect kafka consumer", "error", err)
		return
	}
	defer cons.Close()

	router := transporthttp.NewRouter(log, []transporthttp.ReadyCheck{
		{Name: "postgres", Check: db.PingContext},
		{Name: "redis", Check: func(ctx context.Context) error {
			if rdb == nil {
				return nil
			}
			return rdb.Health(ctx)
		}},
		{Name: "kafka", Check: func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		}},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("consumer starting", "group", cfg.Kafka.GroupID, "topics", events.Topics())
		return cons.Run(gctx)
	})

	g.Go(func() error {
		log.Info("http server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		return
	}
	log.Info("shutdown complete")
}
