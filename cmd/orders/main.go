package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudarma/go-commerce-bus/internal/bus"
	"github.com/sudarma/go-commerce-bus/internal/bus/kafkabus"
	"github.com/sudarma/go-commerce-bus/internal/config"
	"github.com/sudarma/go-commerce-bus/internal/dedup"
	"github.com/sudarma/go-commerce-bus/internal/httpx"
	"github.com/sudarma/go-commerce-bus/internal/orders"
	"github.com/sudarma/go-commerce-bus/internal/outbox"
	"github.com/sudarma/go-commerce-bus/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load("orders-service")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	producer := kafkabus.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	repo := &orders.Repo{DB: db}
	flow := &orders.Workflow{Ledger: repo, Log: logger}
	prop := &orders.Propagator{Ledger: repo, Bus: producer, Log: logger}
	marker := &dedup.RedisMarker{RDB: rdb, Service: cfg.ServiceName}

	dispatcher := &outbox.Dispatcher{
		Store:    &outbox.Repo{DB: db},
		Bus:      producer,
		Log:      logger,
		Interval: cfg.OutboxInterval,
	}

	router := httpx.NewRouter(cfg.ServiceName)
	oh := &httpx.OrdersHandler{Flow: flow, Ledger: repo, Log: logger}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return dispatcher.Run(ctx) })

	subscriptions := map[string]bus.Handler{
		bus.TopicProductUpdated:          prop.HandleProductUpdated,
		bus.TopicProductDeleted:          prop.HandleProductDeleted,
		bus.TopicInventoryReconciliation: prop.HandleInventoryReconciliation,
	}
	for topic, handler := range subscriptions {
		cons := kafkabus.NewConsumer(cfg.KafkaBrokers, cfg.ServiceName, topic, cfg.Workers, logger)
		h := dedup.Wrap(marker, logger, handler)
		t := topic
		g.Go(func() error {
			logger.Info("consumer started", zap.String("topic", t), zap.String("subscription", cfg.ServiceName))
			return cons.Start(ctx, h)
		})
	}

	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
	logger.Info("shut down cleanly")
}
