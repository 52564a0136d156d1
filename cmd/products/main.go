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
	"github.com/sudarma/go-commerce-bus/internal/catalog"
	"github.com/sudarma/go-commerce-bus/internal/config"
	"github.com/sudarma/go-commerce-bus/internal/dedup"
	"github.com/sudarma/go-commerce-bus/internal/httpx"
	"github.com/sudarma/go-commerce-bus/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load("products-service")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	policy, err := catalog.ParsePolicy(cfg.StockPolicy)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

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

	repo := &catalog.Repo{DB: db}
	engine := &catalog.Engine{Store: repo, Log: logger, Policy: policy}
	marker := &dedup.RedisMarker{RDB: rdb, Service: cfg.ServiceName}

	router := httpx.NewRouter(cfg.ServiceName)
	ph := &httpx.ProductsHandler{Catalog: repo, Bus: producer, Redis: rdb, Log: logger}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, ctx := errgroup.WithContext(ctx)

	subscriptions := map[string]bus.Handler{
		bus.TopicOrderCreated:    engine.HandleOrderCreated,
		bus.TopicStockAdjustment: engine.HandleStockAdjustment,
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
