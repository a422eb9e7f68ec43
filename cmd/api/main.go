package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"example.com/tracker/internal/api"
	"example.com/tracker/internal/config"
	"example.com/tracker/internal/domain"
	"example.com/tracker/internal/events"
	persistence "example.com/tracker/internal/persistence/mongo"
	httptransport "example.com/tracker/internal/transport/http"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logs := logger.Sugar()

	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logs.Fatalw("failed to load config", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	defer connectCancel()

	client, err := mongodriver.Connect(connectCtx, mongooptions.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logs.Fatalw("failed to connect to mongodb", "error", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := client.Ping(connectCtx, nil); err != nil {
		logs.Fatalw("mongodb unreachable", "error", err)
	}

	repo := persistence.NewRepository(client.Database(cfg.MongoDatabase))
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		logs.Fatalw("failed to build indexes", "error", err)
	}

	var publisher domain.EventPublisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, logs)
		defer func() { _ = kafkaPublisher.Close() }()
		publisher = kafkaPublisher
		logs.Infow("event publishing enabled", "brokers", cfg.KafkaBrokers, "topic", events.Topic)
	}

	service := domain.NewService(repo, publisher)

	handler := api.NewHandler(service, logs)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	handler.RegisterStatic(mux, cfg.StaticDir)
	mux.Handle("GET /metrics", promhttp.Handler())

	chain := api.RequestID(api.RequestLogger(logs)(api.CORS(mux)))

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, chain)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logs.Infow("exercise tracker listening", "address", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Fatalw("server error", "error", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logs.Errorw("graceful shutdown failed", "error", err)
	}
}
