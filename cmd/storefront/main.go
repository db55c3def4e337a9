package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/events"
	"github.com/fjod/storefront/internal/httpapi"
	"github.com/fjod/storefront/internal/kvstore"
	"github.com/fjod/storefront/internal/opener"
	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer l.Sync()

	if err := run(cfg, l); err != nil {
		l.Fatal("storefront stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, l *zap.Logger) error {
	ctx := context.Background()

	store, err := openStore(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := session.NewStore(store, l)
	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout,
		api.WithTokenSource(sessions),
		api.WithLogger(l),
	)
	repo := cart.NewRepository(store, cart.WithLogger(l))

	preference, err := checkout.ParseRedirectPreference(cfg.RedirectPreference)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, l)
		l.Info("publishing checkout events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer publisher.Close()

	orch := checkout.NewOrchestrator(
		repo,
		checkout.NewOrderHandler(client, cfg.APITimeout),
		checkout.NewPaymentHandler(client, cfg.APITimeout),
		client,
		checkout.WithLogger(l),
		checkout.WithOpener(opener.NewBrowser()),
		checkout.WithPublisher(publisher),
		checkout.WithRedirectPreference(preference),
	)

	router := httpapi.NewRouter(httpapi.RouterConfig{RequestTimeout: cfg.RequestTimeout, Logger: l},
		httpapi.Services{
			Cart:      repo,
			Checkout:  orch,
			Checkouts: checkout.NewRegistry(),
			Auth:      sessions,
			Orders:    client,
		})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	errCh := make(chan error, 2)
	go func() {
		l.Info("http api listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		l.Info("grpc health listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		l.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		l.Error("server failed", zap.Error(err))
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("http server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	l.Info("storefront stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (kvstore.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		l.Info("using redis store", zap.String("addr", cfg.RedisAddr))
		return kvstore.NewRedisStore(client), nil

	case config.BackendMongo:
		db, err := kvstore.ConnectMongoDB(ctx, kvstore.MongoOptions{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDBName,
			MaxPoolSize:    cfg.MongoMaxPoolSize,
			MinPoolSize:    cfg.MongoMinPoolSize,
			ConnectTimeout: cfg.MongoConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		l.Info("using mongo store", zap.String("database", cfg.MongoDBName), zap.Uint64("max_pool", cfg.MongoMaxPoolSize))
		return kvstore.NewMongoStore(db), nil

	case config.BackendSQLite:
		store, err := kvstore.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(); err != nil {
			store.Close()
			return nil, err
		}
		l.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return store, nil

	case config.BackendPostgres:
		store, err := kvstore.NewPostgresStore(&kvstore.Credentials{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
		})
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(); err != nil {
			store.Close()
			return nil, err
		}
		l.Info("using postgres store", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))
		return store, nil
	}

	l.Warn("using in-memory store; the cart is lost on exit")
	return kvstore.NewMemoryStore(), nil
}
