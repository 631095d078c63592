package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/staybooking/api"
	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/bootstrap"
	"github.com/Domenick1991/staybooking/internal/cache"
	"github.com/Domenick1991/staybooking/internal/form"
	"github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/Domenick1991/staybooking/internal/logger"
	"github.com/Domenick1991/staybooking/internal/mpesa"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/Domenick1991/staybooking/internal/service/listings"
	"github.com/Domenick1991/staybooking/internal/service/payments"
	"github.com/Domenick1991/staybooking/internal/service/reviews"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	mongoClient, err := repository.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	db := mongoClient.Database(cfg.Mongo.Database)

	health := map[string]bootstrap.HealthCheck{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
	}

	var bookingRepo repository.BookingRepository
	switch cfg.Storage.Bookings {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := repository.Migrate(ctx, pool); err != nil {
			return err
		}
		bookingRepo = repository.NewBookingRepository(pool)
		health["postgres"] = pool.Ping
	case "mongo":
		bookingRepo, err = repository.NewMongoBookingRepository(ctx, db)
		if err != nil {
			return fmt.Errorf("init booking store: %w", err)
		}
	default:
		return fmt.Errorf("unknown booking storage %q", cfg.Storage.Bookings)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.ListingsCacheTTL())
	defer redisCache.Close()
	health["redis"] = redisCache.Ping

	producer := kafka.NewProducer(cfg.Kafka.Brokers, zl.Named("kafka"))
	defer producer.Close()
	health["kafka"] = producer.CheckConnection

	gateway := mpesa.NewClient(cfg.MPesa.BaseURL, cfg.MPesa.CallbackURL, time.Duration(cfg.MPesa.TimeoutSeconds)*time.Second)

	listingService := listings.NewListingService(repository.NewMongoListingRepository(db), redisCache, zl.Named("listings"))
	reviewService := reviews.NewReviewService(repository.NewMongoReviewRepository(db))
	bookingService := booking.NewBookingService(
		bookingRepo,
		listingService,
		redisCache,
		producer,
		zl.Named("booking"),
		cfg.Kafka.BookingEventsTopic,
		cfg.Booking.SubmitLockTTL(),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	paymentService := payments.NewPaymentService(gateway, redisCache, producer, zl.Named("payments"), cfg.Kafka.BookingEventsTopic, cfg.Booking.ReceiptTTL(),
		payments.WithNotificationsTopic(cfg.Kafka.NotificationsTopic))

	subscriber := form.SubscriberFunc(func(ctx context.Context, sessionID string) (form.Subscription, error) {
		sub, err := redisCache.SubscribePayments(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return sub, nil
	})
	manager := form.NewManager(subscriber, listingService, paymentService, bookingService, zl.Named("form"), form.ManagerConfig{
		ConfirmationTimeout: cfg.Booking.ConfirmationTimeout(),
		IdleTTL:             time.Duration(cfg.Session.IdleTTLMinutes) * time.Minute,
		SweepInterval:       time.Duration(cfg.Session.SweepMinutes) * time.Minute,
	})

	limiter := api.NewRateLimiter(cfg.RateLimit.PaymentsPerMinute, cfg.RateLimit.Burst, zl.Named("ratelimit")).Middleware()
	router := bootstrap.NewRouter(cfg.HTTP, zl.Named("http"), bootstrap.Handlers{
		Listings: api.NewListingHandler(listingService),
		Reviews:  api.NewReviewHandler(reviewService),
		Bookings: api.NewBookingHandler(bookingService),
		Payments: api.NewPaymentHandler(paymentService, limiter, zl.Named("payments")),
		Sessions: api.NewSessionHandler(manager, limiter),
		Health:   health,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.Run(gctx)
	})
	g.Go(func() error {
		return bootstrap.Run(gctx, cfg.HTTP.Address, router, zl)
	})
	return g.Wait()
}
