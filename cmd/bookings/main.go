package main

import (
	"context"

	"roomly/internal/bookings/flow"
	"roomly/internal/bookings/handler"
	"roomly/internal/bookings/repository"
	"roomly/internal/bookings/service"
	"roomly/internal/bookings/validator"
	directory "roomly/internal/directory/repository"
	notificationhandler "roomly/internal/notifications/handler"
	notificationrepository "roomly/internal/notifications/repository"
	notificationservice "roomly/internal/notifications/service"
	"roomly/pkg/app"
	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	"roomly/pkg/kafka"
	kafka_config "roomly/pkg/kafka/config"
	kafka_middleware "roomly/pkg/kafka/middleware"
	"roomly/pkg/lock"
	"roomly/pkg/metrics"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	m := metrics.New()
	serverApp := app.NewApplication(cfg, m)
	serverApp.AddCheck("mongo", func(ctx context.Context) error { return cfg.Client.Mongo.Ping(ctx, nil) })
	if cfg.Client.Redis != nil {
		serverApp.AddCheck("redis", func(ctx context.Context) error { return cfg.Client.Redis.Ping(ctx).Err() })
	}

	cfg.Log.Info("Starting Bookings service")
	bookingService, notificationRepo := initServices(cfg, m, serverApp)
	notificationService := notificationservice.NewNotificationService(notificationRepo, cfg.Log)

	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log),
		notificationhandler.NewNotificationHandler(notificationService, cfg.Log),
	)
	serverApp.OnShutdown(func(ctx context.Context) {
		if err := bookingService.Wait(ctx); err != nil {
			cfg.Log.Warn("Pending notification publishes abandoned", "error", err)
		}
	})
	serverApp.Run()
}

func initServices(cfg *config.Config, m *metrics.Metrics, serverApp *app.Application) (service.BookingService, notificationrepository.NotificationRepository) {
	notificationRepo := notificationrepository.NewMongoNotificationRepository(cfg)
	repos := service.Repositories{
		Bookings:      repository.NewMongoBookingRepository(cfg),
		Participants:  repository.NewParticipantRepository(cfg),
		Changes:       repository.NewChangeRepository(cfg),
		Guard:         repository.NewGuardRepository(cfg),
		Notifications: notificationRepo,
		Rooms:         directory.NewRoomRepository(cfg),
		Users:         directory.NewUserRepository(cfg),
		Teams:         directory.NewTeamRepository(cfg),
	}

	bookingValidator := validator.NewBookingValidator(validator.Limits{
		MaxTitleLength:  cfg.MaxTitleLength,
		MaxParticipants: cfg.MaxParticipants,
	}, cfg.Log)

	opts := []service.Option{
		service.WithMetrics(m),
		service.WithStageObserver(func(flowName string, stage flow.Stage) {
			cfg.Log.Debug("Booking flow transition", "flow", flowName, "stage", stage)
		}),
	}

	if cfg.Client.Redis != nil {
		lockOpts := lock.DefaultOptions()
		lockOpts.Expiry = cfg.BookingLockExpiry
		lockOpts.Tries = cfg.BookingLockTries
		opts = append(opts, service.WithLocker(lock.NewRedisLocker(cfg.Client.Redis, lockOpts, cfg.Log)))
		cfg.Log.Info("Distributed booking lock enabled", "expiry", lockOpts.Expiry, "tries", lockOpts.Tries)
	}

	if cfg.KafkaEnabled {
		producer := newProducer(cfg, m)
		opts = append(opts, service.WithPublisher(producer))
		serverApp.OnShutdown(func(ctx context.Context) {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
	}

	bookingService := service.NewBookingService(
		repos,
		mongotx.NewTransactionManager(cfg.Client.Mongo),
		bookingValidator,
		cfg,
		opts...,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService, notificationRepo
}

func newProducer(cfg *config.Config, m *metrics.Metrics) *kafka.Producer {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.NotificationsTopic, kafkaCfg.NotificationsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
	}

	cfg.Log.Info("Kafka notifications publisher enabled", "topic", kafkaCfg.NotificationsTopic, "brokers", kafkaCfg.Brokers)
	return producer
}
