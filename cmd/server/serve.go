package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tourdesk/service-booking/internal/application"
	"github.com/tourdesk/service-booking/internal/common/auth"
	"github.com/tourdesk/service-booking/internal/common/database"
	"github.com/tourdesk/service-booking/internal/common/health"
	"github.com/tourdesk/service-booking/internal/common/kafka"
	"github.com/tourdesk/service-booking/internal/common/middleware"
	"github.com/tourdesk/service-booking/internal/config"
	bookingDomain "github.com/tourdesk/service-booking/internal/domain/booking"
	bookingEvents "github.com/tourdesk/service-booking/internal/events"
	"github.com/tourdesk/service-booking/internal/handler"
	"github.com/tourdesk/service-booking/internal/metrics"
	"github.com/tourdesk/service-booking/internal/notification"
	"github.com/tourdesk/service-booking/internal/realtime"
	"github.com/tourdesk/service-booking/internal/repository"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, payment consumer and realtime relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return serve(cmd.Context(), cfg, opts, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.ServiceConfig, opts *rootOptions, log *zap.Logger) error {
	log.Info("starting service-booking", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))

	db, err := database.Connect(cfg.DBConfig.DSN(), log)
	if err != nil {
		return err
	}
	if err := migrateSchema(db, cfg, opts.migrationsDir, log); err != nil {
		return err
	}
	productRepo := repository.NewGormProductRepository(db)
	if _, err := productRepo.NormalizeLegacyLists(ctx, log); err != nil {
		return err
	}

	metrics.Register()

	var rdb *redis.Client
	if cfg.RedisConfig.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisConfig.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		rdb = redis.NewClient(redisOpts)
		defer func() { _ = rdb.Close() }()
	}

	// Realtime: in-process hub, fanned out across instances through Redis
	// when it is configured.
	hub := realtime.NewHub(realtime.DefaultBuffer, log.Named("realtime"))
	defer hub.Close()
	var channel realtime.Channel = hub
	var relay *realtime.RedisChannel
	if rdb != nil {
		relay = realtime.NewRedisChannel(rdb, hub, log.Named("realtime"))
		channel = relay
	}

	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	notifiers, err := buildNotifiers(cfg, kafkaProducer, log)
	if err != nil {
		return err
	}
	dispatcher := notification.NewAsyncDispatcher(notifiers, notification.DispatcherConfig{
		Workers:      cfg.Notification.Workers,
		QueueSize:    cfg.Notification.QueueSize,
		MaxAttempts:  cfg.Notification.MaxAttempts,
		InitialDelay: cfg.Notification.InitialDelay,
	}, log.Named("notification"))

	bookingRepo := repository.NewGormBookingRepository(db)
	bookingService := application.NewBookingService(
		bookingRepo,
		repository.NewGormRequestLogRepository(db),
		productRepo,
		bookingDomain.NewStandardPricingStrategy(),
		channel,
		dispatcher,
		log.Named("booking"),
	)
	calendarService := application.NewCalendarService(bookingRepo, log.Named("calendar"))

	paymentConsumer := bookingEvents.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"booking-service",
		cfg.KafkaConfig.PaymentTopic,
		bookingService,
		log.Named("payments"),
	)
	defer func() { _ = paymentConsumer.Close() }()

	router, err := buildRouter(cfg, db, rdb, bookingService, calendarService, channel, log)
	if err != nil {
		return err
	}

	// No WriteTimeout: the status stream is long-lived.
	srv := &http.Server{
		Addr:        cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	dispatcher.Start(gctx)

	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting payment event consumer", zap.String("topic", cfg.KafkaConfig.PaymentTopic))
		if err := paymentConsumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("payment consumer: %w", err)
		}
		return nil
	})

	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down service-booking...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server forced shutdown", zap.Error(err))
		}
		dispatcher.Close()
		return nil
	})

	err = g.Wait()
	log.Info("service-booking stopped")
	return err
}

func migrateSchema(db *gorm.DB, cfg *config.ServiceConfig, dir string, log *zap.Logger) error {
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.ProductModel{}, &repository.BookingRequestModel{}, &repository.RequestLogModel{}); err != nil {
			return fmt.Errorf("failed to run auto-migration: %w", err)
		}
		log.Info("database migration completed (dev auto-migrate)")
		return nil
	}
	return database.RunMigrations(cfg.DBConfig.DatabaseURL(), dir, log)
}

// buildNotifiers always publishes to Kafka and adds chat and e-mail delivery
// when they are configured.
func buildNotifiers(cfg *config.ServiceConfig, producer *kafka.Producer, log *zap.Logger) (notification.Multi, error) {
	notifiers := notification.Multi{
		notification.NewKafkaNotifier(producer, cfg.KafkaConfig.NotificationsTopic, serviceName),
	}

	if cfg.TelegramConfig.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramConfig.BotToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram bot: %w", err)
		}
		notifiers = append(notifiers, notification.NewTelegramNotifier(bot))
		log.Info("telegram notifications enabled", zap.String("bot", bot.Self.UserName))
	}

	if cfg.SMTPConfig.Host != "" {
		dialer := notification.NewSMTPDialer(cfg.SMTPConfig.Host, cfg.SMTPConfig.Port,
			cfg.SMTPConfig.Username, cfg.SMTPConfig.Password)
		notifiers = append(notifiers, notification.NewEmailNotifier(dialer, cfg.SMTPConfig.From))
		log.Info("email notifications enabled", zap.String("host", cfg.SMTPConfig.Host))
	}

	return notifiers, nil
}

func buildRouter(
	cfg *config.ServiceConfig,
	db *gorm.DB,
	rdb *redis.Client,
	bookingService *application.BookingService,
	calendarService *application.CalendarService,
	updates realtime.Subscriber,
	log *zap.Logger,
) (*gin.Engine, error) {
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	healthHandler := health.NewHandler(db, serviceName)
	if rdb != nil {
		healthHandler.AddChecker("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rateLimit, err := middleware.RateLimitMiddleware(cfg.RateLimit, "booking-requests", rdb)
	if err != nil {
		return nil, err
	}

	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)

	handler.NewBookingHandler(bookingService, updates, log.Named("http")).
		RegisterRoutes(&router.RouterGroup, rateLimit)
	handler.NewAdminBookingHandler(bookingService, calendarService).
		RegisterRoutes(&router.RouterGroup, jwtManager)

	return router, nil
}
