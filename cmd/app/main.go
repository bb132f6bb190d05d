package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/skyseat/api"
	"github.com/Domenick1991/skyseat/config"
	"github.com/Domenick1991/skyseat/internal/bootstrap"
	"github.com/Domenick1991/skyseat/internal/cache"
	"github.com/Domenick1991/skyseat/internal/kafka"
	"github.com/Domenick1991/skyseat/internal/logger"
	"github.com/Domenick1991/skyseat/internal/service/booking"
	"github.com/Domenick1991/skyseat/internal/service/schedules"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
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

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]api.Pinger{}

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("open store", zap.Error(err))
	}
	defer closeStore()
	health["store"] = store

	var (
		bookingCache  booking.Cache
		scheduleCache schedules.ScheduleCache
	)
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Cache.ScheduleTTLSeconds)*time.Second)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logg.Warn("redis unavailable, schedule cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			bookingCache, scheduleCache = redisCache, redisCache
			health["redis"] = redisCache
		}
	}

	var (
		bookingProducer  booking.Producer
		scheduleProducer schedules.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logg.Named("kafka"))
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			logg.Warn("kafka unreachable at startup, events will be retried per publish", zap.Error(err))
		}
		retrying := producer.Retrying(cfg.Kafka.PublishRetries)
		bookingProducer, scheduleProducer = retrying, retrying
	}

	scheduleService := schedules.NewScheduleService(store, scheduleCache,
		schedules.WithEvents(scheduleProducer, cfg.Kafka.BookingTopic),
		schedules.WithLogger(logg.Named("schedules")),
	)
	bookingService := booking.NewBookingService(
		store,
		bookingCache,
		bookingProducer,
		cfg.Kafka.BookingTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLogger(logg.Named("booking")),
		booking.WithPublishTimeout(time.Duration(cfg.Kafka.PublishTimeoutSeconds)*time.Second),
	)
	// flush in-flight events before the producer is closed
	defer bookingService.Wait()
	defer scheduleService.Wait()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterConfig{
		Logger:     logg.Named("http"),
		Bookings:   api.NewBookingHandler(bookingService),
		Schedules:  api.NewScheduleHandler(scheduleService),
		Health:     health,
		SwaggerDir: cfg.HTTP.SwaggerDir,
	})

	if err := bootstrap.Run(ctx, cfg, router, logg); err != nil {
		logg.Fatal("server error", zap.Error(err))
	}
}
