package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/skyseat/config"
	"github.com/Domenick1991/skyseat/internal/bootstrap"
	"github.com/Domenick1991/skyseat/internal/cache"
	"github.com/Domenick1991/skyseat/internal/kafka"
	"github.com/Domenick1991/skyseat/internal/logger"
	"github.com/Domenick1991/skyseat/internal/notify"
	"github.com/Domenick1991/skyseat/internal/service/schedules"
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

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	var scheduleCache schedules.ScheduleCache
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Cache.ScheduleTTLSeconds)*time.Second)
		defer redisCache.Close()
		scheduleCache = redisCache
	}
	scheduleService := schedules.NewScheduleService(store, scheduleCache, schedules.WithLogger(logg.Named("reconcile")))

	if len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logg.Named("consumer"))
		defer consumer.Close()

		sender := notify.NewSender(logg.Named("notify"))
		go func() {
			if err := consumer.Consume(ctx, sender.Send); err != nil {
				logg.Error("consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logg.Warn("no kafka brokers configured, notifications disabled")
	}

	reconcileTicker := time.NewTicker(time.Duration(cfg.Worker.ReconcileIntervalMinutes) * time.Minute)
	defer reconcileTicker.Stop()

	for {
		select {
		case <-reconcileTicker.C:
			corrected, err := scheduleService.ReconcileAvailability(ctx)
			if err != nil {
				logg.Error("reconcile availability", zap.Error(err))
				continue
			}
			if corrected > 0 {
				logg.Info("reconciled availability", zap.Int("corrected", corrected))
			}
		case <-ctx.Done():
			logg.Info("shutting down worker")
			return
		}
	}
}
