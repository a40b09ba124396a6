package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peerview/interview-service/internal/config"
	"github.com/peerview/interview-service/internal/gateway"
	"github.com/peerview/interview-service/internal/queue"
	"github.com/peerview/interview-service/internal/repository/postgres"
	"github.com/peerview/interview-service/internal/scheduler"
	"github.com/peerview/interview-service/internal/service"
	myhttp "github.com/peerview/interview-service/internal/transport/http"
	"github.com/peerview/interview-service/pkg/logger/sl"
	"github.com/peerview/interview-service/pkg/logger/slogpretty"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting interview-service", slog.String("env", cfg.Env))

	errChan := make(chan error, 1)

	db, err := postgres.NewDB(cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to init db: %v", err)
	}
	defer func() {
		if err := db.DB().Close(); err != nil {
			log.Error("db close failed", sl.Err(err))
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr: net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("redis close failed", sl.Err(err))
		}
	}()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %v", err)
	}

	requestRepo := postgres.NewRequestRepository(db.DB(), log)
	interviewRepo := postgres.NewInterviewRepository(db.DB(), log)
	skillRepo := postgres.NewSkillRepository(db.DB(), log)
	historyRepo := postgres.NewHistoryRepository(db.DB(), log)
	userRepo := postgres.NewUserRepository(db.DB(), log)
	notificationRepo := postgres.NewNotificationRepository(db.DB(), log)

	meetingProvider, err := gateway.NewMeetingProvider(cfg.Meeting)
	if err != nil {
		return fmt.Errorf("failed to init meeting provider: %v", err)
	}

	notificationGateway := gateway.NewStoreNotificationGateway(notificationRepo, log)
	emailGateway := gateway.NewResendEmailGateway(cfg.Email, log)

	matchingService := service.NewMatchingService(db.DB(), log, requestRepo)
	lifecycleService := service.NewLifecycleService(
		db.DB(), db.DB(), log,
		requestRepo, interviewRepo, skillRepo, historyRepo, userRepo,
		matchingService, notificationGateway, emailGateway, meetingProvider,
	)
	metricsService := service.NewMetricsService(
		db.DB(), db.DB(), log,
		interviewRepo, skillRepo, historyRepo, userRepo,
	)
	publisher := queue.NewRedisPublisher(redisClient, cfg.Redis.RequestsChannel)
	requestService := service.NewRequestService(
		db.DB(), log,
		requestRepo, skillRepo, matchingService, lifecycleService, publisher,
	)
	notificationService := service.NewNotificationService(log, notificationRepo)

	consumer := queue.NewConsumer(log, redisClient, cfg.Redis.PairsChannel, db.DB(), requestRepo, lifecycleService)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			errChan <- fmt.Errorf("queue consumer error: %v", err)
		}
	}()

	poller := scheduler.NewFeedbackPoller(log, interviewRepo, notificationGateway, cfg.Poller.Schedule, cfg.Poller.Window)
	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start feedback poller: %v", err)
	}
	defer poller.Stop()

	srv := myhttp.NewServer(log, requestService, lifecycleService, metricsService, notificationService)
	httpServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:     srv.Routes(),
		ReadTimeout: cfg.Server.Timeout,
	}

	go startServer(log, httpServer, errChan)

	select {
	case err := <-errChan:
		return err

	case <-ctx.Done():
		log.Info("stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shuting down http server: %v", err)
	}

	return nil
}

func startServer(log *slog.Logger, httpServer *http.Server, errChan chan error) {
	log.Info("service started", slog.String("addr", httpServer.Addr))

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errChan <- fmt.Errorf("error listening and serving: %v", err)
	}
}
