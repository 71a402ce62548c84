package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fortuna/laurel/internal/api/rest"
	"github.com/fortuna/laurel/internal/api/websocket"
	"github.com/fortuna/laurel/internal/awards"
	"github.com/fortuna/laurel/internal/cache"
	"github.com/fortuna/laurel/internal/config"
	"github.com/fortuna/laurel/internal/logger"
	"github.com/fortuna/laurel/internal/publisher"
	"github.com/fortuna/laurel/internal/recompute"
	"github.com/fortuna/laurel/internal/scheduler"
	"github.com/fortuna/laurel/internal/service"
	"github.com/fortuna/laurel/internal/store"
	"github.com/fortuna/laurel/internal/store/repository"
)

const (
	serviceName    = "laurel"
	serviceVersion = "1.0.0"
)

const (
	redisAttempts   = 5
	redisRetryDelay = 2 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.Init(cfg.LogLevel, cfg.IsDevelopment())
	log.Infof("Starting %s v%s - Awards Service", serviceName, serviceVersion)

	db, err := store.NewDatabase(cfg.AtlasDSN, log)
	if err != nil {
		log.Fatalf("Failed to connect to Atlas database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsDir); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Info("✓ Database migrations applied")

	gameRepo := repository.NewGameRepository(db)
	playerRepo := repository.NewPlayerRepository(db)
	awardRepo := repository.NewAwardRepository(db)

	healthChecks := map[string]rest.HealthChecker{"database": db}

	// Redis is optional: without it listings are uncached and nothing is
	// published to the awards stream.
	redisCache := connectRedis(cfg, log)
	if redisCache != nil {
		defer redisCache.Close()
		healthChecks["redis"] = redisCache
	}

	wsServer := websocket.NewServer(log)

	notifiers := []awards.Notifier{wsServer.Hub()}
	if redisCache != nil {
		notifiers = append(notifiers, redisCache, publisher.NewRedisStreamPublisher(redisCache.Client()))
	}
	engine := awards.NewEngine(gameRepo, awardRepo, log, notifiers...)

	var awardService *service.AwardService
	if redisCache != nil {
		awardService = service.NewAwardService(awardRepo, playerRepo, engine, redisCache, log)
	} else {
		awardService = service.NewAwardService(awardRepo, playerRepo, engine, nil, log)
	}

	jobs := recompute.NewService(
		recompute.NewRepository(db),
		recompute.NewRunner(engine),
		cfg.JobPollInterval,
		cfg.JobHistoryLimit,
		log,
	)
	jobs.Start()
	log.Info("✓ Recalculation worker started")

	deps := rest.Dependencies{
		Awards:       awardService,
		Preview:      engine,
		Games:        service.NewGameService(db),
		Stats:        service.NewStatsService(db),
		Players:      service.NewPlayerService(db),
		Jobs:         jobs,
		HealthChecks: healthChecks,
	}

	var sched *scheduler.Orchestrator
	if cfg.EnableScheduler {
		schedConfig := scheduler.DefaultConfig()
		schedConfig.Schedule = cfg.AwardsSchedule
		schedConfig.SeasonOf = cfg.Season

		sched = scheduler.NewOrchestrator(jobs, schedConfig, log)
		if err := sched.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		deps.Schedule = sched
		log.WithField("schedule", cfg.AwardsSchedule).Info("✓ Scheduler started")
	} else {
		log.Warn("⚠️  Scheduler disabled, recalculations run on request only")
	}

	restServer := rest.NewServer(cfg.RESTPort, deps, log)
	go func() {
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		if err := wsServer.Start(cfg.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocket server error: %v", err)
		}
	}()

	log.Infof("✓ %s v%s started successfully", serviceName, serviceVersion)
	log.Infof("  REST API: http://0.0.0.0:%s", cfg.RESTPort)
	log.Infof("  WebSocket: ws://0.0.0.0:%s/ws/awards", cfg.WSPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warnf("Scheduler shutdown error: %v", err)
		}
	}
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("REST API server shutdown error: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("WebSocket server shutdown error: %v", err)
	}
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Recalculation worker shutdown error: %v", err)
	}

	log.Infof("%s stopped", serviceName)
}

// connectRedis retries the connection a few times and returns nil when Redis
// stays unreachable.
func connectRedis(cfg *config.Config, log *logrus.Logger) *cache.RedisCache {
	for i := 0; i < redisAttempts; i++ {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		if err == nil {
			log.Info("✓ Connected to Redis")
			return redisCache
		}

		if i < redisAttempts-1 {
			log.Warnf("Redis connection attempt %d/%d failed: %v (retrying in %v)", i+1, redisAttempts, err, redisRetryDelay)
			time.Sleep(redisRetryDelay)
			continue
		}
		log.Warnf("⚠️  Redis unavailable after %d attempts, continuing without cache: %v", redisAttempts, err)
	}
	return nil
}
