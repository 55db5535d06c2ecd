package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/config"
	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/internal/service"
	"github.com/mjaychoi/hc-violins/pkg/circuitbreaker"
	"github.com/mjaychoi/hc-violins/pkg/db"
	"github.com/mjaychoi/hc-violins/pkg/logger"
	"github.com/mjaychoi/hc-violins/pkg/mq"
	"github.com/mjaychoi/hc-violins/pkg/redis"
	"github.com/mjaychoi/hc-violins/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.New()
	defer log.Sync()

	log.Info("Starting hc-violins notifier...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.Duration("run_interval", cfg.RunInterval()),
		zap.String("timezone", cfg.Notify.Timezone),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Redis-backed dedup: one digest per user per calendar day, with enough
	// TTL to outlive the day and any retries.
	rdb := redis.NewClient(cfg.Redis)
	defer rdb.Close()
	deduper := util.NewDeduper(rdb, 26*time.Hour, log)

	// Repositories
	settingsRepo := repository.NewSettingsRepository(dbConn, log)
	taskRepo := repository.NewTaskRepository(dbConn, log)

	// Sender: real SMTP when a relay is configured, log-only otherwise.
	var sender service.Sender
	if cfg.SMTP.Host != "" {
		sender = service.NewSMTPSender(cfg.SMTP, log)
	} else {
		log.Warn("No SMTP host configured, using log sender")
		sender = service.NewLogSender(log)
	}

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	notifier := service.NewNotifier(settingsRepo, taskRepo, sender, deduper, breaker, publisher, log)

	loc := cfg.Timezone()

	// Batch loop: run immediately on startup, then on every tick.
	loopCtx, loopCancel := context.WithCancel(context.Background())
	defer loopCancel()

	runOnce := func() {
		ctx, cancel := context.WithTimeout(loopCtx, 10*time.Minute)
		defer cancel()

		now := time.Now().In(loc)
		stats, err := notifier.Run(ctx, now)
		if err != nil {
			log.Error("Digest run failed", zap.Error(err))
		} else {
			log.Info("Digest run finished",
				zap.Int("sent", stats.Sent),
				zap.Int("failed", stats.Failed),
				zap.Int("skipped", stats.Skipped),
			)
		}

		if err := notifier.SweepOverdue(ctx, now); err != nil {
			log.Error("Overdue sweep failed", zap.Error(err))
		}
	}

	go func() {
		runOnce()

		ticker := time.NewTicker(cfg.RunInterval())
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				log.Info("Notifier loop stopped")
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()

	// Minimal HTTP server for health checks.
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()
		if err := dbConn.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})

	srv := &http.Server{Addr: ":8081", Handler: r}
	go func() {
		log.Info("Health server starting on :8081")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Health server failed", zap.Error(err))
		}
	}()

	log.Info("hc-violins notifier is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down hc-violins notifier gracefully...")

	loopCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health server shutdown error", zap.Error(err))
	}

	publisher.Close()
	dbConn.Close()

	log.Info("hc-violins notifier shutdown complete")
}
