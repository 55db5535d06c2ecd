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
	"github.com/mjaychoi/hc-violins/internal/mqhandler"
	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/pkg/db"
	"github.com/mjaychoi/hc-violins/pkg/logger"
	"github.com/mjaychoi/hc-violins/pkg/mq"
	"github.com/mjaychoi/hc-violins/pkg/redis"
	"github.com/mjaychoi/hc-violins/pkg/util"
)

// maxRetries bounds redeliveries per message before it is parked on the DLQ.
const maxRetries = 5

func main() {
	cfg := config.Load()

	log := logger.New()
	defer log.Sync()

	log.Info("Starting hc-violins worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	notifLogRepo := repository.NewNotificationLogRepository(dbConn, log)

	// Redis-backed retry counting plus a DLQ publisher keep poison messages
	// from cycling through the queues forever.
	rdb := redis.NewClient(cfg.Redis)
	defer rdb.Close()
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	dlqPublisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init DLQ publisher", zap.Error(err))
	}
	defer dlqPublisher.Close()

	digestSentHandler := mqhandler.NewDigestSentHandler(notifLogRepo, log)
	invoiceIssuedHandler := mqhandler.NewInvoiceIssuedHandler(notifLogRepo, log)
	taskOverdueHandler := mqhandler.NewTaskOverdueHandler(notifLogRepo, log)

	// MQ Consumer for digest.sent
	log.Info("Initializing MQ consumer for digest.sent...",
		zap.String("queue", "digest.sent.q"),
		zap.String("routing_key", mq.RoutingKeyDigestSent),
	)
	digestConsumer, err := mq.NewConsumer(cfg.MQ.URL, "digest.sent.q", mq.RoutingKeyDigestSent, log)
	if err != nil {
		log.Fatal("Failed to init digest.sent consumer", zap.Error(err))
	}
	defer digestConsumer.Close()
	digestConsumer.SetHandler(digestSentHandler.Handle)
	digestConsumer.SetRetryPolicy(retryCounter, dlqPublisher, maxRetries)
	go func() {
		if err := digestConsumer.StartConsuming(); err != nil {
			log.Fatal("digest.sent consumer failed", zap.Error(err))
		}
	}()

	// MQ Consumer for invoice.issued
	log.Info("Initializing MQ consumer for invoice.issued...",
		zap.String("queue", "invoice.issued.q"),
		zap.String("routing_key", mq.RoutingKeyInvoiceIssued),
	)
	invoiceConsumer, err := mq.NewConsumer(cfg.MQ.URL, "invoice.issued.q", mq.RoutingKeyInvoiceIssued, log)
	if err != nil {
		log.Fatal("Failed to init invoice.issued consumer", zap.Error(err))
	}
	defer invoiceConsumer.Close()
	invoiceConsumer.SetHandler(invoiceIssuedHandler.Handle)
	invoiceConsumer.SetRetryPolicy(retryCounter, dlqPublisher, maxRetries)
	go func() {
		if err := invoiceConsumer.StartConsuming(); err != nil {
			log.Fatal("invoice.issued consumer failed", zap.Error(err))
		}
	}()

	// MQ Consumer for task.overdue
	log.Info("Initializing MQ consumer for task.overdue...",
		zap.String("queue", "task.overdue.q"),
		zap.String("routing_key", mq.RoutingKeyTaskOverdue),
	)
	overdueConsumer, err := mq.NewConsumer(cfg.MQ.URL, "task.overdue.q", mq.RoutingKeyTaskOverdue, log)
	if err != nil {
		log.Fatal("Failed to init task.overdue consumer", zap.Error(err))
	}
	defer overdueConsumer.Close()
	overdueConsumer.SetHandler(taskOverdueHandler.Handle)
	overdueConsumer.SetRetryPolicy(retryCounter, dlqPublisher, maxRetries)
	go func() {
		if err := overdueConsumer.StartConsuming(); err != nil {
			log.Fatal("task.overdue consumer failed", zap.Error(err))
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
		if !digestConsumer.IsConnected() || !invoiceConsumer.IsConnected() || !overdueConsumer.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})

	srv := &http.Server{Addr: ":8082", Handler: r}
	go func() {
		log.Info("Health server starting on :8082")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Health server failed", zap.Error(err))
		}
	}()

	log.Info("hc-violins worker is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down hc-violins worker gracefully...")

	digestConsumer.Stop()
	invoiceConsumer.Stop()
	overdueConsumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health server shutdown error", zap.Error(err))
	}

	dbConn.Close()

	log.Info("hc-violins worker shutdown complete")
}
