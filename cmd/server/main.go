package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/config"
	"github.com/mjaychoi/hc-violins/internal/handler"
	"github.com/mjaychoi/hc-violins/internal/httpserver"
	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/internal/service"
	"github.com/mjaychoi/hc-violins/pkg/db"
	"github.com/mjaychoi/hc-violins/pkg/logger"
	"github.com/mjaychoi/hc-violins/pkg/mq"
	"github.com/mjaychoi/hc-violins/pkg/outbox"
)

func main() {
	cfg := config.Load()

	log := logger.New()
	defer log.Sync()

	log.Info("Starting hc-violins server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	userRepo := repository.NewUserRepository(dbConn)
	instrumentRepo := repository.NewInstrumentRepository(dbConn, log)
	clientRepo := repository.NewClientRepository(dbConn, log)
	saleRepo := repository.NewSaleRepository(dbConn, instrumentRepo, log)
	taskRepo := repository.NewTaskRepository(dbConn, log)
	invoiceRepo := repository.NewInvoiceRepository(dbConn, log)
	templateRepo := repository.NewTemplateRepository(dbConn, log)
	settingsRepo := repository.NewSettingsRepository(dbConn, log)
	notifLogRepo := repository.NewNotificationLogRepository(dbConn, log)
	outboxRepo := outbox.NewRepository(dbConn)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, log)
	invoiceService := service.NewInvoiceService(invoiceRepo, clientRepo, outboxRepo, log)
	templateService := service.NewTemplateService(templateRepo, log)

	// Outbox dispatcher drains invoice.issued events written by the API.
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()
	go dispatcher.Start(dispatcherCtx)

	// HTTP Server
	h := httpserver.Handlers{
		Auth:        handler.NewAuthHandler(authService, log),
		Instruments: handler.NewInstrumentHandler(instrumentRepo, log),
		Clients:     handler.NewClientHandler(clientRepo, log),
		Sales:       handler.NewSaleHandler(saleRepo, log),
		Tasks:       handler.NewTaskHandler(taskRepo, log),
		Invoices:    handler.NewInvoiceHandler(invoiceService, invoiceRepo, log),
		Templates: handler.NewTemplateHandler(
			templateRepo, templateService, clientRepo, taskRepo, instrumentRepo, log),
		Settings: handler.NewSettingsHandler(settingsRepo, log),
		Admin:    handler.NewAdminHandler(outboxRepo, notifLogRepo, log),
	}
	router := httpserver.NewRouter(h, cfg.JWT.Secret, log, dbConn, publisher)

	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("hc-violins server is fully initialized and running",
		zap.String("http_port", port),
	)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down hc-violins server gracefully...")

	dispatcherCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	publisher.Close()
	dbConn.Close()

	log.Info("hc-violins server shutdown complete")
}
