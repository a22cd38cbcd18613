package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adrata/backend/internal/application/services"
	"github.com/adrata/backend/internal/config"
	"github.com/adrata/backend/internal/infrastructure/database"
	"github.com/adrata/backend/internal/interfaces/rest"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/auth"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Must(cfg.Log)
	defer func() { _ = logger.Sync() }()

	auth.SetSecret(cfg.JWTSecret)
	if cfg.UsesDefaultSecret() {
		logger.Warn("⚠️ JWT_SECRET is not set; using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer conn.Close()
	logger.Info("✅ Database connection established", zap.String("host", cfg.Database.Host))

	svcMgr, err := services.NewServiceManager(conn.DB(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer svcMgr.Close()
	logger.Info("🔧 Service manager initialized")

	scheduler, err := svcMgr.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create enrichment scheduler", zap.Error(err))
	}
	scheduler.Start()

	gin.SetMode(gin.ReleaseMode)
	router := rest.NewRouter(rest.NewOpsHandlerFromManager(svcMgr, logger), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 Shutting down server...")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}
