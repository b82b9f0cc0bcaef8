package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/config"
	"github.com/peerhub/peerhub/internal/middleware"
	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/internal/utils"
	"github.com/peerhub/peerhub/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("loading configuration: %v", err)
	}

	logger.Init(cfg.Log.Level)
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("initializing database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("migrating database: %v", err)
	}
	db := models.GetDB()

	ctx := context.Background()
	app, err := buildApplication(ctx, cfg, db)
	if err != nil {
		logger.Fatalf("building application: %v", err)
	}
	defer app.shutdown()

	// Bootstrap admin for fresh installs. The password comes from the
	// environment so it never lands in the config file.
	adminUser := os.Getenv("ADMIN_USERNAME")
	adminPass := os.Getenv("ADMIN_PASSWORD")
	if adminUser != "" && adminPass != "" {
		if err := app.auth.EnsureAdmin(adminUser, adminPass); err != nil {
			logger.Fatalf("creating bootstrap admin: %v", err)
		}
	}

	if app.worker != nil {
		if err := app.worker.Start(); err != nil {
			logger.Fatalf("starting task worker: %v", err)
		}
		logger.Info().Msg("task worker started")
	}
	services.StartLogCleanupScheduler(app.logs, cfg.Log.RetentionDays)

	gin.SetMode(ginMode(cfg.Server.Mode))
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery(), middleware.CORS())
	registerRoutes(r, app)

	server := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}

func ginMode(mode string) string {
	switch mode {
	case "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
