package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"presstrack/internal/api/handlers"
	"presstrack/internal/api/middleware"
	"presstrack/internal/config"
	"presstrack/internal/db"
	"presstrack/internal/jobs"
	"presstrack/internal/recordstore"
	"presstrack/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	loc, err := time.LoadLocation(cfg.Workflow.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	if err := db.Init(db.Config{Path: cfg.Database.Path}); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	sender := webhook.NewSender(webhook.Config{
		RetryCount:  cfg.Webhooks.MaxRetries,
		RetryDelay:  cfg.Webhooks.RetryDelay,
		Timeout:     cfg.Webhooks.Timeout,
		WorkerCount: cfg.Webhooks.WorkerCount,
		QueueSize:   cfg.Webhooks.QueueSize,
	}, logger.Named("webhook"))
	sender.Start()
	defer sender.Stop()

	store := recordstore.NewClient(recordstore.Config{
		BaseURL: cfg.Store.BaseURL,
		BaseID:  cfg.Store.BaseID,
		TableID: cfg.Store.TableID,
		Token:   cfg.Store.Token,
		Timeout: cfg.Store.Timeout,
	})

	service := jobs.NewService(store, jobs.Config{
		View:              cfg.Store.ViewID,
		DefaultRegion:     cfg.Workflow.DefaultRegion,
		StrictTransitions: cfg.Workflow.StrictTransitions,
	}, loc, sender, logger.Named("jobs"))

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.Named("http")))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	handlers.NewJobHandler(service).RegisterRoutes(api)
	handlers.NewWebhookHandler().RegisterRoutes(api)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "text" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
