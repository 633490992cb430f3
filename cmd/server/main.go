package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"capbudget/internal/client/ibm"
	"capbudget/internal/config"
	cronrunner "capbudget/internal/cron"
	"capbudget/internal/db"
	"capbudget/internal/handler"
	"capbudget/internal/logger"
	gormrepository "capbudget/internal/repository/gorm"
	"capbudget/internal/service"

	_ "capbudget/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("CB_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	tokens := ibm.NewTokenCache(cfg.Auth)
	tokens.RegisterService(ibm.ServiceCOS, cfg.COS.APIKey)
	tokens.RegisterService(ibm.ServiceWatsonML, cfg.Watson.APIKey)
	objectStore := ibm.NewObjectStore(&http.Client{Timeout: cfg.COS.Timeout}, cfg.COS, tokens)
	jobRunner := ibm.NewJobRunner(&http.Client{Timeout: cfg.Watson.Timeout}, cfg.Watson, tokens)

	store := gormrepository.New(dbConn.Gorm)
	assembler := &service.InputAssembler{Repo: store, Logger: logger}
	results := &service.ResultsProcessor{Repo: store, Logger: logger}
	orchestrator := &service.Orchestrator{
		Repo:      store,
		Assembler: assembler,
		Results:   results,
		Store:     objectStore,
		Jobs:      jobRunner,
		Logger:    logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	optimizationHandler := &handler.OptimizationHandler{
		Repo:         store,
		Orchestrator: orchestrator,
		Logger:       logger,
	}
	optimizationHandler.Register(engine)
	storageHandler := &handler.StorageHandler{Store: objectStore}
	storageHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := &service.StatusPoller{
		Repo:         store,
		Orchestrator: orchestrator,
		Logger:       logger,
		Config:       cfg.Poller,
	}
	if cfg.Poller.Enabled {
		if spec := strings.TrimSpace(cfg.Cron.StatusSweep); spec != "" {
			cronRunner := cronrunner.New(logger, ctx)
			if _, err := cronRunner.Add(spec, poller.SweepOnce); err != nil {
				logger.Fatal("cron register status sweep failed", zap.Error(err))
			}
			cronRunner.Start()
			defer cronRunner.Stop()
		} else {
			go poller.Run(ctx)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
