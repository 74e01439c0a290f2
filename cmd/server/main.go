package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"advisory/internal/cache"
	"advisory/internal/config"
	cronrunner "advisory/internal/cron"
	"advisory/internal/db"
	"advisory/internal/handler"
	"advisory/internal/ledger"
	"advisory/internal/logger"
	"advisory/internal/notify"
	gormrepository "advisory/internal/repository/gorm"
	"advisory/internal/returns"
	"advisory/internal/service"
)

func main() {
	cfgPath := os.Getenv("ADV_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("ADV_ENV_ONLY"); envOnlyRaw != "" {
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

	store := gormrepository.New(dbConn.Gorm)

	var analyticsCache *cache.Cache
	if cfg.Redis.Enabled {
		analyticsCache, err = cache.New(cfg.Redis.URL, logger)
		if err != nil {
			logger.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			defer analyticsCache.Close()
			logger.Info("redis connected")
		}
	}

	notifier := &notify.Dispatcher{Repo: store, Logger: logger}

	subsLedger := &ledger.SubscriptionLedger{
		Repo:     store,
		Notifier: notifier,
		Logger:   logger,
		Retries:  cfg.Ledger.SaveRetries,
		Timeout:  cfg.Ledger.CallTimeout,
	}
	investLedger := &ledger.InvestmentLedger{
		Repo:     store,
		Notifier: notifier,
		Logger:   logger,
		Retries:  cfg.Ledger.SaveRetries,
		Timeout:  cfg.Ledger.CallTimeout,
	}

	aggregator := &returns.Aggregator{
		Source: returns.NewUniformSource(
			decimal.NewFromFloat(cfg.Returns.MovementMin),
			decimal.NewFromFloat(cfg.Returns.MovementMax),
			time.Now().UnixNano(),
		),
	}

	planSvc := &service.PlanService{
		Repo:     store,
		Subs:     subsLedger,
		Notifier: notifier,
		Logger:   logger,
		Retries:  cfg.Ledger.SaveRetries,
		Timeout:  cfg.Ledger.CallTimeout,
	}
	analyticsSvc := &service.AnalyticsService{
		Repo:   store,
		Agg:    aggregator,
		Cache:  analyticsCache,
		Logger: logger,
		TTL:    cfg.Analytics.CacheTTL,
	}
	reconcileSvc := &service.ReconcileService{
		Repo:    store,
		Logger:  logger,
		Window:  cfg.Reconcile.Window,
		Retries: cfg.Ledger.SaveRetries,
		Timeout: cfg.Ledger.CallTimeout,
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
	advisorHandler := &handler.AdvisorHandler{
		Repo:      store,
		Plans:     planSvc,
		Analytics: analyticsSvc,
	}
	advisorHandler.Register(engine)
	clientHandler := &handler.ClientHandler{
		Repo:      store,
		Subs:      subsLedger,
		Invest:    investLedger,
		Plans:     planSvc,
		Analytics: analyticsSvc,
	}
	clientHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled && cfg.Reconcile.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add(cfg.Cron.Reconcile, func(ctx context.Context) {
			if err := reconcileSvc.RunOnce(ctx); err != nil {
				logger.Warn("cron reconcile failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register reconcile failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
