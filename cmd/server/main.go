package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hlgate/hlgate/internal/config"
	"github.com/hlgate/hlgate/internal/exchange"
	"github.com/hlgate/hlgate/internal/handler"
	"github.com/hlgate/hlgate/internal/market"
	"github.com/hlgate/hlgate/internal/middleware"
	"github.com/hlgate/hlgate/internal/pkg/logger"
	"github.com/hlgate/hlgate/internal/repository"
	"github.com/hlgate/hlgate/internal/service"
	"github.com/hlgate/hlgate/internal/vault"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithOptions(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})

	var v *vault.Vault
	if cfg.Vault.ServerKey != "" {
		if v, err = vault.New(cfg.Vault.ServerKey); err != nil {
			log.Fatalf("Failed to initialize vault: %v", err)
		}
	}

	// 2. Initialize Persistence
	// Accounts and audit: Postgres > local badger / memory.
	var (
		accountRepo service.AccountRepoCRUD
		auditRepo   service.AuditRepo
		riskRepo    service.UsageRepo
		idemStore   middleware.IdempotencyStore
		cleanups    []func()
	)
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		if err := repository.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Connected to PostgreSQL")
		accountRepo = repository.NewPostgresAccountRepo(db)
		pgAudit := repository.NewPostgresAuditRepo(db)
		pgRisk := repository.NewPostgresRiskRepo(db)
		auditRepo = pgAudit
		riskRepo = pgRisk
		retention := time.Duration(cfg.Database.AuditRetentionDays) * 24 * time.Hour
		go runCleanup(retention, pgAudit.Cleanup, pgRisk.Cleanup)
	} else {
		store, err := repository.OpenBadgerStore(repository.BadgerOptions{Path: cfg.Secrets.Path})
		if err != nil {
			log.Fatalf("Failed to open secret store: %v", err)
		}
		logger.Info("Using local account store", "path", cfg.Secrets.Path)
		accountRepo = store
		cleanups = append(cleanups, func() { _ = store.Close() })
	}

	// Daily usage and idempotency: Redis > Postgres > memory.
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("Connected to Redis")
			riskRepo = repository.NewRedisUsageRepo(redisClient)
			idemStore = repository.NewRedisIdempotencyStore(redisClient, 24*time.Hour)
			if auditRepo == nil {
				auditRepo = repository.NewRedisAuditRepo(redisClient, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
			}
			cleanups = append(cleanups, func() { _ = redisClient.Close() })
		} else {
			logger.Error("Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if riskRepo == nil {
		riskRepo = service.NewRiskUsageStore()
	}
	if idemStore == nil {
		idemStore = middleware.NewInMemIdempotencyStore(24 * time.Hour)
	}

	// 3. Initialize Core Services
	opts := service.TradingOptions{
		Mainnet:           cfg.Exchange.Mainnet(),
		SignatureChainID:  cfg.Exchange.SignatureChainID,
		MarketSlippage:    cfg.Trading.MarketSlippage,
		WithdrawFeeBuffer: cfg.Trading.WithdrawFeeBuffer,
		SettlementDelay:   cfg.Trading.SettlementDelay,
	}
	var midStream *market.MidStream
	if cfg.Exchange.StreamMids {
		midStream = market.NewMidStream(cfg.Exchange.WSURL, market.DefaultMaxAge)
		midStream.Start()
		opts.Mids = midStream
	}

	gw := exchange.NewHTTPGateway(cfg.Exchange.BaseURL, cfg.Exchange.Timeout)
	accountManager := service.NewAccountManager(cfg, gw, opts, v, accountRepo)
	preloadAccounts(accountRepo, accountManager)

	riskEngine := service.NewRiskEngine(riskRepo)
	gatewaySvc := service.NewGatewayService(accountManager, riskEngine)
	accountSvc := service.NewAccountService(accountManager, accountRepo, v)

	auditSvc, err := service.NewAuditService("./logs", auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	// 4. Initialize Handlers
	auditHandler := handler.NewAuditHandler(auditSvc)

	// 5. Setup Router
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(auditSvc))
	r.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "hlgate",
			"network": cfg.Exchange.Network,
			"stream":  midStream != nil && midStream.Connected(),
		})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	handler.NewAdminHandler(accountSvc, gatewaySvc, auditHandler).Mount(v1, cfg)

	api := v1.Group("")
	api.Use(middleware.AuthMiddleware(cfg, accountManager))
	api.Use(middleware.RateLimitMiddleware(accountManager))
	api.Use(middleware.IdempotencyMiddleware(idemStore))
	{
		handler.NewOrderHandler(gatewaySvc).Mount(api)
		handler.NewAccountHandler(gatewaySvc).Mount(api)
		handler.NewFundsHandler(gatewaySvc).Mount(api)
		handler.NewTradeHandler(gatewaySvc).Mount(api)
		api.GET("/audit", auditHandler.List)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("hlgate started", "port", cfg.Server.Port, "network", cfg.Exchange.Network, "read_only", cfg.Server.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if midStream != nil {
		midStream.Stop()
	}
	auditSvc.Close()
	for _, fn := range cleanups {
		fn()
	}
	logger.Info("Server exiting")
}

func preloadAccounts(repo service.AccountRepoCRUD, am *service.AccountManager) {
	if repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	accounts, err := repo.List(ctx, 500, 0)
	if err != nil {
		logger.Error("Failed to preload accounts", "error", err)
		return
	}
	for _, a := range accounts {
		am.Register(a)
	}
	logger.Info("Accounts loaded", "count", len(accounts))
}

func runCleanup(retention time.Duration, jobs ...func(ctx context.Context, olderThan time.Duration) error) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		for _, job := range jobs {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err := job(ctx, retention); err != nil {
				logger.Warn("Retention cleanup failed", "error", err)
			}
			cancel()
		}
	}
}
