package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/config"
	"github.com/djibrilmaiga/eduka-backend/internal/cache"
	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/internal/gateway"
	"github.com/djibrilmaiga/eduka-backend/internal/handler"
	"github.com/djibrilmaiga/eduka-backend/internal/repository"
	"github.com/djibrilmaiga/eduka-backend/internal/router"
	"github.com/djibrilmaiga/eduka-backend/internal/usecase"
	"github.com/djibrilmaiga/eduka-backend/pkg/id"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting sponsorship ledger service")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	// Connect to database
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("connected to database",
		zap.String("database", cfg.Database.DBName))

	// Connect to redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Initialize repositories
	paymentRepo := repository.NewPaymentRepository(dbPool)
	sponsorshipRepo := repository.NewSponsorshipRepository(dbPool)
	balanceRepo := repository.NewBalanceRepository(dbPool)
	transferRepo := repository.NewTransferRepository(dbPool)
	txm := repository.NewTxManager(dbPool)

	// Initialize gateway adapters
	cardGW := gateway.NewCardGateway(cfg.Card)
	registry := gateway.NewRegistry()
	registry.Register(domain.MethodCard, cardGW)
	registry.Register(domain.MethodPayPal, gateway.NewPayPalGateway(cfg.PayPal))
	registry.Register(domain.MethodOrangeMoney, gateway.NewOrangeMoneyGateway(cfg.OrangeMoney))
	registry.Register(domain.MethodMoovMoney, gateway.NewMoovMoneyGateway(cfg.MoovMoney))
	registry.Register(domain.MethodWave, gateway.NewWaveGateway(cfg.Wave))

	// Initialize usecases
	refs := id.NewGenerator()
	balanceCache := cache.NewBalanceCache(rdb, logger)
	ledger := usecase.NewLedger(balanceRepo, balanceCache, logger)

	paymentUC := usecase.NewPaymentUsecase(
		paymentRepo,
		sponsorshipRepo,
		balanceRepo,
		ledger,
		txm,
		registry,
		refs,
		cfg.BaseCallbackURL,
		logger,
	)

	callbackUC := usecase.NewCallbackUsecase(
		paymentRepo,
		sponsorshipRepo,
		ledger,
		txm,
		logger,
	)

	transferUC := usecase.NewTransferUsecase(
		transferRepo,
		balanceRepo,
		sponsorshipRepo,
		ledger,
		txm,
		refs,
		logger,
	)

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(paymentUC, ledger, logger)
	callbackHandler := handler.NewCallbackHandler(callbackUC, registry, cardGW, logger)
	transferHandler := handler.NewTransferHandler(transferUC, logger)

	// Setup routes
	r := router.SetupRoutes(paymentHandler, callbackHandler, transferHandler, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("sponsorship ledger service started successfully",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
