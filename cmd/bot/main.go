package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpdelivery "github.com/himanshu0o7/CryptoFuturesBot/internal/delivery/http"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/delivery/websocket"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/config"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/infrastructure/binance"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/infrastructure/db"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/infrastructure/fcm"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/repository"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/usecase"
)

func main() {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: Postgres when DATABASE_URL is set, memory otherwise.
	var portfolioRepo domain.PortfolioRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfigFromEnv())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		portfolioRepo = repository.NewPostgresPortfolioRepository(pool)
		log.Println("Using Postgres persistence")
	} else {
		portfolioRepo = repository.NewInMemoryPortfolioRepository()
		log.Println("DATABASE_URL not set, portfolio state is in-memory only")
	}

	// Alerts: FCM when credentials exist, plain log otherwise.
	tokenRepo := repository.NewTokenRepository()
	var notifier domain.Notifier = usecase.LogNotifier{}
	fcmClient, err := fcm.NewClient()
	if err != nil {
		log.Printf("FCM init failed, alerts go to the log only: %v", err)
	} else if fcmClient.IsEnabled() {
		notifier = usecase.NewAlertService(fcmClient, tokenRepo, 5*time.Minute)
	}

	// Exchange: market data is always available, order endpoints only with keys.
	marketClient := binance.NewClient("")
	var tradingClient *binance.TradingClient
	if cfg.BinanceAPIKey != "" && cfg.BinanceSecretKey != "" {
		tradingClient = binance.NewTradingClient(cfg.BinanceAPIKey, cfg.BinanceSecretKey, cfg.BinanceTestnet)
		if err := tradingClient.TestConnection(ctx); err != nil {
			log.Fatalf("Binance credential check failed: %v", err)
		}
		// Pin leverage explicitly so sizing never depends on whatever the
		// account happened to be set to.
		for _, sym := range cfg.Symbols {
			if err := tradingClient.SetLeverage(ctx, sym, cfg.Leverage); err != nil {
				log.Printf("Failed to set %dx leverage for %s: %v", cfg.Leverage, sym, err)
			}
		}
	} else if !cfg.DryRun {
		log.Fatal("Live mode requires BINANCE_API_KEY and BINANCE_SECRET_KEY")
	}
	exchange := binance.NewFutures(marketClient, tradingClient)

	// Core pipeline.
	portfolio, err := usecase.NewPortfolioManager(portfolioRepo, notifier, cfg.InitialCapital)
	if err != nil {
		log.Fatalf("Failed to initialize portfolio: %v", err)
	}
	riskEngine := usecase.NewRiskEngine(cfg.Risk)
	signalEngine := usecase.NewSignalEngine(
		usecase.NewMomentumStrategy(usecase.DefaultMomentumConfig()),
		usecase.NewMeanReversionStrategy(usecase.DefaultMeanReversionConfig()),
	)
	executor := usecase.NewOrderExecutor(exchange, notifier, cfg.Executor, cfg.DryRun)
	orchestrator := usecase.NewOrchestrator(
		cfg, exchange, exchange, signalEngine, riskEngine, executor, portfolio, notifier,
	)

	go orchestrator.Run(ctx)

	// Operator surface.
	portfolioHandler := httpdelivery.NewPortfolioHandler(portfolio, portfolioRepo, orchestrator)
	riskHandler := httpdelivery.NewRiskHandler(riskEngine)
	tokenHandler := httpdelivery.NewTokenHandler(tokenRepo)
	wsHandler := websocket.NewHandler(portfolio, 5*time.Second)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/portfolio", portfolioHandler.HandleState)
	mux.HandleFunc("/api/portfolio/trades", portfolioHandler.HandleTrades)
	mux.HandleFunc("/api/portfolio/stats", portfolioHandler.HandleStats)
	mux.HandleFunc("/api/positions/close", portfolioHandler.HandleClosePosition)
	mux.HandleFunc("/api/risk/settings", riskHandler.HandleSettings)
	mux.HandleFunc("/api/tokens/register", tokenHandler.HandleRegisterToken)
	mux.HandleFunc("/api/tokens/unregister", tokenHandler.HandleUnregisterToken)
	mux.HandleFunc("/ws", wsHandler.Handle)
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		strategies := make([]string, 0, len(signalEngine.Strategies()))
		for _, s := range signalEngine.Strategies() {
			strategies = append(strategies, s.Name())
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"dryRun":      cfg.DryRun,
			"symbols":     cfg.Symbols,
			"strategies":  strategies,
			"windowSizes": orchestrator.Windows(),
			"devices":     tokenRepo.GetTokenCount(),
		})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
}
