package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"racebook/internal/auth"
	"racebook/internal/blockchain"
	"racebook/internal/config"
	"racebook/internal/database"
	"racebook/internal/handlers"
	"racebook/internal/jobs"
	"racebook/internal/repository"
	"racebook/internal/services"
	"racebook/internal/wallet"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Solana client (treasury key is optional; payouts and
	// collections are refused without it, deposits still work)
	solanaClient, err := blockchain.NewSolanaClient(cfg.Solana.Network, cfg.Solana.TreasuryPrivateKey)
	if err != nil {
		log.Fatalf("Failed to initialize Solana client: %v", err)
	}

	// A malformed operations wallet would only surface on the first
	// collection sweep; refuse to start instead
	if addr := cfg.Solana.OperationsWalletAddress; addr != "" && !solanaClient.ValidateWalletAddress(addr) {
		log.Fatalf("Invalid OPERATIONS_WALLET_ADDRESS: %s", addr)
	}

	keyStore := wallet.NewKeyStore(cfg.App.WalletPassphrase)

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Record the active betting parameters so settled races can be
	// audited against the config they ran under
	recordSettings(repo, cfg)

	// Initialize services
	limits := services.WagerLimits{
		Min: cfg.Betting.MinBetSOL,
		Max: cfg.Betting.MaxBetSOL,
	}
	raceService := services.NewRaceService(repo)
	depositService := services.NewDepositService(repo, keyStore, cfg.Betting.DepositExpiryMinutes)
	settlementService := services.NewSettlementService(repo, cfg.Betting.HouseEdgePercent)
	payoutService := services.NewPayoutService(
		repo,
		solanaClient,
		keyStore,
		cfg.Solana.OperationsWalletAddress,
		cfg.Solana.OperationsSplitPercent,
	)

	// Initialize the reconciler and warm its dedup cache from the
	// signatures consumed before the last restart
	signatures := services.NewSignatureSet(cfg.Betting.SignatureCacheSize)
	reconciler := services.NewReconciler(repo, solanaClient, signatures, limits)
	if err := reconciler.WarmSignatures(context.Background()); err != nil {
		log.Fatalf("Failed to warm signature cache: %v", err)
	}

	// Start the ledger watcher job
	watcher := jobs.NewLedgerWatcher(reconciler, time.Duration(cfg.Betting.PollIntervalSeconds)*time.Second)
	go watcher.Start()
	log.Printf("Ledger watcher started (poll interval %ds)", cfg.Betting.PollIntervalSeconds)

	// Drain reconciliation events for the operations log
	go consumeEvents(reconciler.Events())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg.App.AdminPassword)
	raceHandler := handlers.NewRaceHandler(raceService)
	wagerHandler := handlers.NewWagerHandler(depositService)
	adminHandler := handlers.NewAdminHandler(settlementService, payoutService, repo)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"network":  cfg.Solana.Network,
			"treasury": solanaClient.TreasuryAddress(),
			"time":     time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	router.POST("/auth/admin/login", authHandler.AdminLogin)

	// Public API routes
	api := router.Group("/api")
	{
		api.GET("/races", raceHandler.GetRaces)
		api.GET("/races/:id", raceHandler.GetRace)
		api.POST("/wagers", wagerHandler.PlaceWager)
		api.GET("/wagers/:id", wagerHandler.GetWagerStatus)
	}

	// Admin routes (protected)
	admin := router.Group("/api/admin")
	admin.Use(auth.AdminMiddleware())
	{
		admin.POST("/races", raceHandler.CreateRace)
		admin.POST("/races/:id/open", raceHandler.OpenRace)
		admin.POST("/races/:id/close", raceHandler.CloseRace)
		admin.POST("/races/:id/settle", adminHandler.SettleRace)

		admin.POST("/payouts/process", adminHandler.ProcessPayouts)
		admin.POST("/refunds/process", adminHandler.ProcessRefunds)
		admin.POST("/deposits/collect", adminHandler.CollectDeposits)
		admin.GET("/payouts", adminHandler.ListPayouts)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	watcher.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

func recordSettings(repo *repository.Repository, cfg *config.Config) {
	ctx := context.Background()
	settings := map[string]string{
		"min_bet_sol":        cfg.Betting.MinBetSOL.String(),
		"max_bet_sol":        cfg.Betting.MaxBetSOL.String(),
		"house_edge_percent": strconv.FormatFloat(cfg.Betting.HouseEdgePercent, 'f', -1, 64),
		"solana_network":     cfg.Solana.Network,
	}
	for key, value := range settings {
		if err := repo.UpsertSetting(ctx, key, value); err != nil {
			log.Printf("Warning: failed to record setting %s: %v", key, err)
		}
	}
}

func consumeEvents(events <-chan services.Event) {
	for event := range events {
		log.Printf("[Event] %s deposit=%s race=%s amount=%s",
			event.Type, event.DepositAddressID, event.RaceID, event.Amount)
	}
}
