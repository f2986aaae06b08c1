package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"gym-backend/internal/auth"
	"gym-backend/internal/cache"
	"gym-backend/internal/config"
	"gym-backend/internal/database"
	"gym-backend/internal/db"
	"gym-backend/internal/handlers"
	"gym-backend/internal/health"
	h "gym-backend/internal/http"
	"gym-backend/internal/middleware"
	"gym-backend/internal/repositories"
	"gym-backend/internal/services"
	"gym-backend/internal/storage"
	"gym-backend/internal/ws"
	"gym-backend/migrations"
)

func main() {
	cfg := config.Load()

	pool := db.Connect(cfg)
	defer pool.Close()

	if err := cache.Init(cfg); err != nil {
		log.Printf("[Cache] Redis unavailable, stats caching disabled: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	migrator := database.NewMigrator(pool, migrations.FS, ".")
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	planRepo := repositories.NewPlanRepository(pool)
	membershipRepo := repositories.NewMembershipRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)
	memberRecordRepo := repositories.NewMemberRecordRepository(pool)
	onlineTransactionRepo := repositories.NewOnlineTransactionRepository(pool)

	// Infrastructure
	jwtManager := auth.NewJWTManager(cfg)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo, cfg)
	corsMiddleware := middleware.NewCORS(cfg)
	healthChecker := health.NewHealthChecker(pool)
	hub := ws.NewHub()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Printf("[Storage] object storage unavailable, avatars disabled: %v", err)
		store = nil
	}

	// Services
	userService := services.NewUserService(userRepo, jwtManager)
	planService := services.NewPlanService(planRepo)
	membershipService := services.NewMembershipService(membershipRepo, planRepo)
	paymentService := services.NewPaymentService(paymentRepo, userRepo)
	syncService := services.NewSyncService(userRepo, paymentRepo, memberRecordRepo, hub, cfg.Sync.IntervalSeconds)
	memberRecordService := services.NewMemberRecordService(memberRecordRepo, userRepo, paymentRepo, syncService)
	totpService := services.NewTOTPService(userRepo)
	receiptService := services.NewReceiptService("")
	razorpayService := services.NewRazorpayService(
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret,
		onlineTransactionRepo, paymentRepo, userRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService, store)
	planHandler := handlers.NewPlanHandler(planService)
	membershipHandler := handlers.NewMembershipHandler(membershipService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	memberRecordHandler := handlers.NewMemberRecordHandler(memberRecordService, totpService, receiptService)
	razorpayHandler := handlers.NewRazorpayHandler(razorpayService)
	totpHandler := handlers.NewTOTPHandler(totpService, userService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	router := h.NewRouter(
		authHandler, userHandler, planHandler, membershipHandler, paymentHandler,
		memberRecordHandler, razorpayHandler, totpHandler, healthHandler,
		hub, authMiddleware,
	)

	// Background workers
	syncService.Start(ctx)
	services.NewSystemMonitor(15 * time.Second).Start(ctx)

	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("[Server] listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
