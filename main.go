package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"club-live-engine/broadcast"
	"club-live-engine/cache"
	"club-live-engine/config"
	"club-live-engine/handlers"
	"club-live-engine/models"
	"club-live-engine/services"
	"club-live-engine/utils"
	"club-live-engine/workers"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseDriver == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		// single writer
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
		return db, nil
	}
	return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
}

func openCache(ctx context.Context, cfg config.Config) (cache.Store, error) {
	if cfg.RedisURL == "" {
		log.Println("⚠️  REDIS_URL not set, using in-process timer cache (single instance only)")
		return cache.NewMemoryStore(), nil
	}
	return cache.NewRedisStore(ctx, cfg.RedisURL)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	store, err := openCache(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect to cache:", err)
	}

	hub := broadcast.NewHub()

	chipService := services.NewChipService(db, services.NewDepositLedger(), hub)
	liveService := services.NewLiveStateService(db, store, hub, chipService)
	chipService.Stats = liveService
	seatingService := services.NewSeatingService(db, hub)

	var exporter services.Exporter
	if cfg.R2.Enabled() {
		uploader, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		exporter = uploader
	} else {
		log.Println("⚠️  R2 not configured, archived tournaments are torn down without export")
	}
	archiveService := services.NewArchiveService(db, store, exporter)

	signer := utils.NewSessionSigner(cfg.SessionSecret)

	tick := workers.NewTickScheduler(db, store, liveService, cfg.TickActiveInterval, cfg.TickIdleInterval)
	tick.Start(ctx)

	maintenance, err := services.StartMaintenanceScheduler(ctx, liveService, archiveService, cfg.ReconcileInterval, cfg.ArchiveInterval)
	if err != nil {
		log.Fatal("failed to start maintenance scheduler:", err)
	}

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	handlers.SetupLiveRoutes(app, &handlers.LiveHandler{
		Seating:  seatingService,
		Live:     liveService,
		Chips:    chipService,
		Archive:  archiveService,
		Sessions: signer,
		Hub:      hub,
	}, cfg.ServiceToken)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", broadcast.NewWSGateway(hub, signer, cfg.AllowedOrigins).HandleWebSocket)
	wsServer := &http.Server{Addr: cfg.WSAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()
	go func() {
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("WebSocket server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.HTTPAddr)
	log.Printf("✅ WebSocket gateway running on %s/ws", cfg.WSAddr)
	log.Printf("✅ Tick scheduler running (active %s, idle %s)", cfg.TickActiveInterval, cfg.TickIdleInterval)
	log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("WebSocket shutdown error: %v", err)
	}
	if err := maintenance.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	select {
	case <-tick.Done():
	case <-shutdownCtx.Done():
		log.Println("⚠️  Tick scheduler did not stop in time")
	}
	if err := store.Close(); err != nil {
		log.Printf("Cache close error: %v", err)
	}
	log.Println("👋 Engine stopped")
}
