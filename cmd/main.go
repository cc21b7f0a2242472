package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"vidgogo/backend/internal/alerts"
	"vidgogo/backend/internal/api/handler"
	"vidgogo/backend/internal/config"
	"vidgogo/backend/internal/models"
	"vidgogo/backend/internal/pairhub"
	"vidgogo/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Migrations
	if err := db.AutoMigrate(&models.Session{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting VidGoGo signaling server...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 1. Dependencies
	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	// 2. Pair hub (registry + matcher + sessions + relays)
	hub := pairhub.NewManagerService(s, cfg)

	// 3. Optional ops alert bot
	if cfg.TelegramBotToken != "" && cfg.TelegramAdminChatID != 0 {
		notifier, err := alerts.NewNotifier(cfg.TelegramBotToken, cfg.TelegramAdminChatID, hub)
		if err != nil {
			log.Fatalf("Failed to start alert bot: %v", err)
		}
		hub.SetAlerter(notifier)
		go notifier.Run()
		notifier.Alertf("signaling server starting on %s", cfg.ListenAddr)
	}

	// 4. Main goroutines
	go hub.Run()
	go hub.Matcher.Run()

	// 5. Gin routing
	r := gin.Default()
	h := handler.NewHandler(hub, s, cfg.JWTSecret)

	r.GET("/anonid", h.GetAnonID)      // JWT for an anonymous ID
	r.GET("/ws", h.ServeWebSocket)     // WebSocket upgrade
	r.GET("/healthz", h.Healthz)       // liveness + occupancy

	// WebSocket connections are long-lived, so no global read/write
	// timeouts here; the hub's ping/pong deadlines handle dead peers.
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
