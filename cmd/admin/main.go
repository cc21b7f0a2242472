package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"vidgogo/backend/internal/config"
	"vidgogo/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	storageSvc := storage.NewStorageService(db, rdb)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <ban|unban|sessions> [args]")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "ban":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin ban <anon_id> [duration_in_hours]")
			os.Exit(1)
		}
		anonID := os.Args[2]
		var ttl time.Duration
		if len(os.Args) > 3 {
			hours, err := strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Println("Invalid duration. Please provide an integer.")
				os.Exit(1)
			}
			ttl = time.Duration(hours) * time.Hour
		}
		if err := storageSvc.BanUser(anonID, ttl); err != nil {
			log.Fatalf("Error banning user: %v", err)
		}
		fmt.Printf("User %s has been banned.\n", anonID)

	case "unban":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unban <anon_id>")
			os.Exit(1)
		}
		anonID := os.Args[2]
		if err := storageSvc.UnbanUser(anonID); err != nil {
			log.Fatalf("Error unbanning user: %v", err)
		}
		fmt.Printf("User %s has been unbanned.\n", anonID)

	case "sessions":
		limit := 20
		if len(os.Args) > 2 {
			if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
				limit = n
			}
		}
		sessions, err := storageSvc.GetRecentSessions(limit)
		if err != nil {
			log.Fatalf("Error listing sessions: %v", err)
		}
		for _, sess := range sessions {
			fmt.Printf("%s  %-11s  %s <-> %s  started=%s  reason=%s\n",
				sess.SessionID, sess.State, sess.User1ID, sess.User2ID,
				sess.StartedAt.Format(time.RFC3339), sess.EndReason)
		}

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}
