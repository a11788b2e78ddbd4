package main

import (
	"context"
	"log"
	"os"
	"time"

	"uicraft/internal/api"
	"uicraft/internal/auth"
	"uicraft/internal/config"
	"uicraft/internal/redis"
	"uicraft/internal/service/ai"
	"uicraft/internal/service/generate"
	"uicraft/internal/service/studio"
	"uicraft/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("UICRAFT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("UICRAFT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// Cache is optional: the service runs without redis, just slower reads.
	cache, err := redis.NewRedisClient(cfg)
	if err != nil {
		log.Printf("redis unavailable, running without cache: %v", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	llm, err := ai.NewClient(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init completion client: %v", err)
	}

	store := studio.NewService(db, cache)
	authService := auth.NewService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	generator := generate.NewService(llm, store, time.Duration(cfg.Generation.TimeoutSeconds)*time.Second)
	handlers := api.NewHandler(store, authService, generator)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
