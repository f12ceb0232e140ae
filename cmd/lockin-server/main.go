package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/store"
	"github.com/existflow/lockin/server"
)

func main() {
	port := getEnv("PORT", "8080")

	logCfg := logger.DefaultConfig()
	logCfg.FilePath = os.Getenv("LOCKIN_LOG_FILE")
	logCfg.Console = true
	logCfg.Level = logger.ParseLevel(getEnv("LOCKIN_LOG_LEVEL", "INFO"))
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	cfg := server.DefaultConfig()
	cfg.APIKey = os.Getenv("LOCKIN_API_KEY")
	cfg.ExposeMagicTokens = os.Getenv("LOCKIN_DEV") == "true"
	if v := os.Getenv("LOCKIN_WRITE_RATE"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.WriteRate = r
		}
	}

	var (
		records  server.Records
		accounts server.Accounts
	)
	if os.Getenv("LOCKIN_MEMORY") == "true" {
		logger.Warn("Using in-memory storage; data is lost on exit")
		records = store.NewMemory(store.WithName("memory"))
		accounts = server.NewMemoryAccounts()
	} else {
		dbURL := getEnv("DATABASE_URL", "postgres://localhost:5432/lockin?sslmode=disable")
		pg, err := server.OpenPostgres(dbURL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}()
		records, accounts = pg, pg
	}

	srv := server.New(records, accounts, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", logger.Err(err))
		}
	}()

	log.Printf("LockIn server starting on :%s", port)
	if err := srv.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
