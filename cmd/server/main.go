package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tallysplit/tally/internal/auth"
	"github.com/tallysplit/tally/internal/extract"
	"github.com/tallysplit/tally/internal/server"
	"github.com/tallysplit/tally/internal/service"
	"github.com/tallysplit/tally/internal/storage/sqlite"
	"github.com/tallysplit/tally/internal/translate"
	"github.com/tallysplit/tally/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// Local development config; no-op when the file is absent.
	_ = godotenv.Load()

	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/tally.db")
	port := getEnv("PORT", "8080")
	tokenSecret := os.Getenv("TOKEN_SECRET")
	if tokenSecret == "" {
		slog.Error("TOKEN_SECRET is required")
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	tokens := auth.NewTokenManager(tokenSecret, 24*time.Hour)
	sessions := service.NewSessionService(store, tokens, translate.NewClient())

	router := server.NewRouter(sessions, tokens, extract.NewClient())

	// h2c allows HTTP/2 without TLS for clients that want multiplexed
	// polling of session state.
	handler := h2c.NewHandler(router, &http2.Server{})

	addr := fmt.Sprintf(":%s", port)
	slog.Info("Server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
