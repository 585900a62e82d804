/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the SkillSwap booking engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and SKILLSWAP_* environment variables
  2. Apply command-line flag overrides
  3. Initialize SQLite store
  4. Wire hub, engine, and services
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides SKILLSWAP_PORT)
  -db      SQLite database path (overrides SKILLSWAP_DB_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/skillswap.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/skillswap/booking-engine/api"
	"github.com/skillswap/booking-engine/auth"
	"github.com/skillswap/booking-engine/booking"
	"github.com/skillswap/booking-engine/config"
	"github.com/skillswap/booking-engine/realtime"
	"github.com/skillswap/booking-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flag overrides
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Realtime hub doubles as the engine's notifier.
	hub := realtime.NewHub(store)

	engine := booking.NewEngine(store, hub)
	engine.MaxRetries = cfg.BookingMaxRetries
	engine.AttemptTimeout = time.Duration(cfg.BookingTimeoutSec) * time.Second
	engine.Cancellation = booking.CancellationPolicy{RefundOnCancel: cfg.RefundOnCancel}

	users := booking.NewUsers(store, cfg.SignupPoints)
	skills := booking.NewSkills(store, hub)
	slots := booking.NewSlots(store, hub)
	chat := booking.NewChat(store)

	tokens := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTExpireMin)*time.Minute)

	handler := api.NewHandler(users, skills, slots, engine, chat, hub, tokens)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", *port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: the SSE streams are long-lived.
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
