/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the course back-office server: config, logging,
  SQLite store, rate limiter, reminder sweeper, HTTP router, graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load .env / environment config, parse flags
  2. Install the JSON logger
  3. Open the SQLite store
  4. Wire handler, store-backed rate limiter, reminder sweeper
  5. Start the server; on SIGINT/SIGTERM drain for up to 30s

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DATABASE_PATH, ":memory:" ok)

SEE ALSO:
  - config: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelola/course-engine/api"
	"github.com/kelola/course-engine/config"
	"github.com/kelola/course-engine/ratelimit"
	"github.com/kelola/course-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	flag.Parse()

	config.InitLogger(cfg.LogLevel)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	handler := api.NewHandler(store)

	limiter := ratelimit.NewFixedWindow(store, cfg.RateLimitWindow, cfg.RateLimitMax)

	sweeper := api.NewReminderSweeper(handler, cfg.SweepInterval)
	handler.Sweeper = sweeper
	sweeper.Start()
	defer sweeper.Stop()

	router := api.NewRouter(handler, limiter, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
