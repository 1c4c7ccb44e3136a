package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/8848connie/drawing-room/internal/config"
	"github.com/8848connie/drawing-room/internal/db"
	"github.com/8848connie/drawing-room/internal/server"
)

func main() {
	loadDotEnv()

	addr := getenvDefault("PHOTOWALL_ADDR", ":8080")
	build := server.BuildInfo{
		Version: getenvDefault("PHOTOWALL_VERSION", "dev"),
		Commit:  getenvDefault("PHOTOWALL_COMMIT", "unknown"),
	}

	// Handlers re-read the environment on every request and answer 500 when
	// it is incomplete, so a bad configuration is reported but not fatal.
	if err := config.Validate(os.LookupEnv); err != nil {
		log.Printf("service=photowall msg=%q err=%q", "config_invalid", err.Error())
	}

	if strings.EqualFold(os.Getenv("PHOTOWALL_MIGRATE_ON_START"), "true") {
		if err := migrate(); err != nil {
			log.Printf("service=photowall msg=%q err=%v", "migration_failed", err)
			os.Exit(1)
		}
	}

	srv := server.New(server.Config{
		Addr:            addr,
		Build:           build,
		UploadRateLimit: getenvInt("PHOTOWALL_UPLOAD_RATE_LIMIT", 0),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=photowall msg=%q addr=%s version=%s commit=%s",
			"starting", addr, build.Version, build.Commit)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=photowall msg=%q signal=%s", "shutting_down", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=photowall msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=photowall msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("service=photowall msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// migrate applies the embedded migrations to the Postgres database.
func migrate() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if cfg.DBDriver != config.DriverPostgres {
		log.Printf("service=photowall msg=%q driver=%s", "migrations_skipped", cfg.DBDriver)
		return nil
	}
	if err := cfg.MissingForListing(); err != nil {
		return err
	}

	conn, err := db.OpenDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	log.Printf("service=photowall msg=%q", "running_migrations")
	if err := db.RunMigrations(conn); err != nil {
		return err
	}
	version, dirty, err := db.MigrationVersion(conn)
	if err != nil {
		return err
	}
	log.Printf("service=photowall msg=%q version=%d dirty=%t", "migrations_complete", version, dirty)
	return nil
}

// loadDotEnv reads .env when present. Variables already set win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("service=photowall msg=%q err=%v", "dotenv_failed", err)
	}
}

// getenvInt returns def when key is unset or not a non-negative integer.
func getenvInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
