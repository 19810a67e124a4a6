// Entry point for the memos HTTP service: chi router behind the shield
// middleware stack, JWT sessions, SQLite storage, and the server-side
// link-preview pipeline.
package main

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/patattzel/memos/linkpreview"
	"github.com/patattzel/memos/store"
)

func main() {
	port := env("PORT", "8081")
	dbPath := env("DB_PATH", "data/memos.db")
	configPath := os.Getenv("MEMOS_CONFIG")
	logLevel := env("LOG_LEVEL", "info")

	secretInput := os.Getenv("SESSION_SECRET")
	if secretInput == "" {
		slog.Error("SESSION_SECRET is required")
		os.Exit(1)
	}
	// Derive a 32-byte JWT secret via SHA-256 (satisfies auth.MinSecretLen).
	secretHash := sha256.Sum256([]byte(secretInput))
	jwtSecret := secretHash[:]

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Storage.
	st, err := store.Open(dbPath)
	if err != nil {
		slog.Error("store open", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// First-run bootstrap: create the admin account from env if the
	// database is empty.
	if n, err := st.CountUsers(ctx); err != nil {
		slog.Error("count users", "error", err)
		os.Exit(1)
	} else if n == 0 {
		email := env("ADMIN_EMAIL", "admin@localhost")
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			slog.Warn("no users and no ADMIN_PASSWORD set; login will be impossible")
		} else {
			if _, err := st.CreateUser(ctx, email, "Admin", password, "admin"); err != nil {
				slog.Error("bootstrap admin", "error", err)
				os.Exit(1)
			}
			slog.Info("bootstrapped admin user", "email", email)
		}
	}

	// Link-preview pipeline.
	previewCfg, err := loadPreviewConfig(configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	previews := linkpreview.NewService(previewCfg)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(st, previews, jwtSecret),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}
