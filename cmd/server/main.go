package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/mailer"
	"github.com/ignite/newsletter/internal/newsletter"
	"github.com/ignite/newsletter/internal/server"
	"github.com/ignite/newsletter/internal/session"
	"github.com/ignite/newsletter/internal/subscription"
)

// checkPortAvailable verifies that the target port is not already in use,
// so a stale process on the port fails fast instead of confusing health
// checks.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Info("DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatal("pre-flight check failed", zap.Error(err))
	}

	// Postgres pool
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}

	// Redis (sessions)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Fatal("failed to ping redis", zap.Error(err))
	}

	// Outbound mail gateway
	mailClient, err := mailer.NewClient(cfg.Email)
	if err != nil {
		log.Fatal("failed to build mail client", zap.Error(err))
	}

	// Domain components
	subStore := subscription.NewStore(db)
	engine := subscription.NewEngine(subStore, mailClient, cfg.Server.BaseURL, log)
	validator := auth.NewValidator(db, log)
	dispatcher := newsletter.NewDispatcher(subStore, mailClient, log)

	signer := session.NewSigner([]byte(cfg.Session.Secret))
	sessions := session.NewStore(redisClient, signer, cfg.Session.TTL())

	srv := server.New(engine, dispatcher, validator, sessions, signer,
		cfg.Session.CookieName, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      srv.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening",
			zap.String("addr", httpServer.Addr),
			zap.String("base_url", cfg.Server.BaseURL))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
