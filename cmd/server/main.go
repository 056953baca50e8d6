package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fromchat/internal/config"
	"fromchat/internal/httpserver"
	"fromchat/internal/push"
	"fromchat/internal/security"
	"fromchat/internal/store/postgres"
	"fromchat/internal/store/sqlite"
	"fromchat/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var db *sql.DB
	switch cfg.DBDriver {
	case "postgres":
		db, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	default:
		db, err = sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := sqlite.Migrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}
	defer db.Close()

	repos := httpserver.NewRepos(cfg.DBDriver, db)

	tokenSvc := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL())
	passwordHasher := security.NewPasswordHasher(0)

	var sender push.Sender = push.NopSender{}
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		sender = push.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
	} else {
		log.Println("VAPID keys not configured, web push disabled")
	}

	hub := ws.NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	janitor := ws.NewJanitor(hub, repos.Users, repos.Sessions, cfg.JanitorInterval(), cfg.OfflineGrace())
	janitor.Start(ctx)

	router := httpserver.NewRouter(cfg, repos, hub, tokenSvc, passwordHasher, sender)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting FromChat server on %s (driver=%s)\n", cfg.HTTPAddr(), cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
