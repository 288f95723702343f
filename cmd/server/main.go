package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/sellerpulse/internal/api"
	"github.com/ignite/sellerpulse/internal/automation"
	"github.com/ignite/sellerpulse/internal/config"
	"github.com/ignite/sellerpulse/internal/instagram"
	"github.com/ignite/sellerpulse/internal/store"
	"github.com/ignite/sellerpulse/internal/tracking"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Webhook.VerifyToken == "" {
		log.Fatal("webhook verify token is required (WEBHOOK_VERIFY_TOKEN)")
	}
	if cfg.Database.URL == "" {
		log.Fatal("database url is required (DATABASE_URL)")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("redis unavailable, continuing without cache: %v", err)
			rdb.Close()
			rdb = nil
		}
	}

	st := store.NewStore(db)
	client := instagram.NewClient(cfg.Instagram.BaseURL, cfg.Instagram.APIVersion, cfg.Instagram.Timeout())
	engine := automation.NewEngine(st, client, rdb)

	links := tracking.NewService(st, rdb)
	flushCtx, stopFlush := context.WithCancel(context.Background())
	links.StartFlushLoop(flushCtx, cfg.Tracking.FlushInterval())

	handlers := api.NewHandlers(st, engine, links, cfg.Webhook.VerifyToken)
	router := api.SetupRoutes(handlers, tracking.NewHandler(links))

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("sellerpulse server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	stopFlush()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	if rdb != nil {
		rdb.Close()
	}
}
