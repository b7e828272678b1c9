package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pizn-01/carmazium-sub000/internal/auth"
	"github.com/pizn-01/carmazium-sub000/internal/config"
	"github.com/pizn-01/carmazium-sub000/internal/events"
	"github.com/pizn-01/carmazium-sub000/internal/handlers"
	"github.com/pizn-01/carmazium-sub000/internal/logger"
	"github.com/pizn-01/carmazium-sub000/internal/presence"
	"github.com/pizn-01/carmazium-sub000/internal/repository"
	"github.com/pizn-01/carmazium-sub000/internal/server"
	"github.com/pizn-01/carmazium-sub000/internal/service"
	"github.com/pizn-01/carmazium-sub000/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	lg, err := logger.New(cfg.App.Env != "production")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	var validator *auth.Validator
	if cfg.JWT.Algorithm == "RS256" {
		validator, err = auth.NewRS256Validator(cfg.JWT.PublicKeyPath)
	} else {
		validator, err = auth.NewHS256Validator(cfg.JWT.HSSecret)
	}
	if err != nil {
		lg.Fatalw("jwt validator init", "err", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		lg.Fatalw("database connect", "err", err)
	}
	store := repository.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		lg.Fatalw("database migrate", "err", err)
	}

	var mirror presence.Mirror
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		mirror = presence.NewRedisMirror(rdb, cfg.Redis.Prefix, 0)
	}

	var pub events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, map[string]string{
			events.TypeMessageSent: cfg.Kafka.TopicMessageSent,
			events.TypeBidPlaced:   cfg.Kafka.TopicBidPlaced,
		}, lg)
	}
	defer func() { _ = pub.Close() }()

	registry := presence.NewRegistry(mirror, lg)
	hub := ws.NewHub()

	roomSvc := service.NewRoomService(store, store, store.Users(), lg)
	msgSvc := service.NewMessageService(roomSvc, store, pub, lg)
	bidSvc := service.NewBidService(store, store.Listings(), pub, lg)

	gateway := ws.NewGateway(hub, registry, roomSvc, msgSvc, validator, ws.Options{
		PingInterval:   cfg.PingInterval,
		WriteDeadline:  cfg.WriteDeadline,
		PongWait:       cfg.PongWait,
		MaxMessageSize: cfg.WS.MaxMessageSizeBytes,
		EventRate:      cfg.WS.EventRatePerSecond,
		EventBurst:     cfg.WS.EventBurst,
	}, lg)

	chatHandler := handlers.NewChatHandler(roomSvc, msgSvc, hub)
	bidHandler := handlers.NewBidHandler(bidSvc)
	srv := server.New(gateway, chatHandler, bidHandler, validator)

	errs := make(chan error, 1)
	go func() {
		addr := ":" + cfg.App.Port
		lg.Infow("realtime service listening", "addr", addr)
		errs <- srv.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		lg.Fatalw("server error", "err", err)
	case s := <-sig:
		lg.Infow("signal received", "signal", s.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Warnw("shutdown", "err", err)
	}
	lg.Info("stopped")
}
