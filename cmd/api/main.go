package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/routes"
	availabilitysvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/availability"
	bookingsvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/booking"
	lockssvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/locks"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/slots"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/config"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/migrate"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/outbox"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	slotRepo := slots.NewRepository(dbClient.DB())
	lockRepo := lockssvc.NewRepository(dbClient.DB())
	bookingRepo := bookingsvc.NewRepository(dbClient.DB())
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	handler := routes.NewRouter(routes.RouterParams{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Bookings:     bookingsvc.NewService(dbClient, slotRepo, lockRepo, bookingRepo, events, logg),
		Locks:        lockssvc.NewService(dbClient, slotRepo, lockRepo, cfg.Locks, logg),
		Availability: availabilitysvc.NewService(dbClient.DB(), logg),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(timeoutCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
