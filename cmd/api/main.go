package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/domespa/digital-store-sub001/internal/checkout"
	"github.com/domespa/digital-store-sub001/internal/config"
	"github.com/domespa/digital-store-sub001/internal/db"
	"github.com/domespa/digital-store-sub001/internal/geo"
	"github.com/domespa/digital-store-sub001/internal/httpserver"
	"github.com/domespa/digital-store-sub001/internal/orders"
	"github.com/domespa/digital-store-sub001/internal/rates"
	productrepo "github.com/domespa/digital-store-sub001/internal/repository/product"
	"github.com/domespa/digital-store-sub001/internal/storage"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	var kv storage.KV
	if cfg.RedisAddr != "" {
		kv = storage.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	} else {
		logger.Printf("REDIS_ADDR not set, using in-memory session storage")
		kv = storage.NewMemory()
	}

	productRepo := productrepo.NewPostgres(dbpool, logger)
	ratesClient := rates.New(cfg.RatesURL, logger)
	ordersClient := orders.New(cfg.OrdersURL, logger)
	geoClient := geo.New(cfg.GeoURL, logger)
	orchestrator := checkout.NewOrchestrator(ordersClient, logger)
	sessions := httpserver.NewSessionManager(kv, ratesClient, orchestrator, ordersClient, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		ProductRepo:      productRepo,
		Sessions:         sessions,
		Geo:              geoClient,
		ReturnTokenParam: cfg.ReturnTokenParam,
		AllowedOrigins:   cfg.AllowedOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
