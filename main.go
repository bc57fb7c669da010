package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodconnect/authsvc"
	"foodconnect/config"
	"foodconnect/dataaccess"
	"foodconnect/events"
	"foodconnect/handlers"
	"foodconnect/logger"
	"foodconnect/middleware"
	"foodconnect/objectstore"
	"foodconnect/querycache"
	"foodconnect/realtime"
	"foodconnect/routes"
	"foodconnect/store"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: "api"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenDB(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	rdb, err := config.OpenRedis(ctx, cfg)
	if err != nil {
		log.Error("open redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	var orderEvents events.Publisher = events.Nop{}
	if w := config.NewKafkaWriter(cfg); w != nil {
		defer w.Close()
		orderEvents = events.NewKafkaPublisher(w)
		log.Info("exporting order events", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	}

	st := store.New(db)
	objects := objectstore.New(db, cfg.PublicBaseURL, cfg.MaxUploadBytes)
	feed := realtime.NewFeed(rdb, log.With("component", "realtime"))
	deps := dataaccess.Deps{
		Store:  st,
		Cache:  querycache.New(rdb, cfg.QueryCacheTTL, log.With("component", "querycache")),
		Images: objects,
		Feed:   feed,
		Events: orderEvents,
		Log:    log,
	}
	auth := authsvc.New(st, rdb, cfg.JWTSecret, cfg.TokenTTL, log.With("component", "auth"))
	h := handlers.New(deps, auth, objects, feed, cfg.PublicBaseURL, cfg.MaxUploadBytes)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.WithCORS(r, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
