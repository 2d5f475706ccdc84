package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/roomchat/internal/config"
	"github.com/Tyrowin/roomchat/internal/logger"
	"github.com/Tyrowin/roomchat/internal/metrics"
	"github.com/Tyrowin/roomchat/internal/relay"
	"github.com/Tyrowin/roomchat/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chat server:", err)
		os.Exit(1)
	}
}

func run() error {
	// Local .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := relay.NewHub(
		relay.WithLogger(log),
		relay.WithMetrics(metrics.New(reg)),
		relay.WithHeartbeatInterval(cfg.HeartbeatInterval),
	)

	handler := server.NewHandler(hub, server.HandlerConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Client: server.ClientConfig{
			SendQueueSize:  cfg.SendQueueSize,
			MaxMessageSize: cfg.MaxMessageSize,
		},
	}, log)
	httpServer := server.CreateServer(cfg.Addr(), server.SetupRoutes(handler, metrics.Handler(reg), cfg.AllowedOrigins))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		return server.StartServer(httpServer, log)
	})
	g.Go(func() error {
		<-gctx.Done()
		err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
		handler.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
