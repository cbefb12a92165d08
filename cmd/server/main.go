package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nullchat/common"
	"nullchat/configs"
	"nullchat/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

// Main function to start the relay
func main() {
	flags := pflag.NewFlagSet("nullchat-relay", pflag.ExitOnError)
	flags.String("config", "", "config file")
	flags.String("listen", configs.ListenAddress, "listen address")
	flags.Bool("redis", false, "share topics with other relays through redis")
	flags.String("redis-addr", configs.RedisAddress, "redis address used with --redis")
	flags.String("log-level", "info", "log level")
	_ = flags.Parse(os.Args[1:])

	logger := common.NewLogger("info")
	cfg, err := configs.Load(flags)
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}
	logger = common.NewLogger(cfg.LogLevel)

	redisClient := newRedisClient(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := server.NewServer(ctx, redisClient, registry, logger)
	defer s.Close()

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Infof("Relay running on %s%s", cfg.Listen, configs.WebSocketPath)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Error starting server: %v", err)
	}

	logger.Info("Closing relay...")
}

// newRedisClient returns nil unless the redis bridge is switched on, by flag,
// NULLCHAT_RELAY_REDIS or relay_redis in the config file.
func newRedisClient(cfg *configs.Config) *redis.Client {
	if !cfg.RelayRedis {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}
