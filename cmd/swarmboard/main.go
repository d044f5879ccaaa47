package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gensyn-ai/rl-swarm/pkg/config"
	"github.com/gensyn-ai/rl-swarm/pkg/utils"
	"github.com/gensyn-ai/rl-swarm/pkg/wiring"
)

func main() {
	// Load doesn't overwrite variables already set in the environment
	envPaths := []string{".env", "../../.env", "../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := utils.NewLogger(utils.DefaultLogConfig())
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, err := wiring.NewService(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("service init failed", utils.ZapError(err))
	}

	if err := service.Start(ctx); err != nil {
		logger.Fatal("service start failed", utils.ZapError(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown requested, stopping components...")
	cancel()

	if err := service.StopWithTimeout(30 * time.Second); err != nil {
		logger.Warn("service stop encountered error", utils.ZapError(err))
	}
}
