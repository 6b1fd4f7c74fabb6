package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sentinel/internal/config"
	"sentinel/internal/daemon"
	"sentinel/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	cancel()
	if err != nil {
		log.Printf("sentineld: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, configPath, exists, err := config.Load(configPathFromEnv())
	if err != nil {
		return err
	}

	logger, logPath, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	logger.Info("sentineld starting", logging.Args(startupAttrs(cfg, configPath, exists, logPath)...)...)

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return err
	}
	defer d.Close()

	if err := d.Run(ctx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			logger.Error("another sentinel instance holds the lock", logging.String("lock_file", cfg.LockPath()))
		}
		return err
	}
	logger.Info("sentineld shutting down")
	return nil
}
