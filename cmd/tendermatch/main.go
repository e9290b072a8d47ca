package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tendermatch/internal/cli"
	"tendermatch/internal/config"
	"tendermatch/internal/errors"
	"tendermatch/internal/observability"
)

// configFileEnv names an explicit config file, bypassing the search path
const configFileEnv = "TENDERMATCH_CONFIG_FILE"

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		logger.LogError(err, "Failed to apply secrets from Vault")
		os.Exit(1)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, cli.Version), cfg)
	if err != nil {
		logger.LogError(err, "Failed to initialize observability")
		os.Exit(1)
	}

	logger.Info("Starting tendermatch",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"ai_enabled", cfg.AIEnabled(),
		"ai_provider", cfg.AI.Provider)

	err = cli.Execute(ctx, cfg, logger, om)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := om.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.LogError(shutdownErr, "Failed to shutdown observability")
	}

	if err != nil {
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv(configFileEnv); path != "" {
		return config.LoadConfigFile(path)
	}
	return config.LoadConfig()
}
