// Package main is the entry point for the CSML engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/csml-dev/csml-engine/internal/api"
	"github.com/csml-dev/csml-engine/internal/builtins"
	"github.com/csml-dev/csml-engine/internal/buildinfo"
	"github.com/csml-dev/csml-engine/internal/config"
	"github.com/csml-dev/csml-engine/internal/engine"
	"github.com/csml-dev/csml-engine/internal/events"
	"github.com/csml-dev/csml-engine/internal/storage"
	"github.com/csml-dev/csml-engine/internal/sweeper"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "serve":
			runServe(logger, *configPath)
		case "version":
			fmt.Println(buildinfo.String())
			for k, v := range buildinfo.Info() {
				fmt.Printf("  %-12s %s\n", k+":", v)
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
			os.Exit(1)
		}
		return
	}

	fmt.Println("csml-engine - CSML conversation engine")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the API server")
	fmt.Println("  version  Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func runServe(logger *slog.Logger, configPath string) {
	logger.Info("starting csml-engine", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "branch", buildinfo.GitBranch, "built", buildinfo.BuildTime)

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			logger.Error("invalid log_level in config", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	logger.Info("config loaded", "path", cfgPath, "port", cfg.Listen.Port, "storage", cfg.Storage.Path)

	store, err := storage.NewSQLiteStore(cfg.Storage.Path, storage.Options{
		EncryptionSecret:  cfg.Encryption.Secret,
		DisableEncryption: cfg.Encryption.Disable,
		DefaultTTL:        cfg.Memory.TTL(),
	})
	if err != nil {
		logger.Error("failed to open storage", "path", cfg.Storage.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("storage opened", "path", cfg.Storage.Path)

	bus := events.New()
	deps := builtins.DefaultDeps()
	reg := builtins.Registry(deps)

	eng := engine.New(store, bus, reg)

	sw := sweeper.New(logger, store, bus, cfg.Sweep.Interval())
	sw.Start()
	defer sw.Stop()
	logger.Info("sweeper started", "interval", cfg.Sweep.Interval())

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, eng, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
		_ = server.Shutdown(context.Background())
	}()

	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("csml-engine stopped")
}
