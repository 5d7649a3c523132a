package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"

	"pantrybot/internal/app"
	"pantrybot/internal/config"
	"pantrybot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	// Local .env is optional; in production the unit file sets the
	// environment.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := logx.New(cfg.LogLevel)

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}

	// Tell systemd we are up once the services are wired; Run blocks from
	// here until shutdown.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	err = a.Run(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}
