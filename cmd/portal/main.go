// Command portal serves the ApplyWizz payment, admin and onboarding API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/applywizz/portal/internal/app"
	"github.com/applywizz/portal/internal/config"
	"github.com/applywizz/portal/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	envFile := flag.String("env", ".env", "Path to a .env file (ignored if missing)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	migrate := flag.Bool("migrate", false, "Apply database migrations on start (postgres store only)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *migrate {
		cfg.Database.MigrateOnStart = true
	}

	log := logger.New(logger.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.WithFields(map[string]interface{}{
		"version":      version,
		"store":        cfg.Store,
		"object_store": cfg.ObjectStore,
	}).Info("starting portal")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, version, log)
	if err != nil {
		log.WithError(err).Fatal("initialise application")
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		log.WithError(runErr).Error("portal stopped with error")
	}

	log.Info("shutting down")
	if err := application.Shutdown(context.Background()); err != nil {
		log.WithError(err).Error("shutdown")
	}
	if runErr != nil {
		os.Exit(1)
	}
}
