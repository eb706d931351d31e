package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openmart/martd/internal/config"
	restservice "github.com/openmart/martd/internal/interface/rest"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "martd",
		Usage:   "fixed-price marketplace daemon",
		Version: Version,
		Flags:   config.Flags,
		Action:  run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}
	log.Infof("martd config: %s", cfg)

	appSvc, err := cfg.AppService()
	if err != nil {
		return fmt.Errorf("failed to create app service: %s", err)
	}

	svc, err := restservice.NewService(Version, restservice.Config{Port: cfg.Port}, appSvc)
	if err != nil {
		return fmt.Errorf("failed to create service: %s", err)
	}

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return fmt.Errorf("failed to start service: %s", err)
	}

	log.RegisterExitHandler(svc.Stop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(
		sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP, os.Interrupt,
	)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
	return nil
}
