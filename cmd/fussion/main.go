package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fussion/engine/internal/config"
	"github.com/fussion/engine/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	scenePath := flag.String("scene", "", "scene to open, relative to the asset root")
	frames := flag.Int("frames", -1, "stop after this many frames (overrides the config)")
	flag.Parse()

	if err := run(*configPath, *scenePath, *frames); err != nil {
		fmt.Fprintln(os.Stderr, "fussion:", err)
		os.Exit(1)
	}
}

func run(configPath, scenePath string, frames int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if scenePath != "" {
		cfg.App.Scene = scenePath
	}
	if frames >= 0 {
		cfg.App.MaxFrames = frames
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	if err := app.Open(ctx); err != nil {
		_ = app.Close()
		return err
	}

	runErr := app.Run(ctx)
	if err := app.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "Error closing engine:", err)
	}
	return runErr
}
