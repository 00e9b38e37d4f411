package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-practice/internal/app"
	"github.com/mind-engage/mindengage-practice/internal/cli"
	"github.com/mind-engage/mindengage-practice/internal/config"
	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	// keep the terminal readable; info logs belong to the gateway
	log = log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	// the desktop build has a single profile that owns everything it imports
	a := &cli.App{
		Engine:        b.Engine,
		Store:         b.Store,
		Journal:       b.Journal,
		Owner:         exam.SharedOwner,
		Shuffle:       app.Shuffle,
		AutosaveDelay: cfg.Autosave.Delay,
		ChartWindow:   cfg.History.Window,
		Log:           log.Named("cli"),
	}
	if err := a.Run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		return err
	}
	return nil
}
