package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/revtrack/internal/app"
	"github.com/example/revtrack/internal/cli"
	"github.com/example/revtrack/internal/config"
	"github.com/example/revtrack/internal/database"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Cancel the context on Ctrl+C or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	logger := app.NewLogger(cfg.Log)

	db, err := database.Connect(database.Config{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		DataDir: cfg.Database.DataDir,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return 1
	}
	defer db.Close()

	return cli.Run(ctx, cli.NewApp(cfg, db, logger), cli.NewIO(os.Stdout, os.Stderr), os.Args[1:])
}
