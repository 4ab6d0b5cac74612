package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/insightdelivered/broker-statement-converter/internal/cli"
	"github.com/insightdelivered/broker-statement-converter/internal/config"
	"github.com/insightdelivered/broker-statement-converter/internal/logger"
)

func main() {
	cli.Completion().Complete("bsc")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(int(subcommands.ExitUsageError))
	}
	log := logger.New(cfg.LogLevel)

	commander := subcommands.NewCommander(flag.CommandLine, "bsc")
	cli.Register(commander, cli.NewApp(cfg, log))
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(logger.WithContext(ctx, log))
	stop()
	os.Exit(int(status))
}
