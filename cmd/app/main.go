package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"

	"repair-desk/internal/adapters/cli"
	"repair-desk/internal/adapters/repl"
	"repair-desk/internal/bootstrap"
	"repair-desk/internal/config"
	"repair-desk/internal/core"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx := context.Background()
	services, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer services.Close()

	if len(os.Args) == 1 {
		repl.Run(ctx, services.App, bufio.NewReader(os.Stdin), os.Stdout)
		return 0
	}

	err = cli.Run(ctx, services.App, os.Args[1:], os.Stdin, os.Stdout)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrUsage):
		return 2
	default:
		printError(err)
		return 1
	}
}

func printError(err error) {
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, verr.Summary())
	byField := verr.ByField()
	keys := make([]string, 0, len(byField))
	for k := range byField {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", k, byField[k])
	}
}
