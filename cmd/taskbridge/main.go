package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskbridge/internal/app"
)

const exitCodeFailure = 1

// Build metadata, injected via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// run starts the bridge process.
// Params: none.
// Returns: process exit code.
func run() int {
	var (
		configPath string
		showInfo   bool
	)

	flag.StringVar(&configPath, "config", "taskbridge.toml", "bridge configuration: TOML file or directory of *.toml snippets")
	flag.BoolVar(&showInfo, "v", false, "print version and build metadata, then exit")
	flag.BoolVar(&showInfo, "version", false, "print version and build metadata, then exit")
	flag.Parse()

	if showInfo {
		fmt.Printf("taskbridge %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reload := forwardReloadSignals(ctx)

	if err := app.Run(ctx, app.Runtime{ConfigPath: configPath, Reload: reload}); err != nil {
		fmt.Fprintf(os.Stderr, "taskbridge: %v\n", err)
		return exitCodeFailure
	}
	return 0
}

// forwardReloadSignals turns SIGHUP deliveries into reload triggers. Signals
// arriving while a reload is already pending are coalesced.
// Params: ctx lifecycle context that ends forwarding.
// Returns: reload trigger channel for app.Runtime.
func forwardReloadSignals(ctx context.Context) <-chan struct{} {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	reload := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		}
	}()
	return reload
}

func main() {
	os.Exit(run())
}
