// nicer runs the NICER reduction, fitting, flux and plotting pipeline.
//
// Usage:
//
//	nicer run [--config nicer.yaml] [--continue-on-error] [--markdown]
//	nicer create|fit|flux|plot [--config nicer.yaml]
//	nicer status [--run <id>] [--markdown]
//	nicer summary [--markdown]
//	nicer init-config [-o nicer.yaml] [--force]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals cancel the running tool and stop the pipeline.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
