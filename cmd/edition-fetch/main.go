// Package main provides edition-fetch, which downloads the current newspaper
// edition as EPUB through a real browser and hands it to an upload receiver.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/editionfetch/pkg/edition"
)

// Process exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitNotReady = 3
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a run error to the process exit code. A pending edition
// gets its own code so schedulers can retry later.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, edition.ErrEditionNotReady):
		return exitNotReady
	default:
		return exitFailure
	}
}
