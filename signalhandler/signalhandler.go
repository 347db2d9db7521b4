package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"lostfound/logging"
)

// SetupHandler returns a context that is cancelled on SIGINT or SIGTERM so
// in-flight rankings and scans stop between images instead of inside a C
// call. A second signal exits immediately.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logging.LogWarning("Received %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case <-sigChan:
			os.Exit(1)
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// For image processing with CGo, using too many goroutines can cause issues
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
