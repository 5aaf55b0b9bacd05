package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// ErrInterrupted is the cancellation cause of a context stopped by a signal.
var ErrInterrupted = errors.New("interrupted")

// ShutdownContext returns a context cancelled by SIGINT or SIGTERM. The
// received signal is logged and recorded as the context cause.
func (a *App) ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			a.Logger.Info("shutting down", "signal", sig.String())
			cancel(fmt.Errorf("%w by %s", ErrInterrupted, sig))
		case <-ctx.Done():
		}
	}()

	return ctx, func() { cancel(context.Canceled) }
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupted)
}

// handleExecutionError maps interruptions to a clean exit.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}
