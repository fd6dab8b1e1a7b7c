package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptContext returns a context which is cancelled on any of the given signals.
func InterruptContext(ctx context.Context, signals ...os.Signal) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
		cancel()
	}()

	return ctx, cancel
}

// New is InterruptContext on SIGINT and SIGTERM for the background context.
func New() (context.Context, func()) {
	return InterruptContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
