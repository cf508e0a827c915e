package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/armadaproject/jobbuffer/internal/common/armadacontext"
)

// CreateContextWithShutdown returns a context derived from parent that will report done when SIGINT or SIGTERM
// is received. The returned stop function releases the signal handler.
func CreateContextWithShutdown(parent *armadacontext.Context) (*armadacontext.Context, func()) {
	ctx, cancel := armadacontext.WithCancel(parent)
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-c:
			ctx.Log.Infof("Received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(c)
		cancel()
	}
}
