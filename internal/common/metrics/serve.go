package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// ServeMetrics exposes the metrics in gatherer on http://:port/metrics and returns a function that shuts the server
// down. A port of 0 disables the endpoint, in which case the returned function is a no-op.
func ServeMetrics(port uint16, gatherer prometheus.Gatherer) (func() error, error) {
	if port == 0 {
		return func() error { return nil }, nil
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on port %d", port)
	}
	return serveMetricsOn(listener, gatherer), nil
}

func serveMetricsOn(listener net.Listener, gatherer prometheus.Gatherer) func() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Infof("Serving metrics on %s/metrics", listener.Addr())
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server failed")
		}
	}()

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.WithStack(srv.Shutdown(ctx))
	}
}
