// Package exporters publishes the pipeline metrics over HTTP and SSE.
package exporters

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/mxcamera/internal/logging"
)

// HTTPHandler serves every promauto-registered metric. Collector failures
// are logged and the remaining metrics are still returned.
func HTTPHandler() http.Handler {
	errorLog := slog.NewLogLogger(logging.GetLogger("metrics").Handler(), slog.LevelError)
	return promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:          errorLog,
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}))
}
