package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"QueryFilter/internal/parser"
)

// Registry holds every collector of the service.
var Registry = prometheus.NewRegistry()

var (
	parseTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "queryfilter_parse_total",
		Help: "Parsed queries by model and outcome (ok, rejected).",
	}, []string{"model", "outcome"})

	parseErrors = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "queryfilter_parse_errors_total",
		Help: "Parse errors by code.",
	}, []string{"code"})

	httpRequests = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "queryfilter_http_requests_total",
		Help: "HTTP responses by path and status.",
	}, []string{"path", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveParse records the outcome of one parse.
func ObserveParse(model string, res *parser.Result) {
	if res.OK() {
		parseTotal.WithLabelValues(model, "ok").Inc()
		return
	}
	parseTotal.WithLabelValues(model, "rejected").Inc()
	for _, code := range res.Errors.Codes() {
		parseErrors.WithLabelValues(string(code)).Inc()
	}
}

func ObserveHTTP(path string, status int) {
	httpRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
