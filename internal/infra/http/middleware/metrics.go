package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	paymentsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_reconciled_total",
			Help: "Payment notifications by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	accessGrants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_grants_total",
			Help: "Access deliveries for paid orders",
		},
		[]string{"status"},
	)

	accessRevocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_revocations_total",
			Help: "Members removed from VIP channels",
		},
		[]string{"source"},
	)

	campaignMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_messages_total",
			Help: "Remarketing messages by delivery outcome",
		},
		[]string{"outcome"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern usa o padrão da rota do chi: o path cru traz o token do bot.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func RecordReconcile(outcome usecase.ReconcileOutcome) {
	paymentsReconciled.WithLabelValues(string(outcome)).Inc()
}

func RecordRevocations(source string, n int) {
	if n > 0 {
		accessRevocations.WithLabelValues(source).Add(float64(n))
	}
}

func RecordCampaignDelivery(outcome usecase.DeliveryOutcome) {
	campaignMessages.WithLabelValues(string(outcome)).Inc()
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}

// InstrumentGranter conta as entregas de acesso feitas pelo granter.
func InstrumentGranter(g usecase.AccessGranter) usecase.AccessGranter {
	return countingGranter{next: g}
}

type countingGranter struct {
	next usecase.AccessGranter
}

func (c countingGranter) Grant(ctx context.Context, grant usecase.AccessGrant) error {
	if err := c.next.Grant(ctx, grant); err != nil {
		accessGrants.WithLabelValues("error").Inc()
		return err
	}
	accessGrants.WithLabelValues("ok").Inc()
	return nil
}
