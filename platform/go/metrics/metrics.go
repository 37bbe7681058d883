// Package metrics exposes Prometheus instrumentation for the HTTP layer and the game domain.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gacha"

// HTTP holds request metrics labelled by chi route pattern.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	factory := promauto.With(reg)
	return &HTTP{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Middleware records one sample per request. Unmatched routes are labelled "unmatched"
// so arbitrary paths cannot blow up label cardinality.
func (m *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Recorder counts game and admin events. A nil *Recorder records nothing.
type Recorder struct {
	draws          *prometheus.CounterVec
	effects        *prometheus.CounterVec
	reaped         prometheus.Counter
	loginFailures  *prometheus.CounterVec
	quotaRejection prometheus.Counter
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		draws: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "draws_total",
				Help:      "Result draws by outcome",
			},
			[]string{"outcome"},
		),
		effects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "effects_total",
				Help:      "Effect tiers drawn at play start",
			},
			[]string{"tier"},
		),
		reaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_reaped_total",
			Help:      "Prize images deleted by the retention policy",
		}),
		loginFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_failures_total",
				Help:      "Rejected login attempts",
			},
			[]string{"kind"},
		),
		quotaRejection: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_quota_rejections_total",
			Help:      "Image uploads rejected by the per-tenant quota",
		}),
	}
}

func (r *Recorder) Draw(outcome string) {
	if r == nil {
		return
	}
	r.draws.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Effect(tier string) {
	if r == nil {
		return
	}
	r.effects.WithLabelValues(tier).Inc()
}

func (r *Recorder) Reaped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.reaped.Add(float64(n))
}

// LoginFailure counts a failed login; kind is "master" or "tenant".
func (r *Recorder) LoginFailure(kind string) {
	if r == nil {
		return
	}
	r.loginFailures.WithLabelValues(kind).Inc()
}

func (r *Recorder) QuotaRejected() {
	if r == nil {
		return
	}
	r.quotaRejection.Inc()
}

// Handler serves the metrics in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
