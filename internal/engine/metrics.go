package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	reg prometheus.Registerer

	// Latency: сколько заняло решение и проксирование запроса к /wp/v2/users
	RequestDuration *prometheus.HistogramVec

	// Traffic: решения движка по исходам
	Decisions *prometheus.CounterVec

	// Сколько записей пользователей обезличено
	SanitizedRecords prometheus.Counter

	// Errors: отказы WordPress (502 от прокси)
	UpstreamErrors prometheus.Counter

	// Updates: результат плановой проверки релизов
	UpdateChecks    *prometheus.CounterVec
	UpdateAvailable prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restguard_request_duration_seconds",
			Help:    "Histogram of users route latencies, upstream included.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "outcome"}),

		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restguard_decisions_total",
			Help: "Access decisions taken on the users route.",
		}, []string{"route", "outcome"}), // route: collection, single

		SanitizedRecords: f.NewCounter(prometheus.CounterOpts{
			Name: "restguard_sanitized_records_total",
			Help: "User records rewritten in sanitize mode.",
		}),

		UpstreamErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "restguard_upstream_errors_total",
			Help: "Requests that failed to reach WordPress or whose response could not be rewritten.",
		}),

		UpdateChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restguard_update_checks_total",
			Help: "Scheduled release checks by result.",
		}, []string{"result"}), // available, none

		UpdateAvailable: f.NewGauge(prometheus.GaugeOpts{
			Name: "restguard_update_available",
			Help: "1 when a newer release was found by the last check.",
		}),
	}
}

// ObserveAuditor экспортирует заполненность буфера аудита и потери (backpressure).
func (m *Metrics) ObserveAuditor(pending func() int, dropped func() uint64) {
	f := promauto.With(m.reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "restguard_audit_buffer_utilization",
		Help: "Current number of events in audit buffer.",
	}, func() float64 { return float64(pending()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "restguard_audit_dropped_total",
		Help: "Audit events dropped because of buffer overflow or shutdown.",
	}, func() float64 { return float64(dropped()) })
}
