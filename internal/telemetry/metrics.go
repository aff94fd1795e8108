package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "futurejob"

// Результаты выполнения payload для метки result.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultPanic   = "panic"
)

// Metrics — Prometheus метрики планировщика.
//
// nil *Metrics — валидный no-op: все методы проверяют receiver.
type Metrics struct {
	scheduled   prometheus.Counter
	dispatched  prometheus.Counter
	executed    *prometheus.CounterVec
	discarded   prometheus.Counter
	queueDepth  prometheus.Gauge
	sinkBacklog prometheus.Gauge
	lag         prometheus.Histogram
	duration    prometheus.Histogram
}

// NewMetrics создаёт и регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		scheduled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_scheduled_total",
			Help:      "Total entries accepted by Schedule",
		}),
		dispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_dispatched_total",
			Help:      "Total entries handed to the execution sink",
		}),
		executed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_executed_total",
			Help:      "Total payloads executed by the sink, by result",
		}, []string{"result"}),
		discarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_discarded_total",
			Help:      "Total entries discarded at shutdown",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Entries pending in the ordered queue",
		}),
		sinkBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sink_backlog",
			Help:      "Payloads handed to the sink and not yet executed",
		}),
		lag: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_lag_seconds",
			Help:      "Delay between entry due time and its dispatch",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 120},
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payload_duration_seconds",
			Help:      "Payload execution time",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// EntryScheduled учитывает новую entry.
func (m *Metrics) EntryScheduled() {
	if m == nil {
		return
	}
	m.scheduled.Inc()
}

// EntryDispatched учитывает передачу entry в sink с задержкой lag.
func (m *Metrics) EntryDispatched(lag time.Duration) {
	if m == nil {
		return
	}
	m.dispatched.Inc()
	m.lag.Observe(lag.Seconds())
}

// PayloadExecuted учитывает выполнение payload.
func (m *Metrics) PayloadExecuted(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.executed.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
}

// EntriesDiscarded учитывает entries, отброшенные при остановке.
func (m *Metrics) EntriesDiscarded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.discarded.Add(float64(n))
}

// SetQueueDepth выставляет текущую глубину очереди.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// SetSinkBacklog выставляет текущий backlog sink'а.
func (m *Metrics) SetSinkBacklog(n int) {
	if m == nil {
		return
	}
	m.sinkBacklog.Set(float64(n))
}
