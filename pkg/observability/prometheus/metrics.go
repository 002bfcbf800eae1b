package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "eventbus"

// DefaultRegistry holds the bus metrics plus the Go and process collectors
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Metrics records bus activity. It satisfies core.Observer.
type Metrics struct {
	published   *prometheus.CounterVec
	dispatched  *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	overflowed  prometheus.Counter
	panics      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	subscribers *prometheus.GaugeVec
}

// NewMetrics creates the bus collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_total",
			Help:      "Number of bundles published, by topic.",
		}, []string{"topic"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatched_total",
			Help:      "Number of callback invocations scheduled, by topic.",
		}, []string{"topic"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_dropped_total",
			Help:      "Number of callback invocations the dispatcher refused, by topic.",
		}, []string{"topic"}),
		overflowed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_overflow_total",
			Help:      "Number of jobs run outside the worker pool because its queue was full.",
		}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_panics_total",
			Help:      "Number of subscriber callbacks that panicked, by topic.",
		}, []string{"topic"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "callback_duration_seconds",
			Help:      "Subscriber callback execution time, by topic.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"topic"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Current number of subscribers, by topic.",
		}, []string{"topic"}),
	}

	for _, c := range []prometheus.Collector{
		m.published, m.dispatched, m.dropped, m.overflowed,
		m.panics, m.duration, m.subscribers,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNewMetrics is NewMetrics that panics on registration errors
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) Published(topic string) {
	m.published.WithLabelValues(topic).Inc()
}

func (m *Metrics) Dispatched(topic string) {
	m.dispatched.WithLabelValues(topic).Inc()
}

func (m *Metrics) DispatchDropped(topic string) {
	m.dropped.WithLabelValues(topic).Inc()
}

func (m *Metrics) DispatchOverflowed() {
	m.overflowed.Inc()
}

func (m *Metrics) CallbackCompleted(topic string, elapsed time.Duration, panicked bool) {
	m.duration.WithLabelValues(topic).Observe(elapsed.Seconds())
	if panicked {
		m.panics.WithLabelValues(topic).Inc()
	}
}

func (m *Metrics) SubscribersChanged(topic string, count int) {
	m.subscribers.WithLabelValues(topic).Set(float64(count))
}
