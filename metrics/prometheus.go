package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink over a *prometheus.Registry, lazily
// creating one CounterVec/HistogramVec/GaugeVec per metric name the first
// time it's observed, since the set of names used across task/job/queue
// isn't fixed at construction time the way
// 88lin-divinesense/ai/metrics/prometheus.go's fully-enumerated exporter
// is.
type PrometheusSink struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec

	buckets []float64
}

// NewPrometheusSink returns a Sink registered against registry. Passing a
// nil registry creates a fresh one (88lin-divinesense's DefaultConfig
// convention).
func NewPrometheusSink(registry *prometheus.Registry) *PrometheusSink {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &PrometheusSink{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		buckets:    []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
	}
}

// Registry returns the underlying registry, e.g. for mounting promhttp.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

func (s *PrometheusSink) counterFor(name string, labels map[string]string) *prometheus.CounterVec {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestkit",
			Name:      name,
			Help:      name + " counter",
		}, labelNames(labels))
		s.registry.MustRegister(c)
		s.counters[name] = c
	}
	return c
}

func (s *PrometheusSink) histogramFor(name string, labels map[string]string) *prometheus.HistogramVec {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingestkit",
			Name:      name,
			Help:      name + " histogram",
			Buckets:   s.buckets,
		}, labelNames(labels))
		s.registry.MustRegister(h)
		s.histograms[name] = h
	}
	return h
}

func (s *PrometheusSink) gaugeFor(name string, labels map[string]string) *prometheus.GaugeVec {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ingestkit",
			Name:      name,
			Help:      name + " gauge",
		}, labelNames(labels))
		s.registry.MustRegister(g)
		s.gauges[name] = g
	}
	return g
}

func (s *PrometheusSink) IncCounter(name string, labels map[string]string) {
	s.counterFor(name, labels).With(labels).Inc()
}

func (s *PrometheusSink) ObserveHistogram(name string, labels map[string]string, value float64) {
	s.histogramFor(name, labels).With(labels).Observe(value)
}

func (s *PrometheusSink) SetGauge(name string, labels map[string]string, value float64) {
	s.gaugeFor(name, labels).With(labels).Set(value)
}
