package metrics

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-trm/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultDurationBuckets covers 5ms to roughly 10s for *_duration_ms series.
var DefaultDurationBuckets = prometheus.ExponentialBuckets(5, 2, 12)

// PrometheusRecorder implements core.MetricsRecorder on a Prometheus
// registry. Dotted names become underscored metric names. The label set of a
// metric is fixed by its first observation; later tags are projected onto it.
type PrometheusRecorder struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	handler    http.Handler
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*labeledCounter
	histograms map[string]*labeledHistogram
}

type labeledCounter struct {
	labels []string
	vec    *prometheus.CounterVec
}

type labeledHistogram struct {
	labels []string
	vec    *prometheus.HistogramVec
}

// NewPrometheusRecorder builds a recorder. When reg is nil a dedicated
// registry with process and Go collectors is created.
func NewPrometheusRecorder(reg *prometheus.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	}
	return &PrometheusRecorder{
		registerer: reg,
		gatherer:   reg,
		handler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		buckets:    DefaultDurationBuckets,
		counters:   map[string]*labeledCounter{},
		histograms: map[string]*labeledHistogram{},
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *PrometheusRecorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

func (r *PrometheusRecorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

func (r *PrometheusRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	counter, err := r.counter(name, tags)
	if err != nil {
		return
	}
	counter.vec.WithLabelValues(labelValues(counter.labels, tags)...).Add(float64(value))
}

func (r *PrometheusRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram, err := r.histogram(name, tags)
	if err != nil {
		return
	}
	histogram.vec.WithLabelValues(labelValues(histogram.labels, tags)...).Observe(value)
}

func (r *PrometheusRecorder) counter(name string, tags map[string]string) (*labeledCounter, error) {
	metricName := MetricName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[metricName]; ok {
		return existing, nil
	}
	labels := labelNames(tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricName,
		Help: "TRM SDK counter " + strings.TrimSpace(name) + ".",
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}
	counter := &labeledCounter{labels: labels, vec: vec}
	r.counters[metricName] = counter
	return counter, nil
}

func (r *PrometheusRecorder) histogram(name string, tags map[string]string) (*labeledHistogram, error) {
	metricName := MetricName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[metricName]; ok {
		return existing, nil
	}
	labels := labelNames(tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricName,
		Help:    "TRM SDK histogram " + strings.TrimSpace(name) + ".",
		Buckets: r.buckets,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}
	histogram := &labeledHistogram{labels: labels, vec: vec}
	r.histograms[metricName] = histogram
	return histogram, nil
}

// MetricName converts a dotted SDK metric name into a Prometheus name.
func MetricName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "trm_unknown"
	}
	var b strings.Builder
	for index, char := range name {
		switch {
		case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z', char == '_', char == ':':
			b.WriteRune(char)
		case char >= '0' && char <= '9':
			if index == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(char)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for key := range tags {
		label := MetricName(key)
		if strings.HasPrefix(label, "__") || seen[label] {
			continue
		}
		seen[label] = true
		names = append(names, label)
	}
	sort.Strings(names)
	return names
}

func labelValues(labels []string, tags map[string]string) []string {
	normalized := make(map[string]string, len(tags))
	for key, value := range tags {
		normalized[MetricName(key)] = value
	}
	values := make([]string, len(labels))
	for index, label := range labels {
		value := strings.TrimSpace(normalized[label])
		if value == "" {
			value = "unknown"
		}
		values[index] = value
	}
	return values
}

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)
