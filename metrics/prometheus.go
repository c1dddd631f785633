package metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
)

type PrometheusMetrics struct {
	ctx        context.Context
	logger     types.Logger
	config     *types.MetricsConfig
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.Mutex
	running    int32
}

func NewPrometheusMetrics(ctx context.Context, logger types.Logger, config *types.MetricsConfig) (*PrometheusMetrics, error) {
	if config == nil {
		return nil, types.ErrMetricsConfigInvalid
	}

	if config.Path == "" {
		config.Path = "/metrics"
	}

	registry := prometheus.NewRegistry()
	if config.GoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	metrics := &PrometheusMetrics{
		ctx:        ctx,
		logger:     logger,
		config:     config,
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	logger.Info("Prometheus metrics initialized",
		zap.String("namespace", config.Namespace),
		zap.Bool("go_metrics", config.GoMetrics))

	return metrics, nil
}

func (p *PrometheusMetrics) Start() error {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return types.ErrServerAlreadyRunning
	}
	p.logger.Info("Prometheus metrics started")
	return nil
}

func (p *PrometheusMetrics) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		return types.ErrServerNotRunning
	}
	p.logger.Info("Prometheus metrics stopped")
	return nil
}

func (p *PrometheusMetrics) IsRunning() bool {
	return atomic.LoadInt32(&p.running) == 1
}

func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

// Counter returns a handle bound to labels. The vector is created on first use
// with the label names of that first call; later calls must use the same names.
func (p *PrometheusMetrics) Counter(name string, labels map[string]string) types.Counter {
	key := p.buildKey(name, labels)

	p.mu.Lock()
	defer p.mu.Unlock()

	if counter, exists := p.counters[key]; exists {
		return &PrometheusCounter{logger: p.logger, counter: counter, labels: labels}
	}

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Name:        name,
			Help:        fmt.Sprintf("Counter metric %s", name),
			ConstLabels: p.config.Labels,
		},
		labelNames(labels),
	)

	p.registry.MustRegister(counter)
	p.counters[key] = counter

	p.logger.Debug("Prometheus counter created", zap.String("name", name))
	return &PrometheusCounter{logger: p.logger, counter: counter, labels: labels}
}

func (p *PrometheusMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	key := p.buildKey(name, labels)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gauge, exists := p.gauges[key]; exists {
		return &PrometheusGauge{logger: p.logger, gauge: gauge, labels: labels}
	}

	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Name:        name,
			Help:        fmt.Sprintf("Gauge metric %s", name),
			ConstLabels: p.config.Labels,
		},
		labelNames(labels),
	)

	p.registry.MustRegister(gauge)
	p.gauges[key] = gauge

	p.logger.Debug("Prometheus gauge created", zap.String("name", name))
	return &PrometheusGauge{logger: p.logger, gauge: gauge, labels: labels}
}

func (p *PrometheusMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	key := p.buildKey(name, labels)

	p.mu.Lock()
	defer p.mu.Unlock()

	if histogram, exists := p.histograms[key]; exists {
		return &PrometheusHistogram{histogram: histogram, labels: labels}
	}

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Name:        name,
			Help:        fmt.Sprintf("Histogram metric %s", name),
			Buckets:     buckets,
			ConstLabels: p.config.Labels,
		},
		labelNames(labels),
	)

	p.registry.MustRegister(histogram)
	p.histograms[key] = histogram

	p.logger.Debug("Prometheus histogram created", zap.String("name", name))
	return &PrometheusHistogram{histogram: histogram, labels: labels}
}

func (p *PrometheusMetrics) RegisterRoutes(router types.HTTPRouter) {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))

	router.Add("GET", p.config.Path, handler, &types.RouteConfig{
		DisabledMiddlewares: []string{"logging"},
	})
}

// buildKey identifies a vector by name and label-name set; label values do not matter.
func (p *PrometheusMetrics) buildKey(name string, labels map[string]string) string {
	return name + "|" + strings.Join(labelNames(labels), ",")
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type PrometheusCounter struct {
	logger  types.Logger
	counter *prometheus.CounterVec
	labels  map[string]string
}

func (c *PrometheusCounter) Inc() {
	c.counter.With(c.labels).Inc()
}

func (c *PrometheusCounter) Add(value float64) {
	c.counter.With(c.labels).Add(value)
}

func (c *PrometheusCounter) Get() float64 {
	metric := &dto.Metric{}
	if err := c.counter.With(c.labels).Write(metric); err != nil {
		c.logger.Error("Failed to read counter", zap.Error(err))
	}
	return metric.GetCounter().GetValue()
}

type PrometheusGauge struct {
	logger types.Logger
	gauge  *prometheus.GaugeVec
	labels map[string]string
}

func (g *PrometheusGauge) Set(value float64) {
	g.gauge.With(g.labels).Set(value)
}

func (g *PrometheusGauge) Inc() {
	g.gauge.With(g.labels).Inc()
}

func (g *PrometheusGauge) Dec() {
	g.gauge.With(g.labels).Dec()
}

func (g *PrometheusGauge) Add(value float64) {
	g.gauge.With(g.labels).Add(value)
}

func (g *PrometheusGauge) Get() float64 {
	metric := &dto.Metric{}
	if err := g.gauge.With(g.labels).Write(metric); err != nil {
		g.logger.Error("Failed to read gauge", zap.Error(err))
	}
	return metric.GetGauge().GetValue()
}

type PrometheusHistogram struct {
	histogram *prometheus.HistogramVec
	labels    map[string]string
}

func (h *PrometheusHistogram) Observe(value float64) {
	h.histogram.With(h.labels).Observe(value)
}

func (h *PrometheusHistogram) ObserveDuration(start time.Time) {
	h.histogram.With(h.labels).Observe(time.Since(start).Seconds())
}

func (h *PrometheusHistogram) GetCount() uint64 {
	if histogram := h.snapshot(); histogram != nil {
		return histogram.GetSampleCount()
	}
	return 0
}

func (h *PrometheusHistogram) GetSum() float64 {
	if histogram := h.snapshot(); histogram != nil {
		return histogram.GetSampleSum()
	}
	return 0
}

func (h *PrometheusHistogram) snapshot() *dto.Histogram {
	metric := &dto.Metric{}
	promMetric, ok := h.histogram.With(h.labels).(prometheus.Metric)
	if !ok {
		return nil
	}
	if err := promMetric.Write(metric); err != nil {
		return nil
	}
	return metric.GetHistogram()
}
