// Package metrics records request counts and latencies for a single run
// and exports them in the Prometheus text format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/defenseunicorns/uds-cxone-report/pkg/types"
)

// ErrAlreadyRegistered is returned when a metric name is registered twice.
var ErrAlreadyRegistered = errors.New("already registered")

// ErrNotFound is returned when a metric is used before it is registered.
var ErrNotFound = errors.New("not found")

const (
	requestsTotal   = "http_requests_total"
	requestDuration = "http_request_duration_seconds"
	functionTime    = "function_duration_seconds"
)

// Collector registers and updates metrics on a private registry.
type Collector interface {
	RegisterCounter(name, help string, labelNames ...string) error
	AddCounter(name string, value float64, labelValues ...string) error
	RegisterHistogram(name, help string, labelNames ...string) error
	ObserveHistogram(name string, value float64, labelValues ...string) error
	MeasureFunctionExecutionTime(function string) (func(), error)
	Gatherer() prometheus.Gatherer
	WriteToTextfile(path string) error
}

type contextKey string

const collectorKey contextKey = "metrics"

// prometheusCollector implements Collector.
type prometheusCollector struct {
	mu         sync.Mutex
	namespace  string
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewCollector returns a Collector whose metric names are prefixed with namespace.
func NewCollector(namespace string) Collector {
	return &prometheusCollector{
		namespace:  namespace,
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// WithMetrics returns a context carrying a new Collector.
func WithMetrics(ctx context.Context, namespace string) context.Context {
	return context.WithValue(ctx, collectorKey, NewCollector(namespace))
}

// FromContext returns the Collector stored in ctx, or a new one if there is none.
func FromContext(ctx context.Context, namespace string) Collector {
	if c, ok := ctx.Value(collectorKey).(Collector); ok {
		return c
	}
	return NewCollector(namespace)
}

func (p *prometheusCollector) fqName(name string) string {
	return prometheus.BuildFQName(p.namespace, "", name)
}

// RegisterCounter registers a counter vector under namespace_name.
func (p *prometheusCollector) RegisterCounter(name, help string, labelNames ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fq := p.fqName(name)
	if _, ok := p.counters[fq]; ok {
		return fmt.Errorf("counter '%s' %w", fq, ErrAlreadyRegistered)
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: fq, Help: help}, labelNames)
	if err := p.registry.Register(vec); err != nil {
		return fmt.Errorf("failed to register counter '%s': %w", fq, err)
	}
	p.counters[fq] = vec
	return nil
}

// AddCounter adds value to the counter with the given label values.
func (p *prometheusCollector) AddCounter(name string, value float64, labelValues ...string) error {
	p.mu.Lock()
	vec, ok := p.counters[p.fqName(name)]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("counter '%s' %w", p.fqName(name), ErrNotFound)
	}
	counter, err := vec.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return fmt.Errorf("counter '%s': %w", p.fqName(name), err)
	}
	counter.Add(value)
	return nil
}

// RegisterHistogram registers a histogram vector with the default buckets.
func (p *prometheusCollector) RegisterHistogram(name, help string, labelNames ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fq := p.fqName(name)
	if _, ok := p.histograms[fq]; ok {
		return fmt.Errorf("histogram '%s' %w", fq, ErrAlreadyRegistered)
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    fq,
		Help:    help,
		Buckets: prometheus.DefBuckets,
	}, labelNames)
	if err := p.registry.Register(vec); err != nil {
		return fmt.Errorf("failed to register histogram '%s': %w", fq, err)
	}
	p.histograms[fq] = vec
	return nil
}

// ObserveHistogram records value in the histogram with the given label values.
func (p *prometheusCollector) ObserveHistogram(name string, value float64, labelValues ...string) error {
	p.mu.Lock()
	vec, ok := p.histograms[p.fqName(name)]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("histogram '%s' %w", p.fqName(name), ErrNotFound)
	}
	observer, err := vec.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return fmt.Errorf("histogram '%s': %w", p.fqName(name), err)
	}
	observer.Observe(value)
	return nil
}

// MeasureFunctionExecutionTime starts a timer; calling the returned func records the elapsed seconds.
func (p *prometheusCollector) MeasureFunctionExecutionTime(function string) (func(), error) {
	err := p.RegisterHistogram(functionTime, "Time spent executing functions.", "function")
	if err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return nil, err
	}
	start := time.Now()
	return func() {
		_ = p.ObserveHistogram(functionTime, time.Since(start).Seconds(), function) //nolint:errcheck
	}, nil
}

// Gatherer exposes the private registry.
func (p *prometheusCollector) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteToTextfile writes every registered metric to path, node_exporter textfile style.
func (p *prometheusCollector) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// instrumentedClient counts and times every request sent through next.
type instrumentedClient struct {
	next      types.HTTPClientInterface
	collector Collector
}

// InstrumentClient wraps next so each request is counted by method, host and status code.
// Transport failures are counted with code "error".
func InstrumentClient(collector Collector, next types.HTTPClientInterface) (types.HTTPClientInterface, error) {
	err := collector.RegisterCounter(requestsTotal, "Outbound HTTP requests by method, host and status code.",
		"method", "host", "code")
	if err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return nil, err
	}
	err = collector.RegisterHistogram(requestDuration, "Outbound HTTP request latency.", "method", "host")
	if err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return nil, err
	}
	return &instrumentedClient{next: next, collector: collector}, nil
}

// Do forwards req and records the outcome.
func (c *instrumentedClient) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.next.Do(req)
	elapsed := time.Since(start).Seconds()

	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	_ = c.collector.AddCounter(requestsTotal, 1, req.Method, req.URL.Host, code)         //nolint:errcheck
	_ = c.collector.ObserveHistogram(requestDuration, elapsed, req.Method, req.URL.Host) //nolint:errcheck
	return resp, err
}
