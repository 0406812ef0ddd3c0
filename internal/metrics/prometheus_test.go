package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// errorClient fails every request.
type errorClient struct{}

func (errorClient) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("mock transport error")
}

func TestFromContext(t *testing.T) {
	ctx := WithMetrics(context.Background(), "cxone_report")
	require.Same(t, FromContext(ctx, "cxone_report"), FromContext(ctx, "cxone_report"))

	other := FromContext(context.Background(), "cxone_report")
	require.NotNil(t, other)
}

func TestRegisterCounter(t *testing.T) {
	collector := NewCollector("cxone_report")

	require.NoError(t, collector.RegisterCounter("reports_total", "Reports requested.", "outcome"))
	require.NoError(t, collector.AddCounter("reports_total", 1, "created"))
	require.NoError(t, collector.AddCounter("reports_total", 2, "created"))

	err := testutil.GatherAndCompare(collector.Gatherer(), strings.NewReader(`
		# HELP cxone_report_reports_total Reports requested.
		# TYPE cxone_report_reports_total counter
		cxone_report_reports_total{outcome="created"} 3
	`), "cxone_report_reports_total")
	require.NoError(t, err)
}

func TestRegisterCounter_AlreadyRegistered(t *testing.T) {
	collector := NewCollector("cxone_report")
	require.NoError(t, collector.RegisterCounter("dup", "help"))

	err := collector.RegisterCounter("dup", "help")
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestAddCounter_NotFound(t *testing.T) {
	collector := NewCollector("cxone_report")

	err := collector.AddCounter("missing", 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualError(t, err, "counter 'cxone_report_missing' not found")
}

func TestAddCounter_WrongLabelCount(t *testing.T) {
	collector := NewCollector("cxone_report")
	require.NoError(t, collector.RegisterCounter("labelled", "help", "a", "b"))

	require.Error(t, collector.AddCounter("labelled", 1, "only-one"))
}

func TestRegisterHistogram(t *testing.T) {
	collector := NewCollector("cxone_report")
	require.NoError(t, collector.RegisterHistogram("latency", "help", "endpoint"))
	require.NoError(t, collector.ObserveHistogram("latency", 0.2, "reports"))

	count, err := testutil.GatherAndCount(collector.Gatherer(), "cxone_report_latency")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.ErrorIs(t, collector.RegisterHistogram("latency", "help", "endpoint"), ErrAlreadyRegistered)
	require.ErrorIs(t, collector.ObserveHistogram("nope", 1), ErrNotFound)
}

func TestMeasureFunctionExecutionTime(t *testing.T) {
	collector := NewCollector("cxone_report")

	stop, err := collector.MeasureFunctionExecutionTime("create_report")
	require.NoError(t, err)
	stop()

	// a second measurement reuses the registered histogram
	stop, err = collector.MeasureFunctionExecutionTime("create_report")
	require.NoError(t, err)
	stop()

	histogram := collector.(*prometheusCollector).histograms["cxone_report_function_duration_seconds"]
	require.NotNil(t, histogram)
	require.Equal(t, 1, testutil.CollectAndCount(histogram))
}

func TestInstrumentClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	collector := NewCollector("cxone_report")
	client, err := InstrumentClient(collector, ts.Client())
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL+"/projects/last-scan", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	counters := collector.(*prometheusCollector).counters["cxone_report_http_requests_total"]
	require.Equal(t, float64(1), testutil.ToFloat64(counters.WithLabelValues(http.MethodGet, req.URL.Host, "500")))
}

func TestInstrumentClient_TransportError(t *testing.T) {
	collector := NewCollector("cxone_report")
	client, err := InstrumentClient(collector, errorClient{})
	require.NoError(t, err)

	// instrumenting twice with the same collector is allowed
	_, err = InstrumentClient(collector, errorClient{})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "http://api.example.com/reports/v2", nil)
	require.NoError(t, err)
	_, err = client.Do(req) //nolint:bodyclose
	require.Error(t, err)

	counters := collector.(*prometheusCollector).counters["cxone_report_http_requests_total"]
	require.Equal(t, float64(1), testutil.ToFloat64(counters.WithLabelValues(http.MethodPost, "api.example.com", "error")))
}

func TestWriteToTextfile(t *testing.T) {
	collector := NewCollector("cxone_report")
	require.NoError(t, collector.RegisterCounter("reports_total", "Reports requested.", "outcome"))
	require.NoError(t, collector.AddCounter("reports_total", 1, "failed"))

	path := filepath.Join(t.TempDir(), "cxone_report.prom")
	require.NoError(t, collector.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `cxone_report_reports_total{outcome="failed"} 1`)
}
