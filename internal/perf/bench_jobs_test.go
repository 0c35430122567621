package perf

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
)

func TestBulkJobReliabilityAndUnits(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	for i := 0; i < 40; i++ {
		tracker := metrics.Track("documents:bulk_transition")
		metrics.AddUnits("documents:bulk_transition", 24, 1)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending bulk tracker: %v", err)
		}
	}

	// A batch that could not even load its payload.
	for i := 0; i < 2; i++ {
		tracker := metrics.Track("documents:bulk_transition")
		if err := tracker.End(errors.New("decode payload")); err == nil {
			t.Fatal("expected error to propagate")
		}
	}

	for i := 0; i < 5; i++ {
		tracker := metrics.Track("imports:rows")
		metrics.AddUnits("imports:rows", 200, 0)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending import tracker: %v", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "odyssey_wms_jobs_total", map[string]string{"job": "documents:bulk_transition", "status": "success"})
	failure := metricValue(t, families, "odyssey_wms_jobs_total", map[string]string{"job": "documents:bulk_transition", "status": "failure"})
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("bulk job success ratio too low: %f", ratio)
	}

	succeededUnits := metricValue(t, families, "odyssey_wms_job_units_total", map[string]string{"job": "documents:bulk_transition", "outcome": "succeeded"})
	failedUnits := metricValue(t, families, "odyssey_wms_job_units_total", map[string]string{"job": "documents:bulk_transition", "outcome": "failed"})
	if succeededUnits != 960 || failedUnits != 40 {
		t.Fatalf("unexpected unit counts: succeeded=%f failed=%f", succeededUnits, failedUnits)
	}

	importDuration := histogramMean(t, families, "odyssey_wms_job_duration_seconds", map[string]string{"job": "imports:rows"})
	if importDuration > 2.0 {
		t.Fatalf("import duration above budget: %f", importDuration)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
