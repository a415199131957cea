package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusSink_IncCounterCreatesAndAccumulates(t *testing.T) {
	s := NewPrometheusSink(prometheus.NewRegistry())
	labels := map[string]string{"status": "ok"}
	s.IncCounter("batch_failures_total", labels)
	s.IncCounter("batch_failures_total", labels)

	mfs, err := s.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "ingestkit_batch_failures_total" {
			found = true
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
				t.Fatalf("counter value = %v, want 2", got)
			}
		}
	}
	if !found {
		t.Fatalf("metric not registered")
	}
}

func TestPrometheusSink_SetGaugeOverwrites(t *testing.T) {
	s := NewPrometheusSink(nil)
	labels := map[string]string{"priority": "dip"}
	s.SetGauge("active_packages", labels, 3)
	s.SetGauge("active_packages", labels, 5)

	mfs, _ := s.Registry().Gather()
	for _, mf := range mfs {
		if mf.GetName() == "ingestkit_active_packages" {
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 5 {
				t.Fatalf("gauge value = %v, want 5", got)
			}
		}
	}
}

func TestTaskDurationObserver_ObservesHistogram(t *testing.T) {
	s := NewPrometheusSink(nil)
	obs := TaskDurationObserver{Sink: s}
	obs.ObserveTaskDuration("normalize", 0, 2*time.Second)

	mfs, _ := s.Registry().Gather()
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "ingestkit_task_duration_seconds" {
			found = true
			if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
				t.Fatalf("sample count = %v, want 1", got)
			}
		}
	}
	if !found {
		t.Fatalf("histogram not registered")
	}
}
