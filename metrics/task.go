package metrics

import (
	"strconv"
	"time"
)

// TaskDurationObserver adapts a Sink to task.MetricsSink's
// ObserveTaskDuration(execution, exitCode, duration) shape, keeping the
// task package decoupled from this one (it declares its own MetricsSink
// interface rather than importing metrics directly).
type TaskDurationObserver struct {
	Sink Sink
}

func (o TaskDurationObserver) ObserveTaskDuration(execution string, exitCode int, d time.Duration) {
	labels := map[string]string{
		"execution": execution,
		"exit_code": strconv.Itoa(exitCode),
	}
	o.Sink.ObserveHistogram("task_duration_seconds", labels, d.Seconds())
}
