package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tutortrainer"

// Metrics holds all TutorTrainer metric instruments.
type Metrics struct {
	RunsStarted   metric.Int64Counter
	RunsCompleted metric.Int64Counter
	RunsFailed    metric.Int64Counter
	PollAttempts  metric.Int64Counter
	RunDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("tutortrainer.runs.started",
		metric.WithDescription("Number of assistant runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("tutortrainer.runs.completed",
		metric.WithDescription("Number of assistant runs completed"))
	if err != nil {
		return nil, err
	}

	m.RunsFailed, err = meter.Int64Counter("tutortrainer.runs.failed",
		metric.WithDescription("Number of assistant runs that failed or timed out"))
	if err != nil {
		return nil, err
	}

	m.PollAttempts, err = meter.Int64Counter("tutortrainer.runs.poll_attempts",
		metric.WithDescription("Number of run status polls"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("tutortrainer.run.duration_seconds",
		metric.WithDescription("Assistant run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
