/*
Package events carries structured engine events to the host.

PURPOSE:
  The engine announces what happened ("recalculation complete", "PIP
  triggered", "performance warning"); actual delivery - email, SMS,
  webhooks - is the host's business. Hosts implement Sink; the default
  sink just logs.
*/
package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/performance-engine/scoring"
)

// Type identifies what happened.
type Type string

const (
	RecalculationComplete Type = "recalculation_complete"
	PIPTriggered          Type = "pip_triggered"
	PerformanceWarning    Type = "performance_warning"
)

// Event is one structured engine announcement.
type Event struct {
	Type       Type
	EmployeeID scoring.EmployeeID
	At         time.Time
	Fields     map[string]any
}

// Sink receives engine events. Publish must not block the calculation
// path for long and must never panic; delivery failures are the sink's
// problem to log or retry.
type Sink interface {
	Publish(ctx context.Context, e Event)
}

// =============================================================================
// DEFAULT SINKS
// =============================================================================

// LogSink writes every event as a structured log line.
type LogSink struct {
	log *logrus.Entry
}

func NewLogSink(log *logrus.Entry) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(_ context.Context, e Event) {
	fields := logrus.Fields{
		"event":    string(e.Type),
		"employee": string(e.EmployeeID),
	}
	for k, v := range e.Fields {
		fields[k] = v
	}
	s.log.WithFields(fields).Info("engine event")
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) {}
