package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event describes one artifact write or diagnostics run
type Event struct {
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	JobID        string                 `json:"job_id,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Path         string                 `json:"path,omitempty"`
	Duration     time.Duration          `json:"duration"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of event
type EventType string

const (
	ArtifactSaved        EventType = "artifact_saved"
	ArtifactSaveFailed   EventType = "artifact_save_failed"
	ArtifactMirrored     EventType = "artifact_mirrored"
	ArtifactMirrorFailed EventType = "artifact_mirror_failed"
	DiagnosticsGathered  EventType = "diagnostics_gathered"
	DiagnosticsFailed    EventType = "diagnostics_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event Event)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event Event)
}

// LoggingObserver logs events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) {
	fields := logrus.Fields{
		"event_type":  event.EventType,
		"duration_ms": event.Duration.Milliseconds(),
		"success":     event.Success,
	}
	if event.JobID != "" {
		fields["job_id"] = event.JobID
		fields["category"] = event.Category
	}
	if event.Path != "" {
		fields["path"] = event.Path
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ArtifactSaved:
		entry.Debug("Artifact saved")
	case ArtifactSaveFailed:
		entry.Error("Artifact save failed")
	case ArtifactMirrored:
		entry.Debug("Artifact mirrored")
	case ArtifactMirrorFailed:
		entry.Warn("Artifact mirror failed")
	case DiagnosticsGathered:
		entry.Debug("Diagnostics gathered")
	case DiagnosticsFailed:
		entry.Error("Diagnostics gathering failed")
	default:
		entry.Info("Event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver counts events
type MetricsObserver struct {
	mu               sync.RWMutex
	savesSucceeded   int64
	savesFailed      int64
	mirrorsFailed    int64
	diagnosticsRuns  int64
	diagnosticsFails int64
	totalSaveTime    time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case ArtifactSaved:
		o.savesSucceeded++
		o.totalSaveTime += event.Duration
	case ArtifactSaveFailed:
		o.savesFailed++
	case ArtifactMirrorFailed:
		o.mirrorsFailed++
	case DiagnosticsGathered:
		o.diagnosticsRuns++
	case DiagnosticsFailed:
		o.diagnosticsFails++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgSaveTime := time.Duration(0)
	if o.savesSucceeded > 0 {
		avgSaveTime = o.totalSaveTime / time.Duration(o.savesSucceeded)
	}

	return map[string]interface{}{
		"saves_succeeded":    o.savesSucceeded,
		"saves_failed":       o.savesFailed,
		"mirrors_failed":     o.mirrorsFailed,
		"diagnostics_runs":   o.diagnosticsRuns,
		"diagnostics_failed": o.diagnosticsFails,
		"avg_save_time_ms":   avgSaveTime.Milliseconds(),
		"total_save_time_ms": o.totalSaveTime.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Delivery is
// asynchronous; a panicking observer is logged and ignored.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event Event) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Nop discards events. Components use it when no publisher is wired.
type Nop struct{}

func (Nop) Subscribe(Observer)                     {}
func (Nop) Unsubscribe(Observer)                   {}
func (Nop) NotifyObservers(context.Context, Event) {}
