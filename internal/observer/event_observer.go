package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/webcritic-go/pkg/models"
)

// Event is published for every state mutation and flow milestone of a session
type Event struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	SessionID      string                 `json:"session_id"`
	Snapshot       *models.StateSnapshot  `json:"snapshot,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time,omitempty"`
	Success        bool                   `json:"success"`
	ErrorType      string                 `json:"error_type,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of session event
type EventType string

const (
	// StateChanged after any mutation of a session's state
	StateChanged EventType = "state_changed"
	// CritiqueStarted when an upload is accepted and the model call is queued
	CritiqueStarted EventType = "critique_started"
	// CritiqueCompleted when a reply was parsed and applied
	CritiqueCompleted EventType = "critique_completed"
	// CritiqueFailed when the model call or parsing failed
	CritiqueFailed EventType = "critique_failed"
	// UploadFailed when an upload could not be decoded or fetched before a critique started
	UploadFailed EventType = "upload_failed"
	// UploadRejected when an upload arrives while a critique is in flight
	UploadRejected EventType = "upload_rejected"
	// ImageFetched when a remote screenshot was downloaded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a remote screenshot could not be downloaded
	ImageFetchFailed EventType = "image_fetch_failed"
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

// LoggingObserver logs session events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles session events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"session_id": event.SessionID,
	}
	if event.ProcessingTime > 0 {
		fields["processing_time"] = event.ProcessingTime.String()
	}
	if event.ErrorMessage != "" {
		fields["error_type"] = event.ErrorType
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case StateChanged:
		if event.Snapshot != nil {
			fields["processing"] = event.Snapshot.Processing
		}
		o.logger.WithFields(fields).Debug("Session state changed")
	case CritiqueStarted:
		o.logger.WithFields(fields).Info("Critique started")
	case CritiqueCompleted:
		o.logger.WithFields(fields).Info("Critique completed")
	case CritiqueFailed:
		o.logger.WithFields(fields).Error("Critique failed")
	case UploadFailed:
		o.logger.WithFields(fields).Warn("Upload failed before critique")
	case UploadRejected:
		o.logger.WithFields(fields).Warn("Upload rejected while critique in flight")
	case ImageFetched:
		o.logger.WithFields(fields).Debug("Screenshot fetched successfully")
	case ImageFetchFailed:
		o.logger.WithFields(fields).Error("Screenshot fetch failed")
	default:
		o.logger.WithFields(fields).Info("Session event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects metrics from session events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalCritiques      int64
	successfulCritiques int64
	failedCritiques     int64
	rejectedUploads     int64
	failedUploads       int64
	failuresByType      map[string]int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{failuresByType: make(map[string]int64)}
}

// OnEvent handles session events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case CritiqueStarted:
		o.totalCritiques++
	case CritiqueCompleted:
		o.successfulCritiques++
		o.totalProcessingTime += event.ProcessingTime
	case CritiqueFailed:
		o.failedCritiques++
		o.failuresByType[event.ErrorType]++
	case UploadFailed:
		o.failedUploads++
	case UploadRejected:
		o.rejectedUploads++
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

	avgProcessingTime := time.Duration(0)
	if o.successfulCritiques > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulCritiques)
	}

	failures := make(map[string]int64, len(o.failuresByType))
	for k, v := range o.failuresByType {
		failures[k] = v
	}

	return map[string]interface{}{
		"total_critiques":         o.totalCritiques,
		"successful_critiques":    o.successfulCritiques,
		"failed_critiques":        o.failedCritiques,
		"rejected_uploads":        o.rejectedUploads,
		"failed_uploads":          o.failedUploads,
		"failures_by_type":        failures,
		"total_processing_time_s": o.totalProcessingTime.Seconds(),
		"avg_processing_time_s":   avgProcessingTime.Seconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher with optional initial observers
func NewEventPublisher(observers ...Observer) *EventPublisher {
	p := &EventPublisher{
		observers: make([]Observer, 0, len(observers)),
	}
	p.observers = append(p.observers, observers...)
	return p
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

// NotifyObservers delivers the event to every observer in subscription order
// on the caller's goroutine. Observers must not block.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event Event) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, observer := range observers {
		notifyOne(ctx, observer, event)
	}
}

func notifyOne(ctx context.Context, obs Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			// Log panic but don't crash the application
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}

// ObserverFunc adapts a function into a named Observer
type ObserverFunc struct {
	Name string
	Fn   func(ctx context.Context, event Event)
}

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) { f.Fn(ctx, event) }

func (f ObserverFunc) GetObserverName() string { return f.Name }
