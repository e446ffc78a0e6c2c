package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"credit-coupling-api/internal/models"
)

// EventType identifies a domain event.
type EventType string

const (
	// EventFeedbackRecorded is emitted after a feedback record is stored.
	EventFeedbackRecorded EventType = "feedback.recorded"
	// EventRecommendationsScored is emitted after a spend snapshot is scored.
	EventRecommendationsScored EventType = "recommendations.scored"
	// EventRemindersScheduled is emitted after reminder events are pushed to the calendar sink.
	EventRemindersScheduled EventType = "reminders.scheduled"
)

// Event is a published event with its payload.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

// FeedbackRecordedData carries the stored record.
type FeedbackRecordedData struct {
	Record models.FeedbackRecord
}

// RecommendationsScoredData summarizes a scoring run.
type RecommendationsScoredData struct {
	Results  []models.EligibilityResult
	ScoredAt time.Time
}

// RemindersScheduledData summarizes a scheduling run.
type RemindersScheduledData struct {
	Events  []models.ReminderEvent
	Results []models.CalendarResult
}

// Handler handles a published event.
type Handler func(ctx context.Context, event Event) error

// Manager fans events out to subscribed handlers.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewManager creates an event manager. A disabled manager drops subscriptions and events.
func NewManager(enabled bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}
	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish runs every handler for the event type in its own goroutine.
// Handler errors are logged and never reach the publisher.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data any) {
	m.mu.RLock()
	if !m.enabled {
		m.mu.RUnlock()
		return
	}
	handlers := append([]Handler(nil), m.handlers[eventType]...)
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	// Handlers outlive the request that published them.
	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		m.wg.Add(1)
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(ctx, event); err != nil {
				m.logger.Error("event handler failed", "event", string(event.Type), "error", err)
			}
		}(handler)
	}
}

// PublishFeedbackRecorded publishes a feedback.recorded event.
func (m *Manager) PublishFeedbackRecorded(ctx context.Context, rec models.FeedbackRecord) {
	m.Publish(ctx, EventFeedbackRecorded, FeedbackRecordedData{Record: rec})
}

// PublishRecommendationsScored publishes a recommendations.scored event.
func (m *Manager) PublishRecommendationsScored(ctx context.Context, results []models.EligibilityResult) {
	m.Publish(ctx, EventRecommendationsScored, RecommendationsScoredData{
		Results:  results,
		ScoredAt: time.Now().UTC(),
	})
}

// PublishRemindersScheduled publishes a reminders.scheduled event.
func (m *Manager) PublishRemindersScheduled(ctx context.Context, evs []models.ReminderEvent, results []models.CalendarResult) {
	m.Publish(ctx, EventRemindersScheduled, RemindersScheduledData{
		Events:  evs,
		Results: results,
	})
}

// Wait blocks until in-flight handlers finish.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown disables the manager, drops handlers and waits for in-flight ones.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.wg.Wait()
}
