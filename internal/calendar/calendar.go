// Package calendar pushes reminder events to a calendar collaborator.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/upstream"
)

// Collaborator names the calendar sink in upstream errors.
const Collaborator = "calendar sink"

// Sink creates calendar entries.
type Sink interface {
	CreateEvent(ctx context.Context, event models.ReminderEvent) (models.CalendarResult, error)
}

// SimulatedSink reports success without talking to any calendar service.
type SimulatedSink struct {
	mu      sync.Mutex
	now     func() time.Time
	created []models.ReminderEvent
}

func NewSimulatedSink() *SimulatedSink {
	return &SimulatedSink{now: time.Now}
}

func (s *SimulatedSink) CreateEvent(ctx context.Context, event models.ReminderEvent) (models.CalendarResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created = append(s.created, event)
	return models.CalendarResult{
		EventID:   fmt.Sprintf("sim-%s-%d", s.now().UTC().Format("20060102150405"), len(s.created)),
		Success:   true,
		Simulated: true,
		Message:   "Calendar event simulated (calendar integration not configured)",
	}, nil
}

// Created returns the events passed to the sink so far.
func (s *SimulatedSink) Created() []models.ReminderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReminderEvent(nil), s.created...)
}

// ScheduleAll pushes every event to sink. A failed event is recorded as an
// unsuccessful result and the rest are still attempted; the first failure is
// returned as an upstream error.
func ScheduleAll(ctx context.Context, sink Sink, events []models.ReminderEvent, logger *slog.Logger) ([]models.CalendarResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]models.CalendarResult, 0, len(events))
	var firstErr error
	for _, ev := range events {
		res, err := sink.CreateEvent(ctx, ev)
		if err != nil {
			logger.Warn("calendar event not created", "event_id", ev.ID, "offer_id", ev.OfferID, "error", err)
			if firstErr == nil {
				firstErr = upstream.Unavailable(Collaborator, err)
			}
			res = models.CalendarResult{EventID: ev.ID, Success: false, Message: err.Error()}
		}
		results = append(results, res)
	}
	return results, firstErr
}
