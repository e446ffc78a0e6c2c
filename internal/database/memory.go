package database

import (
	"context"
	"fmt"
	"sync"

	"credit-coupling-api/internal/models"
)

// MemoryStore keeps the feedback log in process memory. It is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.FeedbackRecord
	ids     map[string]struct{}
}

// NewMemoryStore creates an empty in-memory feedback log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

// Append adds a record to the end of the log. A repeated id yields ErrDuplicateID.
func (m *MemoryStore) Append(ctx context.Context, record models.FeedbackRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[record.ID]; ok {
		return fmt.Errorf("feedback %s: %w", record.ID, ErrDuplicateID)
	}
	m.ids[record.ID] = struct{}{}
	m.records = append(m.records, cloneRecord(record))
	return nil
}

// ListByOffer returns the records for offerID in insertion order.
func (m *MemoryStore) ListByOffer(ctx context.Context, offerID string) ([]models.FeedbackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.FeedbackRecord
	for _, rec := range m.records {
		if rec.OfferID == offerID {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

// Len returns the total number of records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close is a no-op so both stores can be closed the same way.
func (m *MemoryStore) Close() error {
	return nil
}

func cloneRecord(rec models.FeedbackRecord) models.FeedbackRecord {
	rec.Context.ActiveServices = append([]string(nil), rec.Context.ActiveServices...)
	return rec
}
