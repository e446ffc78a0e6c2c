// Package learner tracks accept/reject decisions on recommendations and turns
// them into acceptance rates and confidence labels.
package learner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/validation"
)

// Store is the append-only feedback log.
type Store interface {
	// Append must reject a record whose id is already stored.
	Append(ctx context.Context, record models.FeedbackRecord) error
	ListByOffer(ctx context.Context, offerID string) ([]models.FeedbackRecord, error)
}

// Thresholds bucket acceptance rates into confidence labels.
type Thresholds struct {
	Low  float64 `json:"low"`  // rate below this is low
	High float64 `json:"high"` // rate above this is high
}

// DefaultThresholds returns the 0.3 / 0.7 policy.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.3, High: 0.7}
}

// Validate checks 0 <= Low <= High <= 1.
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 1 || t.Low > t.High {
		return fmt.Errorf("confidence thresholds must satisfy 0 <= low <= high <= 1 (low=%v, high=%v)", t.Low, t.High)
	}
	return nil
}

// Label maps a rate to a confidence label.
func (t Thresholds) Label(rate float64) models.Confidence {
	switch {
	case rate < t.Low:
		return models.ConfidenceLow
	case rate > t.High:
		return models.ConfidenceHigh
	default:
		return models.ConfidenceMedium
	}
}

// Learner records feedback and derives preferences from it. Preferences are
// always recomputed from the log, never patched incrementally.
type Learner struct {
	mu         sync.Mutex
	store      Store
	thresholds Thresholds
	now        func() time.Time
	newID      func() string
}

// Option configures a Learner.
type Option func(*Learner)

// WithThresholds overrides the confidence thresholds.
func WithThresholds(t Thresholds) Option {
	return func(l *Learner) {
		l.thresholds = t
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Learner) {
		l.now = now
	}
}

// WithIDGenerator overrides how record ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(l *Learner) {
		l.newID = gen
	}
}

// New creates a learner over store.
func New(store Store, opts ...Option) *Learner {
	l := &Learner{
		store:      store,
		thresholds: DefaultThresholds(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Thresholds returns the configured thresholds.
func (l *Learner) Thresholds() Thresholds {
	return l.thresholds
}

// Input is one user decision. ID is generated when empty.
type Input struct {
	ID      string
	OfferID string
	Action  models.Action
	Reason  string
	Context models.UserContext
}

// Record validates and appends a decision. Nothing is written when the action is invalid.
func (l *Learner) Record(ctx context.Context, in Input) (models.FeedbackRecord, error) {
	if err := validation.ValidateAction(in.Action); err != nil {
		return models.FeedbackRecord{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec := models.FeedbackRecord{
		ID:        in.ID,
		OfferID:   in.OfferID,
		Action:    in.Action,
		Reason:    in.Reason,
		Timestamp: l.now(),
		Context:   in.Context,
	}
	if rec.ID == "" {
		rec.ID = l.newID()
	}

	if err := l.store.Append(ctx, rec); err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("failed to append feedback: %w", err)
	}
	return rec, nil
}

// PreferencesFor derives the preference for offerID from every stored record.
func (l *Learner) PreferencesFor(ctx context.Context, offerID string) (models.UserPreference, error) {
	l.mu.Lock()
	records, err := l.store.ListByOffer(ctx, offerID)
	l.mu.Unlock()
	if err != nil {
		return models.UserPreference{}, fmt.Errorf("failed to read feedback: %w", err)
	}
	return Derive(offerID, records), nil
}

// Derive computes a preference from records. Records for other offers are ignored.
func Derive(offerID string, records []models.FeedbackRecord) models.UserPreference {
	pref := models.UserPreference{
		OfferID:          offerID,
		RejectionReasons: []string{},
	}
	seen := make(map[string]bool)

	for _, rec := range records {
		if rec.OfferID != offerID {
			continue
		}
		switch rec.Action {
		case models.ActionAccepted:
			pref.AcceptedCount++
		case models.ActionRejected:
			pref.RejectedCount++
			if rec.Reason != "" && !seen[rec.Reason] {
				seen[rec.Reason] = true
				pref.RejectionReasons = append(pref.RejectionReasons, rec.Reason)
			}
		}
	}

	if total := pref.AcceptedCount + pref.RejectedCount; total > 0 {
		rate := float64(pref.AcceptedCount) / float64(total)
		pref.AcceptanceRate = &rate
	}
	return pref
}

// ConfidenceLabel returns new when no feedback exists, otherwise low, medium or high.
func (l *Learner) ConfidenceLabel(ctx context.Context, offerID string) (models.Confidence, error) {
	pref, err := l.PreferencesFor(ctx, offerID)
	if err != nil {
		return "", err
	}
	return l.label(pref), nil
}

func (l *Learner) label(pref models.UserPreference) models.Confidence {
	if pref.AcceptanceRate == nil {
		return models.ConfidenceNew
	}
	return l.thresholds.Label(*pref.AcceptanceRate)
}

// Annotate returns copies of results with confidence labels and learning notes.
// Scored fields are left untouched.
func (l *Learner) Annotate(ctx context.Context, results []models.EligibilityResult) ([]models.EligibilityResult, error) {
	out := make([]models.EligibilityResult, len(results))
	for i, r := range results {
		pref, err := l.PreferencesFor(ctx, r.OfferID)
		if err != nil {
			return nil, err
		}

		r.Confidence = l.label(pref)
		switch r.Confidence {
		case models.ConfidenceLow:
			r.LearningNote = fmt.Sprintf("Previously rejected %d times", pref.RejectedCount)
		case models.ConfidenceHigh:
			r.LearningNote = fmt.Sprintf("High acceptance rate (%.0f%%) - recommended", *pref.AcceptanceRate*100)
		case models.ConfidenceNew:
			r.LearningNote = "New recommendation - no learning data"
		default:
			r.LearningNote = ""
		}
		out[i] = r
	}
	return out, nil
}
