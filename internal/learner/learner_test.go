package learner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-coupling-api/internal/database"
	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/validation"
)

func setupLearner(t *testing.T, opts ...Option) (*Learner, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	return New(store, opts...), store
}

func record(t *testing.T, l *Learner, offerID string, action models.Action, reason string) models.FeedbackRecord {
	t.Helper()
	rec, err := l.Record(context.Background(), Input{OfferID: offerID, Action: action, Reason: reason})
	require.NoError(t, err)
	return rec
}

func TestRecord_CapturesTimestampAndContext(t *testing.T) {
	fixed := time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC)
	l, store := setupLearner(t,
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { return "fb-1" }),
	)

	rec, err := l.Record(context.Background(), Input{
		OfferID: "serverless_credit",
		Action:  models.ActionAccepted,
		Context: models.UserContext{
			CurrentSpend:       decimal.RequireFromString("272.80"),
			CommitmentProgress: 0.55,
			ActiveServices:     []string{"Lambda"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "fb-1", rec.ID)
	assert.Equal(t, fixed, rec.Timestamp)
	assert.Equal(t, 0.55, rec.Context.CommitmentProgress)
	assert.Equal(t, 1, store.Len())
}

func TestRecord_KeepsCallerSuppliedID(t *testing.T) {
	l, _ := setupLearner(t)

	rec, err := l.Record(context.Background(), Input{ID: "caller-id", OfferID: "x", Action: models.ActionRejected})
	require.NoError(t, err)
	assert.Equal(t, "caller-id", rec.ID)
}

func TestRecord_InvalidActionWritesNothing(t *testing.T) {
	l, store := setupLearner(t)

	_, err := l.Record(context.Background(), Input{OfferID: "serverless_credit", Action: "ignored"})

	var fbErr *validation.InvalidFeedbackError
	require.True(t, errors.As(err, &fbErr), "expected InvalidFeedbackError, got %v", err)
	assert.Equal(t, 0, store.Len())
}

func TestPreferencesFor_UndefinedUntilFirstRecord(t *testing.T) {
	l, _ := setupLearner(t)
	ctx := context.Background()

	pref, err := l.PreferencesFor(ctx, "serverless_credit")
	require.NoError(t, err)
	assert.Nil(t, pref.AcceptanceRate)
	assert.Empty(t, pref.RejectionReasons)

	record(t, l, "serverless_credit", models.ActionRejected, "")

	pref, err = l.PreferencesFor(ctx, "serverless_credit")
	require.NoError(t, err)
	require.NotNil(t, pref.AcceptanceRate)
	assert.Equal(t, 0.0, *pref.AcceptanceRate)
}

func TestPreferencesFor_DeduplicatesReasons(t *testing.T) {
	l, store := setupLearner(t)

	record(t, l, "serverless_credit", models.ActionRejected, "too costly")
	record(t, l, "serverless_credit", models.ActionRejected, "too costly")
	record(t, l, "serverless_credit", models.ActionRejected, "not now")
	record(t, l, "serverless_credit", models.ActionAccepted, "ignored for accepted")

	pref, err := l.PreferencesFor(context.Background(), "serverless_credit")
	require.NoError(t, err)

	assert.Equal(t, []string{"too costly", "not now"}, pref.RejectionReasons)
	assert.Equal(t, 4, store.Len())
	assert.Equal(t, 3, pref.RejectedCount)
	assert.Equal(t, 1, pref.AcceptedCount)
}

func TestPreferencesFor_IsolatedPerOffer(t *testing.T) {
	l, _ := setupLearner(t)

	record(t, l, "gen_ai_credit", models.ActionAccepted, "")
	record(t, l, "serverless_credit", models.ActionRejected, "too costly")

	pref, err := l.PreferencesFor(context.Background(), "gen_ai_credit")
	require.NoError(t, err)
	require.NotNil(t, pref.AcceptanceRate)
	assert.Equal(t, 1.0, *pref.AcceptanceRate)
	assert.Empty(t, pref.RejectionReasons)
}

func TestAcceptanceRate_MonotonicInAccepted(t *testing.T) {
	l, _ := setupLearner(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record(t, l, "serverless_credit", models.ActionRejected, "")
	}

	prev := -1.0
	for i := 0; i < 10; i++ {
		record(t, l, "serverless_credit", models.ActionAccepted, "")
		pref, err := l.PreferencesFor(ctx, "serverless_credit")
		require.NoError(t, err)
		require.NotNil(t, pref.AcceptanceRate)
		assert.GreaterOrEqual(t, *pref.AcceptanceRate, prev)
		prev = *pref.AcceptanceRate
	}
}

func TestConfidenceLabel(t *testing.T) {
	tests := []struct {
		name     string
		accepted int
		rejected int
		want     models.Confidence
	}{
		{"no feedback", 0, 0, models.ConfidenceNew},
		{"mostly rejected", 2, 8, models.ConfidenceLow},
		{"mostly accepted", 8, 2, models.ConfidenceHigh},
		{"even split", 5, 5, models.ConfidenceMedium},
		{"exactly low threshold", 3, 7, models.ConfidenceMedium},
		{"exactly high threshold", 7, 3, models.ConfidenceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := setupLearner(t)
			for i := 0; i < tt.accepted; i++ {
				record(t, l, "serverless_credit", models.ActionAccepted, "")
			}
			for i := 0; i < tt.rejected; i++ {
				record(t, l, "serverless_credit", models.ActionRejected, "")
			}

			label, err := l.ConfidenceLabel(context.Background(), "serverless_credit")
			require.NoError(t, err)
			assert.Equal(t, tt.want, label)
		})
	}
}

func TestConfidenceLabel_CustomThresholds(t *testing.T) {
	l, _ := setupLearner(t, WithThresholds(Thresholds{Low: 0.1, High: 0.9}))
	record(t, l, "x", models.ActionAccepted, "")
	for i := 0; i < 4; i++ {
		record(t, l, "x", models.ActionRejected, "")
	}

	label, err := l.ConfidenceLabel(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, models.ConfidenceMedium, label)
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.Error(t, Thresholds{Low: 0.8, High: 0.2}.Validate())
	assert.Error(t, Thresholds{Low: -0.1, High: 0.5}.Validate())
	assert.Error(t, Thresholds{Low: 0.1, High: 1.5}.Validate())
}

func TestAnnotate_DoesNotAlterScoredFields(t *testing.T) {
	l, _ := setupLearner(t)
	for i := 0; i < 2; i++ {
		record(t, l, "serverless_credit", models.ActionAccepted, "")
	}
	for i := 0; i < 8; i++ {
		record(t, l, "serverless_credit", models.ActionRejected, "too costly")
	}
	for i := 0; i < 8; i++ {
		record(t, l, "gen_ai_credit", models.ActionAccepted, "")
	}
	for i := 0; i < 2; i++ {
		record(t, l, "gen_ai_credit", models.ActionRejected, "")
	}

	results := []models.EligibilityResult{
		{
			OfferID:           "serverless_credit",
			Status:            models.StatusPartiallyQualified,
			TotalMatchedSpend: decimal.RequireFromString("35.10"),
			PotentialSavings:  decimal.RequireFromString("6.318"),
		},
		{OfferID: "gen_ai_credit", Status: models.StatusQualified},
		{OfferID: "data_analytics_credit", Status: models.StatusOpportunity},
	}

	annotated, err := l.Annotate(context.Background(), results)
	require.NoError(t, err)
	require.Len(t, annotated, 3)

	assert.Equal(t, models.ConfidenceLow, annotated[0].Confidence)
	assert.Equal(t, "Previously rejected 8 times", annotated[0].LearningNote)
	assert.Equal(t, models.StatusPartiallyQualified, annotated[0].Status)
	assert.True(t, annotated[0].PotentialSavings.Equal(decimal.RequireFromString("6.318")))

	assert.Equal(t, models.ConfidenceHigh, annotated[1].Confidence)
	assert.Contains(t, annotated[1].LearningNote, "80%")

	assert.Equal(t, models.ConfidenceNew, annotated[2].Confidence)

	assert.Empty(t, results[0].Confidence, "input slice must not be modified")
}

func TestRecord_ConcurrentWriters(t *testing.T) {
	l, store := setupLearner(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action := models.ActionAccepted
			if i%2 == 0 {
				action = models.ActionRejected
			}
			_, err := l.Record(context.Background(), Input{OfferID: "serverless_credit", Action: action})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
	pref, err := l.PreferencesFor(context.Background(), "serverless_credit")
	require.NoError(t, err)
	require.NotNil(t, pref.AcceptanceRate)
	assert.Equal(t, 0.5, *pref.AcceptanceRate)
}
