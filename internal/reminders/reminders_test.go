package reminders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-coupling-api/internal/catalog"
	"credit-coupling-api/internal/models"
)

var deadline = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

func serverlessResult(status models.Status) models.EligibilityResult {
	return models.EligibilityResult{
		OfferID:          "serverless_credit",
		OfferName:        "Serverless Optimization Credit",
		DiscountPercent:  decimal.NewFromInt(18),
		Status:           status,
		PotentialSavings: decimal.RequireFromString("6.318"),
	}
}

func serverlessMeta() models.AttestationMeta {
	return models.AttestationMeta{
		Title:               "Serverless Optimization Attestation",
		Deadline:            deadline,
		ReminderOffsetsDays: []int{30, 14, 7, 3, 1},
		RequiredDocuments:   []string{"Lambda invocation metrics", "API Gateway usage"},
		Template:            "Serverless architecture attestation form",
	}
}

func TestGenerateEvents_OnePerOffset(t *testing.T) {
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

	events := GenerateEvents(serverlessResult(models.StatusPartiallyQualified), serverlessMeta(), now)
	require.Len(t, events, 5)

	wantDates := []time.Time{
		time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 17, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC),
	}
	for i, ev := range events {
		assert.Equal(t, wantDates[i], ev.FireDate, "offset %d", ev.DaysBeforeDeadline)
		assert.Equal(t, wantDates[i].Add(9*time.Hour), ev.StartTime)
		assert.Equal(t, wantDates[i].Add(10*time.Hour), ev.EndTime)
		assert.Equal(t, CategoryAttestation, ev.Category)
		assert.Equal(t, 15, ev.ReminderMinutes)
		assert.Equal(t, "serverless_credit", ev.OfferID)
		assert.False(t, ev.Stale)
		assert.Contains(t, ev.ID, "attestation-")
	}

	assert.Equal(t, "URGENT: Serverless Optimization Attestation - 30 days remaining", events[0].Title)
	assert.Equal(t, "URGENT: Serverless Optimization Attestation - 1 day remaining", events[4].Title)
}

func TestGenerateEvents_Body(t *testing.T) {
	events := GenerateEvents(serverlessResult(models.StatusQualified), serverlessMeta(), deadline)
	require.NotEmpty(t, events)

	body := events[0].Body
	assert.Contains(t, body, "Current Status: qualified")
	assert.Contains(t, body, "Potential Savings: $6.32/month")
	assert.Contains(t, body, "- Lambda invocation metrics")
	assert.Contains(t, body, "- API Gateway usage")
	assert.Contains(t, body, "Deadline: 2025-12-31")
	assert.Contains(t, body, "Template: Serverless architecture attestation form")
}

func TestGenerateEvents_OpportunityProducesNothing(t *testing.T) {
	events := GenerateEvents(serverlessResult(models.StatusOpportunity), serverlessMeta(), deadline)
	assert.Empty(t, events)
}

func TestGenerateEvents_PastEventsAreKeptAndFlagged(t *testing.T) {
	now := time.Date(2025, 12, 20, 15, 0, 0, 0, time.UTC)

	events := GenerateEvents(serverlessResult(models.StatusQualified), serverlessMeta(), now)
	require.Len(t, events, 5)

	assert.True(t, events[0].Stale, "30 days before is in the past")
	assert.True(t, events[1].Stale, "14 days before is in the past")
	assert.False(t, events[2].Stale, "7 days before is still ahead")
	assert.False(t, events[4].Stale)
}

func TestGenerateEvents_DefaultsTitle(t *testing.T) {
	meta := serverlessMeta()
	meta.Title = ""

	events := GenerateEvents(serverlessResult(models.StatusQualified), meta, deadline)
	require.NotEmpty(t, events)
	assert.Contains(t, events[0].Title, "Serverless Optimization Credit Attestation")
}

func TestGenerateAll(t *testing.T) {
	results := []models.EligibilityResult{
		serverlessResult(models.StatusQualified),
		{OfferID: "gen_ai_credit", OfferName: "Generative AI Credit", Status: models.StatusOpportunity},
		{OfferID: "unknown", Status: models.StatusQualified},
	}

	events := GenerateAll(results, catalog.Default(), deadline)
	assert.Len(t, events, 5)
	for _, ev := range events {
		assert.Equal(t, "serverless_credit", ev.OfferID)
	}
}
