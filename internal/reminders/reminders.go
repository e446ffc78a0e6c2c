// Package reminders turns actionable recommendations into countdown events
// ahead of an attestation deadline.
package reminders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"credit-coupling-api/internal/catalog"
	"credit-coupling-api/internal/models"
)

const (
	CategoryAttestation = "attestation"

	slotStartHour   = 9
	slotDuration    = time.Hour
	reminderMinutes = 15
)

// GenerateEvents emits one reminder per offset in meta. Opportunity results
// produce none. Events whose fire date is before now are kept and flagged stale.
func GenerateEvents(result models.EligibilityResult, meta models.AttestationMeta, now time.Time) []models.ReminderEvent {
	if !result.Status.Actionable() {
		return nil
	}

	title := meta.Title
	if title == "" {
		title = result.OfferName + " Attestation"
	}

	deadline := truncateToDay(meta.Deadline)
	body := renderBody(result, meta)

	events := make([]models.ReminderEvent, 0, len(meta.ReminderOffsetsDays))
	for _, offset := range meta.ReminderOffsetsDays {
		fire := deadline.AddDate(0, 0, -offset)
		start := fire.Add(slotStartHour * time.Hour)

		events = append(events, models.ReminderEvent{
			ID:                 "attestation-" + uuid.New().String(),
			OfferID:            result.OfferID,
			Title:              fmt.Sprintf("URGENT: %s - %s remaining", title, daysLabel(offset)),
			Body:               body,
			FireDate:           fire,
			StartTime:          start,
			EndTime:            start.Add(slotDuration),
			ReminderMinutes:    reminderMinutes,
			Category:           CategoryAttestation,
			DaysBeforeDeadline: offset,
			Stale:              fire.Before(truncateToDay(now)),
		})
	}
	return events
}

// GenerateAll generates reminders for every actionable result whose offer is in cat.
func GenerateAll(results []models.EligibilityResult, cat *catalog.Catalog, now time.Time) []models.ReminderEvent {
	var events []models.ReminderEvent
	for _, r := range results {
		offer, ok := cat.Lookup(r.OfferID)
		if !ok {
			continue
		}
		events = append(events, GenerateEvents(r, offer.Attestation, now)...)
	}
	return events
}

func renderBody(result models.EligibilityResult, meta models.AttestationMeta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Credit: %s (%s%% savings)\n", result.OfferName, result.DiscountPercent)
	fmt.Fprintf(&b, "Deadline: %s\n", meta.Deadline.Format("2006-01-02"))
	fmt.Fprintf(&b, "Current Status: %s\n", result.Status)
	fmt.Fprintf(&b, "Potential Savings: $%s/month\n", result.PotentialSavings.StringFixed(2))

	if len(meta.RequiredDocuments) > 0 {
		b.WriteString("\nRequired Documents:\n")
		for _, doc := range meta.RequiredDocuments {
			fmt.Fprintf(&b, "- %s\n", doc)
		}
	}
	if meta.Template != "" {
		fmt.Fprintf(&b, "\nTemplate: %s\n", meta.Template)
	}
	return strings.TrimRight(b.String(), "\n")
}

func daysLabel(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
