// Package notify renders and delivers notifications about recommendations.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"credit-coupling-api/internal/models"
)

// Collaborator names the notification sink in upstream errors.
const Collaborator = "notification sink"

// Notifier delivers a rendered notification.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) (models.DeliveryResult, error)
}

// Directory expands team aliases to addresses.
type Directory map[string][]string

// DefaultDirectory returns the predefined team lists.
func DefaultDirectory() Directory {
	return Directory{
		"operations": {"ops-team@company.com", "operations-manager@company.com"},
		"management": {"ceo@company.com", "cto@company.com", "cfo@company.com"},
		"it_support": {"it-support@company.com", "sysadmin@company.com"},
		"finance":    {"finance-team@company.com", "accounting@company.com"},
		"hr":         {"hr@company.com", "people-ops@company.com"},
		"legal":      {"legal@company.com", "compliance@company.com"},
	}
}

// Expand replaces known aliases with their addresses and keeps other entries
// as-is. The result is deduplicated in first-seen order.
func (d Directory) Expand(recipients []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[strings.ToLower(addr)] {
			return
		}
		seen[strings.ToLower(addr)] = true
		out = append(out, addr)
	}

	for _, r := range recipients {
		if members, ok := d[strings.ToLower(strings.TrimSpace(r))]; ok {
			for _, m := range members {
				add(m)
			}
			continue
		}
		add(r)
	}
	return out
}

// SimulatedNotifier expands recipients and reports success without sending.
type SimulatedNotifier struct {
	mu        sync.Mutex
	directory Directory
	logger    *slog.Logger
	sent      []models.Notification
}

func NewSimulatedNotifier(directory Directory, logger *slog.Logger) *SimulatedNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulatedNotifier{directory: directory, logger: logger}
}

func (s *SimulatedNotifier) Send(ctx context.Context, n models.Notification) (models.DeliveryResult, error) {
	recipients := s.directory.Expand(n.Recipients)
	if len(recipients) == 0 {
		return models.DeliveryResult{}, fmt.Errorf("notification %q has no recipients", n.Title)
	}
	n.Recipients = recipients

	s.mu.Lock()
	s.sent = append(s.sent, n)
	s.mu.Unlock()

	s.logger.Info("notification simulated", "title", n.Title, "recipients", len(recipients))
	return models.DeliveryResult{
		Success:    true,
		Simulated:  true,
		Recipients: recipients,
		Message:    "Email simulated (mail delivery not configured)",
	}, nil
}

// Sent returns the notifications delivered so far.
func (s *SimulatedNotifier) Sent() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.sent...)
}

// RenderAccepted builds the "recommendation accepted" notification.
func RenderAccepted(rec models.FeedbackRecord, offer models.CreditOffer, recipients []string) models.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "The %s recommendation was accepted on %s.\n", offer.Name, rec.Timestamp.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Discount: %s%%\n", offer.DiscountPercent)
	if offer.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", offer.Description)
	}
	if !offer.Attestation.Deadline.IsZero() {
		fmt.Fprintf(&b, "Attestation deadline: %s\n", offer.Attestation.Deadline.Format("2006-01-02"))
	}
	b.WriteString("\nNext steps:\n")
	b.WriteString("- Review the recommendation details\n")
	b.WriteString("- Check your calendar for attestation reminders\n")
	b.WriteString("- Prepare the required documents\n")

	return models.Notification{
		Title:      fmt.Sprintf("Recommendation Accepted: %s", offer.Name),
		Body:       strings.TrimRight(b.String(), "\n"),
		Recipients: recipients,
	}
}

// RenderReminder wraps a reminder event as a notification.
func RenderReminder(ev models.ReminderEvent, recipients []string) models.Notification {
	return models.Notification{
		Title:      ev.Title,
		Body:       ev.Body,
		Recipients: recipients,
	}
}
