package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the qualification tier of an offer against observed spend.
type Status string

const (
	StatusQualified          Status = "qualified"
	StatusPartiallyQualified Status = "partially_qualified"
	StatusOpportunity        Status = "opportunity"
)

// Actionable reports whether the status has anything to attest.
func (s Status) Actionable() bool {
	return s == StatusQualified || s == StatusPartiallyQualified
}

// Action is a user decision on a recommendation.
type Action string

const (
	ActionAccepted Action = "accepted"
	ActionRejected Action = "rejected"
)

// Confidence is a coarse bucket of historical acceptance for an offer.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
	ConfidenceNew    Confidence = "new"
)

// ServiceSpend maps a billing service display name to its spend over the lookback window.
type ServiceSpend map[string]decimal.Decimal

// AttestationMeta describes the submission deadline of an offer.
type AttestationMeta struct {
	Title               string    `json:"title"`
	Deadline            time.Time `json:"deadline"`
	ReminderOffsetsDays []int     `json:"reminder_offsets_days"` // strictly decreasing, e.g. [30,14,7,3,1]
	RequiredDocuments   []string  `json:"required_documents"`
	Template            string    `json:"template"`
}

// CreditOffer is a promotional credit bundle tied to a combination of services.
type CreditOffer struct {
	ID                 string          `json:"id" validate:"required,max=64"`
	Name               string          `json:"name" validate:"required"`
	DiscountPercent    decimal.Decimal `json:"discount_percent"`
	PrimaryServices    []string        `json:"primary_services" validate:"min=1,dive,required"`
	SupportingServices []string        `json:"supporting_services" validate:"dive,required"`
	MinimumSpend       decimal.Decimal `json:"minimum_spend"`
	Description        string          `json:"description"`
	Attestation        AttestationMeta `json:"attestation"`
}

// ServiceMatch is an observed service that satisfied a requirement.
type ServiceMatch struct {
	Service string          `json:"service"`
	Spend   decimal.Decimal `json:"spend"`
}

// EligibilityResult is the scored outcome of one offer. It is never persisted.
type EligibilityResult struct {
	OfferID            string          `json:"offer_id"`
	OfferName          string          `json:"offer_name"`
	DiscountPercent    decimal.Decimal `json:"discount_percent"`
	Status             Status          `json:"status"`
	MatchedPrimary     []ServiceMatch  `json:"matched_primary"`
	MatchedSupporting  []ServiceMatch  `json:"matched_supporting"`
	MissingPrimary     []string        `json:"missing_primary"`
	MissingSupporting  []string        `json:"missing_supporting"`
	TotalMatchedSpend  decimal.Decimal `json:"total_matched_spend"`
	MinimumSpend       decimal.Decimal `json:"minimum_spend"`
	PotentialSavings   decimal.Decimal `json:"potential_savings"`
	RecommendationText string          `json:"recommendation_text"`

	// Presentational only, set by the learner.
	Confidence   Confidence `json:"confidence,omitempty"`
	LearningNote string     `json:"learning_note,omitempty"`
}

// UserContext is a snapshot of the account captured when feedback is given.
type UserContext struct {
	CurrentSpend       decimal.Decimal `json:"current_spend"`
	CommitmentProgress float64         `json:"commitment_progress"`
	ActiveServices     []string        `json:"active_services"`
}

// FeedbackRecord is an append-only user decision on a recommendation.
type FeedbackRecord struct {
	ID        string      `json:"id"`
	OfferID   string      `json:"offer_id"`
	Action    Action      `json:"action"`
	Reason    string      `json:"reason,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Context   UserContext `json:"context"`
}

// UserPreference is derived from all feedback for one offer.
type UserPreference struct {
	OfferID          string   `json:"offer_id"`
	AcceptedCount    int      `json:"accepted_count"`
	RejectedCount    int      `json:"rejected_count"`
	AcceptanceRate   *float64 `json:"acceptance_rate"` // nil when never rated
	RejectionReasons []string `json:"rejection_reasons"`
}

// ReminderEvent is a countdown reminder for an attestation deadline.
type ReminderEvent struct {
	ID                 string    `json:"event_id"`
	OfferID            string    `json:"offer_id"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	FireDate           time.Time `json:"fire_date"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	ReminderMinutes    int       `json:"reminder_minutes"`
	Category           string    `json:"category"`
	DaysBeforeDeadline int       `json:"days_before_deadline"`
	Stale              bool      `json:"stale"`
}

// CalendarResult is what a calendar sink reports for one event.
type CalendarResult struct {
	EventID   string `json:"event_id"`
	Success   bool   `json:"success"`
	Simulated bool   `json:"simulated"`
	Message   string `json:"message,omitempty"`
}

// Notification is a rendered message for the notification sink.
type Notification struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// DeliveryResult is what a notification sink reports.
type DeliveryResult struct {
	Success    bool     `json:"success"`
	Simulated  bool     `json:"simulated"`
	Recipients []string `json:"recipients"`
	Message    string   `json:"message,omitempty"`
}

// CommitmentExtraction is the outcome of scanning a document for a commitment figure.
type CommitmentExtraction struct {
	Commitment    decimal.Decimal `json:"commitment"`
	MonthlyTarget decimal.Decimal `json:"monthly_target"`
	Matched       bool            `json:"matched"`
	Label         string          `json:"label,omitempty"`
}

// RecommendationsRequest carries a caller-supplied spend snapshot.
type RecommendationsRequest struct {
	Spend ServiceSpend `json:"spend"`
}

// RecommendationsResponse is the response payload for scoring.
type RecommendationsResponse struct {
	GeneratedAt     time.Time           `json:"generated_at"`
	Spend           ServiceSpend        `json:"spend"`
	Recommendations []EligibilityResult `json:"recommendations"`
}

// FeedbackRequest is the request body for recording a decision.
type FeedbackRequest struct {
	ID      string      `json:"id,omitempty"`
	OfferID string      `json:"offer_id"`
	Action  Action      `json:"action"`
	Reason  string      `json:"reason,omitempty"`
	Context UserContext `json:"context"`
}

// PreferencesResponse combines derived preferences and the confidence label.
type PreferencesResponse struct {
	UserPreference
	Confidence Confidence `json:"confidence"`
}

// RemindersRequest optionally overrides the clock used to flag stale reminders.
type RemindersRequest struct {
	Now *time.Time `json:"now,omitempty"`
}

// RemindersResponse lists generated reminders and the calendar sink outcome.
type RemindersResponse struct {
	Events  []ReminderEvent  `json:"events"`
	Results []CalendarResult `json:"results"`
	// Notified counts reminders firing today that were sent to the notifier.
	Notified int `json:"notified"`
}

// ExtractRequest is plain text previously pulled out of an uploaded document.
type ExtractRequest struct {
	Text string `json:"text"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
