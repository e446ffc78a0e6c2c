package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"credit-coupling-api/internal/cache"
	"credit-coupling-api/internal/calendar"
	"credit-coupling-api/internal/catalog"
	"credit-coupling-api/internal/events"
	"credit-coupling-api/internal/extract"
	"credit-coupling-api/internal/features"
	"credit-coupling-api/internal/learner"
	"credit-coupling-api/internal/metrics"
	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/notify"
	"credit-coupling-api/internal/reminders"
	"credit-coupling-api/internal/scorer"
	"credit-coupling-api/internal/spend"
	"credit-coupling-api/internal/tracing"
	"credit-coupling-api/internal/upstream"
	"credit-coupling-api/internal/validation"
)

const spendCacheKey = "spend:current"

// Dependencies wires the service. Catalog and Learner are required; the rest
// fall back to in-process defaults.
type Dependencies struct {
	Catalog  *catalog.Catalog
	Learner  *learner.Learner
	Spend    spend.Source
	Cache    cache.Cache
	CacheTTL time.Duration
	Calendar calendar.Sink
	Notifier notify.Notifier
	// Recipients of "recommendation accepted" and reminder notifications.
	Recipients []string
	Events     *events.Manager
	Features   *features.Manager
	Metrics    *metrics.Metrics
	Tracer     *tracing.Tracer
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service provides the business operations behind the HTTP API and CLI.
type Service struct {
	catalog     *catalog.Catalog
	learner     *learner.Learner
	spend       spend.Source
	cachedSpend *spend.CachedSource
	calendar    calendar.Sink
	notifier    notify.Notifier
	recipients  []string
	events      *events.Manager
	features    *features.Manager
	metrics     *metrics.Metrics
	tracer      *tracing.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a service and subscribes its event hooks.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Catalog == nil {
		return nil, errors.New("service: catalog is required")
	}
	if deps.Learner == nil {
		return nil, errors.New("service: learner is required")
	}

	s := &Service{
		catalog:    deps.Catalog,
		learner:    deps.Learner,
		spend:      deps.Spend,
		calendar:   deps.Calendar,
		notifier:   deps.Notifier,
		recipients: deps.Recipients,
		events:     deps.Events,
		features:   deps.Features,
		metrics:    deps.Metrics,
		tracer:     deps.Tracer,
		logger:     deps.Logger,
		now:        deps.Now,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.spend == nil {
		static, err := spend.NewStaticSource(spend.DefaultFallback())
		if err != nil {
			return nil, err
		}
		s.spend = static
	}
	if s.calendar == nil {
		s.calendar = calendar.NewSimulatedSink()
	}
	if s.notifier == nil {
		s.notifier = notify.NewSimulatedNotifier(notify.DefaultDirectory(), s.logger)
	}
	if s.features == nil {
		s.features = features.NewDefaultManager()
	}
	if s.events == nil {
		s.events = events.NewManager(true, s.logger)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewMetrics()
	}
	if s.tracer == nil {
		s.tracer = tracing.Noop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}

	c := deps.Cache
	if c == nil {
		c = cache.NewInMemoryCache()
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	s.cachedSpend = spend.NewCachedSource(s.spend, c, spendCacheKey, ttl)

	s.events.Subscribe(events.EventFeedbackRecorded, s.notifyAccepted)
	return s, nil
}

// Offers returns the credit catalog.
func (s *Service) Offers() []models.CreditOffer {
	return s.catalog.Offers()
}

// Features returns the current feature flags.
func (s *Service) Features() []features.Flag {
	return s.features.All()
}

// Recommendations scores a spend snapshot against the catalog. A nil snapshot
// is fetched from the spend source.
func (s *Service) Recommendations(ctx context.Context, supplied models.ServiceSpend) (models.RecommendationsResponse, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.Recommendations")
	defer span.End()

	results, snapshot, err := s.score(ctx, supplied)
	if err != nil {
		return models.RecommendationsResponse{}, spanError(span, err)
	}

	if s.features.IsEnabled(features.LearningAnnotations) {
		results, err = s.learner.Annotate(ctx, results)
		if err != nil {
			return models.RecommendationsResponse{}, spanError(span, fmt.Errorf("failed to annotate recommendations: %w", err))
		}
	}

	s.publish(func() { s.events.PublishRecommendationsScored(ctx, results) })

	return models.RecommendationsResponse{
		GeneratedAt:     s.now(),
		Spend:           snapshot,
		Recommendations: results,
	}, nil
}

func (s *Service) score(ctx context.Context, supplied models.ServiceSpend) ([]models.EligibilityResult, models.ServiceSpend, error) {
	snapshot := supplied
	if snapshot == nil {
		var err error
		snapshot, err = s.currentSpend(ctx)
		if err != nil {
			return nil, nil, err
		}
	} else if err := validation.ValidateSpend(snapshot); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	opts := scorer.Options{ExclusiveMatching: s.features.IsEnabled(features.ExclusiveMatching)}
	results := scorer.New(s.catalog, opts).Score(snapshot)

	statuses := make(map[string]string, len(results))
	for _, r := range results {
		statuses[r.OfferID] = string(r.Status)
	}
	s.metrics.RecordScore(time.Since(start).Seconds(), statuses)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("spend.services", len(snapshot)),
		attribute.Int("recommendations", len(results)),
	)
	return results, snapshot, nil
}

func (s *Service) currentSpend(ctx context.Context) (models.ServiceSpend, error) {
	if s.features.IsEnabled(features.SpendCache) {
		return s.cachedSpend.CurrentSpend(ctx)
	}
	snapshot, err := s.spend.CurrentSpend(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateSpend(snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RefreshSpend drops the cached spend snapshot.
func (s *Service) RefreshSpend(ctx context.Context) error {
	return s.cachedSpend.Invalidate(ctx)
}

// RecordFeedback stores a decision on a recommendation.
func (s *Service) RecordFeedback(ctx context.Context, req models.FeedbackRequest) (models.FeedbackRecord, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.RecordFeedback",
		trace.WithAttributes(attribute.String("offer.id", req.OfferID)))
	defer span.End()

	if req.OfferID == "" {
		return models.FeedbackRecord{}, spanError(span, &validation.InvalidFeedbackError{Field: "offer_id", Message: "is required"})
	}

	rec, err := s.learner.Record(ctx, learner.Input{
		ID:      req.ID,
		OfferID: req.OfferID,
		Action:  req.Action,
		Reason:  req.Reason,
		Context: req.Context,
	})
	if err != nil {
		return models.FeedbackRecord{}, spanError(span, err)
	}

	s.metrics.RecordFeedback(rec.OfferID, string(rec.Action))
	s.logger.Info("feedback recorded", "offer_id", rec.OfferID, "action", rec.Action, "id", rec.ID)
	s.publish(func() { s.events.PublishFeedbackRecorded(ctx, rec) })
	return rec, nil
}

// Preferences returns what the feedback log says about one offer.
func (s *Service) Preferences(ctx context.Context, offerID string) (models.PreferencesResponse, error) {
	if offerID == "" {
		return models.PreferencesResponse{}, &validation.ValidationError{Field: "offer_id", Message: "is required"}
	}

	pref, err := s.learner.PreferencesFor(ctx, offerID)
	if err != nil {
		return models.PreferencesResponse{}, err
	}
	confidence := models.ConfidenceNew
	if pref.AcceptanceRate != nil {
		confidence = s.learner.Thresholds().Label(*pref.AcceptanceRate)
	}
	return models.PreferencesResponse{UserPreference: pref, Confidence: confidence}, nil
}

// ScheduleReminders generates reminder events for every actionable
// recommendation, pushes the ones still ahead of now to the calendar sink and
// notifies recipients about reminders firing today. It fails only when the
// sink rejected every event it was given.
func (s *Service) ScheduleReminders(ctx context.Context, now time.Time) (models.RemindersResponse, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.ScheduleReminders")
	defer span.End()

	results, _, err := s.score(ctx, nil)
	if err != nil {
		return models.RemindersResponse{}, spanError(span, err)
	}

	evs := reminders.GenerateAll(results, s.catalog, now)
	s.metrics.RemindersGenerated.Add(float64(len(evs)))

	var pending []models.ReminderEvent
	for _, ev := range evs {
		if !ev.Stale {
			pending = append(pending, ev)
		}
	}

	calResults, calErr := calendar.ScheduleAll(ctx, s.calendar, pending, s.logger)
	failed := 0
	for _, r := range calResults {
		if !r.Success {
			failed++
		}
	}
	s.metrics.CalendarFailures.Add(float64(failed))
	if calErr != nil && failed == len(pending) {
		return models.RemindersResponse{}, spanError(span, calErr)
	}

	resp := models.RemindersResponse{
		Events:   evs,
		Results:  calResults,
		Notified: s.notifyDue(ctx, pending, now),
	}
	if resp.Events == nil {
		resp.Events = []models.ReminderEvent{}
	}
	if resp.Results == nil {
		resp.Results = []models.CalendarResult{}
	}

	span.SetAttributes(
		attribute.Int("reminders.generated", len(evs)),
		attribute.Int("reminders.failed", failed),
	)
	s.publish(func() { s.events.PublishRemindersScheduled(ctx, evs, calResults) })
	return resp, nil
}

// notifyDue sends reminders whose fire date is today and returns how many went out.
func (s *Service) notifyDue(ctx context.Context, evs []models.ReminderEvent, now time.Time) int {
	if len(s.recipients) == 0 {
		return 0
	}

	today := now.UTC().Format("2006-01-02")
	sent := 0
	for _, ev := range evs {
		if ev.FireDate.Format("2006-01-02") != today {
			continue
		}
		res, err := s.notifier.Send(ctx, notify.RenderReminder(ev, s.recipients))
		ok := err == nil && res.Success
		s.metrics.RecordNotification("reminder", ok)
		if err != nil {
			s.logger.Warn("reminder notification failed", "event_id", ev.ID, "error", upstream.Unavailable(notify.Collaborator, err))
			continue
		}
		sent++
	}
	return sent
}

// ExtractCommitment reads the commitment figure from document text.
func (s *Service) ExtractCommitment(ctx context.Context, text string) (models.CommitmentExtraction, error) {
	_, span := s.tracer.StartSpan(ctx, "service.ExtractCommitment")
	defer span.End()

	if text == "" {
		return models.CommitmentExtraction{}, spanError(span, &validation.ValidationError{Field: "text", Message: "is required"})
	}

	out := extract.Commitment(text)
	if !out.Matched {
		s.logger.Info("no commitment figure found, using default", "commitment", out.Commitment.String())
	}
	span.SetAttributes(attribute.Bool("commitment.matched", out.Matched))
	return out, nil
}

// notifyAccepted tells recipients when a recommendation is accepted.
func (s *Service) notifyAccepted(ctx context.Context, e events.Event) error {
	data, ok := e.Data.(events.FeedbackRecordedData)
	if !ok || data.Record.Action != models.ActionAccepted || len(s.recipients) == 0 {
		return nil
	}

	offer, ok := s.catalog.Lookup(data.Record.OfferID)
	if !ok {
		s.logger.Debug("accepted offer not in catalog, skipping notification", "offer_id", data.Record.OfferID)
		return nil
	}

	res, err := s.notifier.Send(ctx, notify.RenderAccepted(data.Record, offer, s.recipients))
	s.metrics.RecordNotification("accepted", err == nil && res.Success)
	if err != nil {
		return upstream.Unavailable(notify.Collaborator, err)
	}
	return nil
}

func (s *Service) publish(fn func()) {
	if s.features.IsEnabled(features.EventHooks) {
		fn()
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
