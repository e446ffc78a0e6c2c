package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credit-coupling-api/internal/database"
	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/service"
	"credit-coupling-api/internal/upstream"
	"credit-coupling-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
	logger      *slog.Logger
}

// Options holds options for creating a handler.
type Options struct {
	MaxBodySize int64
	Logger      *slog.Logger
}

// DefaultOptions returns default handler options.
func DefaultOptions() Options {
	return Options{
		MaxBodySize: 1 << 20,
		Logger:      slog.Default(),
	}
}

// NewHandler creates a handler with default options.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultOptions())
}

// NewHandlerWithOptions creates a handler with custom options.
func NewHandlerWithOptions(svc *service.Service, opts Options) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultOptions().MaxBodySize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
		logger:      opts.Logger,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/offers", h.ListOffers)
	r.Get("/features", h.ListFeatures)
	r.Get("/recommendations", h.GetRecommendations)
	r.Post("/recommendations", h.ScoreRecommendations)
	r.Post("/feedback", h.RecordFeedback)
	r.Get("/feedback/{offer_id}/preferences", h.GetPreferences)
	r.Post("/spend/refresh", h.RefreshSpend)
	r.Post("/reminders", h.ScheduleReminders)
	r.Post("/commitment/extract", h.ExtractCommitment)
}

// ListOffers handles GET /offers
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Offers())
}

// ListFeatures handles GET /features
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Features())
}

// GetRecommendations handles GET /recommendations using the configured spend source.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Recommendations(r.Context(), nil)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// ScoreRecommendations handles POST /recommendations with a caller-supplied spend snapshot.
func (h *Handler) ScoreRecommendations(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendationsRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if req.Spend == nil {
		h.respondError(w, http.StatusBadRequest, "spend is required")
		return
	}

	spend, err := validation.SanitizeSpend(req.Spend)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	resp, err := h.service.Recommendations(r.Context(), spend)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// RecordFeedback handles POST /feedback
func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	req.ID = validation.SanitizeString(req.ID)
	req.OfferID = validation.SanitizeString(req.OfferID)
	req.Action = models.Action(validation.SanitizeString(string(req.Action)))
	req.Reason = validation.SanitizeString(req.Reason)

	rec, err := h.service.RecordFeedback(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, rec)
}

// GetPreferences handles GET /feedback/{offer_id}/preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	offerID := validation.SanitizeString(chi.URLParam(r, "offer_id"))

	resp, err := h.service.Preferences(r.Context(), offerID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// RefreshSpend handles POST /spend/refresh by dropping the cached spend snapshot.
func (h *Handler) RefreshSpend(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshSpend(r.Context()); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ScheduleReminders handles POST /reminders. The body is optional.
func (h *Handler) ScheduleReminders(w http.ResponseWriter, r *http.Request) {
	var req models.RemindersRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	now := time.Now().UTC()
	if req.Now != nil {
		now = req.Now.UTC()
	}

	resp, err := h.service.ScheduleReminders(r.Context(), now)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// ExtractCommitment handles POST /commitment/extract
func (h *Handler) ExtractCommitment(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	resp, err := h.service.ExtractCommitment(r.Context(), req.Text)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body into dst and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF):
		if optional {
			return true
		}
		h.respondError(w, http.StatusBadRequest, "request body is required")
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
	}
	return false
}

// respondServiceError maps service errors to status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr   *validation.ValidationError
		fErr   *validation.InvalidFeedbackError
		cfgErr *validation.ConfigurationError
		upErr  *upstream.Error
	)
	switch {
	case errors.As(err, &vErr), errors.As(err, &fErr):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrDuplicateID):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &upErr):
		h.logger.Warn("upstream failure", "path", r.URL.Path, "collaborator", upErr.Collaborator, "error", err)
		h.respondError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &cfgErr):
		h.logger.Error("configuration error", "path", r.URL.Path, "error", err)
		h.respondError(w, http.StatusInternalServerError, "server configuration error")
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
