package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"benefit-recommendation-api/internal/features"
	"benefit-recommendation-api/internal/logging"
	"benefit-recommendation-api/internal/models"
	"benefit-recommendation-api/internal/recommend"
	"benefit-recommendation-api/internal/service"
	"benefit-recommendation-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// Routes mounts every API endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Post("/recommendations", h.Recommend)
	r.Post("/recommendations/alternatives", h.RecommendAlternatives)
	r.Post("/recommendations/alternatives/messages", h.AlternativeMessages)

	r.Get("/catalog", h.CatalogStatus)
	r.Post("/catalog/reload", h.ReloadCatalog)

	r.Get("/features", h.ListFeatures)
	r.Put("/features/{name}", h.UpdateFeature)
}

// Recommend handles POST /recommendations
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.Recommend(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// RecommendAlternatives handles POST /recommendations/alternatives
func (h *Handler) RecommendAlternatives(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.RecommendAlternatives(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// AlternativeMessages handles POST /recommendations/alternatives/messages
func (h *Handler) AlternativeMessages(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.AlternativeMessages(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// CatalogStatus handles GET /catalog
func (h *Handler) CatalogStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.CatalogStatus()
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, status)
}

// ReloadCatalog handles POST /catalog/reload
func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.ReloadCatalog(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, status)
}

// ListFeatures handles GET /features
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"features": h.service.Features(),
	})
}

// UpdateFeature handles PUT /features/{name}
func (h *Handler) UpdateFeature(w http.ResponseWriter, r *http.Request) {
	name := validation.SanitizeString(chi.URLParam(r, "name"))

	var req models.FeatureUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validation.ValidateFeatureUpdate(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flag, err := h.service.SetFeature(r.Context(), name, *req.Enabled)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, flag)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Health())
}

// decode reads a size-limited JSON body into v. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	// Limit request body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			h.respondError(w, http.StatusBadRequest, "request body is required")
		case errors.As(err, &maxErr):
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		default:
			h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		}
		return false
	}
	return true
}

// respondServiceError maps service errors onto status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *validation.ValidationError
	switch {
	case errors.As(err, &vErr), errors.Is(err, recommend.ErrInvalidRequest):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, features.ErrUnknownFlag):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCatalogUnavailable):
		h.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
