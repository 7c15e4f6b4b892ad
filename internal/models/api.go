package models

import "time"

// RecommendRequest is the request body for both ranking endpoints.
type RecommendRequest struct {
	User UserProfile `json:"user"`
	Plan Plan        `json:"plan"`
	TopK int         `json:"top_k" validate:"gte=0,lte=100"`
}

// RecommendationResponse is the response payload of the primary ranking.
type RecommendationResponse struct {
	RequestID       string            `json:"request_id"`
	Recommendations []ScoredCandidate `json:"recommendations"`
	TotalCount      int               `json:"total_count"`
	CatalogVersion  uint64            `json:"catalog_version"`
	Timestamp       string            `json:"timestamp"`
}

// AlternativesResponse is the response payload of the alternative ranking.
type AlternativesResponse struct {
	RequestID            string                 `json:"request_id"`
	NearTimeOffers       []AlternativeCandidate `json:"near_time_offers"`
	CategoryAlternatives []AlternativeCandidate `json:"category_alternatives"`
	CatalogVersion       uint64                 `json:"catalog_version"`
	Timestamp            string                 `json:"timestamp"`
}

// AlternativeMessagesResponse carries narrated messages for both alternative
// tracks.
type AlternativeMessagesResponse struct {
	RequestID            string    `json:"request_id"`
	NearTimeOffers       []Message `json:"near_time_offers"`
	CategoryAlternatives []Message `json:"category_alternatives"`
}

// CatalogStatus describes the catalog snapshot currently served.
type CatalogStatus struct {
	Version     uint64    `json:"version"`
	Source      string    `json:"source"`
	OffersCount int       `json:"offers_count"`
	EventsCount int       `json:"events_count"`
	Skipped     int       `json:"skipped"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	DataLoaded  bool   `json:"data_loaded"`
	OffersCount int    `json:"offers_count"`
	EventsCount int    `json:"events_count"`
}

// FeatureUpdateRequest is the body of PUT /features/{name}.
type FeatureUpdateRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
