package models

import "github.com/goccy/go-json"

// recordJSON is the flat wire shape of a BenefitRecord.
type recordJSON struct {
	ID          string       `json:"id"`
	Type        Kind         `json:"type"`
	Title       string       `json:"title,omitempty"`
	Brand       string       `json:"brand,omitempty"`
	Category    string       `json:"category,omitempty"`
	Validity    *Validity    `json:"validity,omitempty"`
	Benefit     *Benefit     `json:"benefit,omitempty"`
	Channels    []string     `json:"channels,omitempty"`
	Eligibility *Eligibility `json:"eligibility,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Exclusions  []string     `json:"exclusions,omitempty"`
	Source      *Source      `json:"source,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

func (r BenefitRecord) flatten() recordJSON {
	out := recordJSON{
		ID:          r.ID,
		Type:        r.Kind,
		Title:       r.Title,
		Brand:       r.Brand,
		Category:    r.Category,
		Validity:    r.Validity,
		Channels:    r.Channels,
		Eligibility: r.Eligibility,
		Source:      r.Source,
	}
	if r.Offer != nil {
		out.Benefit = r.Offer.Benefit
		out.Constraints = r.Offer.Constraints
		out.Exclusions = r.Offer.Exclusions
	}
	if r.Event != nil {
		out.Notes = r.Event.Notes
	}
	return out
}

func (r BenefitRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.flatten())
}

func (c ScoredCandidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		recordJSON
		RecommendationScore float64 `json:"recommendation_score"`
	}{c.Record.flatten(), c.Score})
}

func (c AlternativeCandidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		recordJSON
		RecommendationScore float64 `json:"recommendation_score"`
		AlternativeReason   string  `json:"alternative_reason"`
		AlternativeScore    float64 `json:"alternative_score"`
	}{c.Record.flatten(), c.Score, c.Reason, c.AdjustedScore})
}

// Benefit returns the offer benefit, or nil for events and offers without one.
func (r BenefitRecord) Benefit() *Benefit {
	if r.Offer == nil {
		return nil
	}
	return r.Offer.Benefit
}

// Constraints returns the offer constraints, or nil.
func (r BenefitRecord) Constraints() *Constraints {
	if r.Offer == nil {
		return nil
	}
	return r.Offer.Constraints
}

// Notes returns the event notes, or "" for offers.
func (r BenefitRecord) Notes() string {
	if r.Event == nil {
		return ""
	}
	return r.Event.Notes
}
