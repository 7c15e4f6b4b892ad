package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Kind tags a benefit record as an offer or an event.
type Kind string

const (
	KindOffer Kind = "offer"
	KindEvent Kind = "event"
)

// BenefitKind is the shape of an offer's benefit.
type BenefitKind string

const (
	BenefitPercent  BenefitKind = "percent"
	BenefitFixed    BenefitKind = "fixed"
	BenefitCashback BenefitKind = "cashback"
	BenefitPoints   BenefitKind = "points"
	BenefitUnknown  BenefitKind = "unknown"
)

// ParseBenefitKind maps a raw kind string to a BenefitKind, falling back to
// BenefitUnknown for anything unrecognised.
func ParseBenefitKind(s string) BenefitKind {
	switch BenefitKind(strings.ToLower(strings.TrimSpace(s))) {
	case BenefitPercent:
		return BenefitPercent
	case BenefitFixed:
		return BenefitFixed
	case BenefitCashback:
		return BenefitCashback
	case BenefitPoints:
		return BenefitPoints
	default:
		return BenefitUnknown
	}
}

// BenefitRecord is a catalog entry. Exactly one of Offer or Event is set,
// matching Kind. Empty strings and nil pointers mean "absent".
type BenefitRecord struct {
	ID          string
	Kind        Kind
	Title       string
	Brand       string
	Category    string
	Validity    *Validity
	Eligibility *Eligibility
	Channels    []string
	Source      *Source

	Offer *OfferTerms
	Event *EventDetails
}

// OfferTerms holds the fields only offers carry.
type OfferTerms struct {
	Benefit     *Benefit
	Constraints *Constraints
	Exclusions  []string
}

// EventDetails holds the fields only events carry.
type EventDetails struct {
	Notes string
}

// Validity is the date window a record may be recommended in.
type Validity struct {
	Start string `json:"start,omitempty"` // ISO-8601 date or timestamp
	End   string `json:"end,omitempty"`
}

// Benefit describes the value of an offer.
type Benefit struct {
	Kind       BenefitKind `json:"kind"`
	Value      *float64    `json:"value,omitempty"`
	MinSpend   *float64    `json:"min_spend,omitempty"`
	MaxBenefit *float64    `json:"max_benefit,omitempty"`
}

// Eligibility gates a record on the user's carrier and payment instruments.
type Eligibility struct {
	TelecomAnyOf []string `json:"telecom_any_of,omitempty"`
	CardsAnyOf   []string `json:"cards_any_of,omitempty"`
}

// Constraints are offer-level usage conditions.
type Constraints struct {
	DaysOfWeek     DaysOfWeek  `json:"days_of_week,omitempty"`
	Times          *TimeRange  `json:"times,omitempty"`
	UsageLimit     *UsageLimit `json:"usage_limit,omitempty"`
	ExclusiveGroup string      `json:"exclusive_group,omitempty"`
}

// TimeRange is a time-of-day window in "HH:MM". Start > End wraps midnight.
type TimeRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// IsZero reports whether t is nil or has neither bound.
func (t *TimeRange) IsZero() bool {
	return t == nil || (t.Start == "" && t.End == "")
}

// UsageLimit caps how often an offer may be redeemed.
type UsageLimit struct {
	Period string `json:"period,omitempty"` // daily|weekly|monthly
	Count  *int   `json:"count,omitempty"`
}

// Source points back to where a record was collected from.
type Source struct {
	URL      string `json:"url,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// DaysOfWeek is a set of weekdays. It serialises as lowercase short names.
type DaysOfWeek []time.Weekday

// Contains reports whether d is in the set.
func (ds DaysOfWeek) Contains(d time.Weekday) bool {
	for _, day := range ds {
		if day == d {
			return true
		}
	}
	return false
}

func (ds DaysOfWeek) MarshalJSON() ([]byte, error) {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = strings.ToLower(d.String()[:3])
	}
	return json.Marshal(names)
}

// UserProfile is the requesting user.
type UserProfile struct {
	Telecom  string   `json:"telecom" validate:"required"`
	Payments []string `json:"payments" validate:"required,min=1,dive,required"`
}

// Plan is the planned visit. Datetime is kept as the caller sent it; the
// engine parses it and fails open when it cannot.
type Plan struct {
	Datetime string `json:"datetime" validate:"required"`
	Brand    string `json:"brand" validate:"required"`
	Category string `json:"category" validate:"required"`
}

// UnmarshalJSON accepts both "datetime" and "dateTime". Keys match exactly.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Plan{}
	for key, dst := range map[string]*string{
		"datetime": &p.Datetime,
		"brand":    &p.Brand,
		"category": &p.Category,
	} {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("plan.%s: %w", key, err)
			}
		}
	}
	if v, ok := raw["dateTime"]; ok && p.Datetime == "" {
		if err := json.Unmarshal(v, &p.Datetime); err != nil {
			return fmt.Errorf("plan.dateTime: %w", err)
		}
	}
	return nil
}

// ScoredCandidate is a record that survived filtering, with its score.
type ScoredCandidate struct {
	Record BenefitRecord
	Score  float64 // rounded to 2 decimals
}

// AlternativeCandidate is a scored candidate selected by one of the
// alternative tracks.
type AlternativeCandidate struct {
	ScoredCandidate
	Reason        string
	AdjustedScore float64 // Score plus the track bonus, unclamped
}

// Alternatives is the output of the alternative ranking engine.
type Alternatives struct {
	NearTime             []AlternativeCandidate
	CategoryAlternatives []AlternativeCandidate
}

// Message is a narrated explanation of one ranked candidate.
type Message struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	StartAt string `json:"startAt"`
	EndAt   string `json:"endAt"`
}
