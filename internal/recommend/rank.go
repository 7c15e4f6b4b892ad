package recommend

import (
	"cmp"
	"slices"

	"benefit-recommendation-api/internal/models"
)

const (
	// DefaultTopK is used by Rank when topK is not positive.
	DefaultTopK = 10
	// DefaultAlternativesTopK is used by RankAlternatives when topK is not
	// positive.
	DefaultAlternativesTopK = 5
)

// Ranker ranks catalog records for a user and plan. It holds no catalog
// state; a single Ranker may be shared by concurrent requests.
type Ranker struct {
	dayOfWeekFilter bool
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithDayOfWeekFilter makes the near-time track also require the plan's
// weekday to be one of an offer's constraints.days_of_week.
func WithDayOfWeekFilter(enabled bool) Option {
	return func(r *Ranker) {
		r.dayOfWeekFilter = enabled
	}
}

// NewRanker creates a Ranker.
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRanker = NewRanker()

// Rank ranks offers and events with the default Ranker.
func Rank(user models.UserProfile, plan models.Plan, offers, events []models.BenefitRecord, topK int) ([]models.ScoredCandidate, error) {
	return defaultRanker.Rank(user, plan, offers, events, topK)
}

// candidate is a record that passed validity and eligibility, with its
// unrounded score.
type candidate struct {
	record models.BenefitRecord
	score  float64
}

// Rank filters offers and events by validity and eligibility, scores the
// survivors and returns the topK best, highest score first. Equal scores keep
// catalog order, offers before events. The input slices are not modified.
func (r *Ranker) Rank(user models.UserProfile, plan models.Plan, offers, events []models.BenefitRecord, topK int) ([]models.ScoredCandidate, error) {
	if err := checkRequest(user, plan); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	cands := survivors(user, plan, newVisit(plan.Datetime), offers, events)
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return cmp.Compare(b.score, a.score)
	})

	if len(cands) > topK {
		cands = cands[:topK]
	}

	out := make([]models.ScoredCandidate, len(cands))
	for i, c := range cands {
		out[i] = models.ScoredCandidate{Record: c.record, Score: round2(c.score)}
	}
	return out, nil
}

func survivors(user models.UserProfile, plan models.Plan, v visit, offers, events []models.BenefitRecord) []candidate {
	cands := make([]candidate, 0, len(offers)+len(events))
	add := func(records []models.BenefitRecord, kind models.Kind) {
		for _, rec := range records {
			rec.Kind = kind
			if !v.valid(rec.Validity) {
				continue
			}
			if !IsEligible(rec.Eligibility, user.Telecom, user.Payments) {
				continue
			}
			cands = append(cands, candidate{record: rec, score: Score(rec, user, plan)})
		}
	}
	add(offers, models.KindOffer)
	add(events, models.KindEvent)
	return cands
}
