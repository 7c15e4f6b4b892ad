package recommend

import (
	"cmp"
	"fmt"
	"slices"

	"benefit-recommendation-api/internal/models"
)

const (
	timeWindowBonus = 20.0
	anytimeBonus    = 10.0
)

// RankAlternatives runs the alternative tracks with the default Ranker.
func RankAlternatives(user models.UserProfile, plan models.Plan, offers, events []models.BenefitRecord, topK int) (models.Alternatives, error) {
	return defaultRanker.RankAlternatives(user, plan, offers, events, topK)
}

// RankAlternatives selects two independent suggestion tracks from the records
// that pass validity and eligibility:
//
//   - near time: same brand as the plan and open at the planned time of day
//     (records without a time window are always open);
//   - category alternatives: another brand in the plan's category.
//
// Each track is sorted by its adjusted score and truncated to topK.
func (r *Ranker) RankAlternatives(user models.UserProfile, plan models.Plan, offers, events []models.BenefitRecord, topK int) (models.Alternatives, error) {
	if err := checkRequest(user, plan); err != nil {
		return models.Alternatives{}, err
	}
	if topK <= 0 {
		topK = DefaultAlternativesTopK
	}

	v := newVisit(plan.Datetime)
	var nearTime, category []alternative

	for _, c := range survivors(user, plan, v, offers, events) {
		if c.record.Brand == plan.Brand {
			if alt, ok := r.nearTime(c, plan, v); ok {
				nearTime = append(nearTime, alt)
			}
		}

		if c.record.Brand != plan.Brand && c.record.Category == plan.Category {
			category = append(category, newAlternative(c,
				fmt.Sprintf("instead of %s, consider %s", plan.Brand, c.record.Brand), 0))
		}
	}

	return models.Alternatives{
		NearTime:             topAlternatives(nearTime, topK),
		CategoryAlternatives: topAlternatives(category, topK),
	}, nil
}

// alternative is a track entry with its unrounded adjusted score.
type alternative struct {
	candidate
	reason   string
	adjusted float64
}

func (r *Ranker) nearTime(c candidate, plan models.Plan, v visit) (alternative, bool) {
	constraints := c.record.Constraints()

	if r.dayOfWeekFilter && constraints != nil && !v.onDay(constraints.DaysOfWeek) {
		return alternative{}, false
	}

	if constraints == nil || constraints.Times.IsZero() {
		return newAlternative(c, fmt.Sprintf("%s available anytime", plan.Brand), anytimeBonus), true
	}

	times := constraints.Times
	if !v.within(times.Start, times.End) {
		return alternative{}, false
	}
	reason := fmt.Sprintf("%s available at planned visit time (%s~%s)", plan.Brand, times.Start, times.End)
	return newAlternative(c, reason, timeWindowBonus), true
}

func newAlternative(c candidate, reason string, bonus float64) alternative {
	return alternative{candidate: c, reason: reason, adjusted: c.score + bonus}
}

// topAlternatives sorts on the unrounded adjusted score and rounds only the
// returned values.
func topAlternatives(alts []alternative, topK int) []models.AlternativeCandidate {
	slices.SortStableFunc(alts, func(a, b alternative) int {
		return cmp.Compare(b.adjusted, a.adjusted)
	})
	if len(alts) > topK {
		alts = alts[:topK]
	}

	out := make([]models.AlternativeCandidate, len(alts))
	for i, a := range alts {
		out[i] = models.AlternativeCandidate{
			ScoredCandidate: models.ScoredCandidate{Record: a.record, Score: round2(a.score)},
			Reason:          a.reason,
			AdjustedScore:   round2(a.adjusted),
		}
	}
	return out
}
