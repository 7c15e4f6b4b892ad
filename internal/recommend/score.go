package recommend

import (
	"math"

	"benefit-recommendation-api/internal/models"
)

const (
	baseScore       = 50.0
	brandBonus      = 30.0
	categoryBonus   = 20.0
	eventNotesBonus = 5.0
	appChannelBonus = 5.0
	maxScore        = 100.0

	appChannel = "app"
)

// benefitCaps holds, per benefit kind, the divisor applied to the value and
// the maximum bonus it may contribute.
var benefitCaps = map[models.BenefitKind]struct{ divisor, max float64 }{
	models.BenefitPercent:  {2, 15},
	models.BenefitFixed:    {500, 10},
	models.BenefitCashback: {2, 12},
	models.BenefitPoints:   {1000, 8},
}

// Score computes the relevance of record for the plan, in [50, 100] for any
// record. Bonuses are additive and individually capped so no single benefit
// value can outweigh the exact brand and category matches.
func Score(record models.BenefitRecord, user models.UserProfile, plan models.Plan) float64 {
	score := baseScore

	if record.Brand != "" && record.Brand == plan.Brand {
		score += brandBonus
	}
	if record.Category != "" && record.Category == plan.Category {
		score += categoryBonus
	}

	switch record.Kind {
	case models.KindOffer:
		score += benefitBonus(record.Benefit())
	case models.KindEvent:
		if record.Notes() != "" {
			score += eventNotesBonus
		}
	}

	if contains(record.Channels, appChannel) {
		score += appChannelBonus
	}

	return math.Min(score, maxScore)
}

func benefitBonus(b *models.Benefit) float64 {
	if b == nil || b.Value == nil || *b.Value <= 0 {
		return 0
	}
	c, ok := benefitCaps[b.Kind]
	if !ok {
		return 0
	}
	return math.Min(*b.Value/c.divisor, c.max)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
