package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"benefit-recommendation-api/internal/models"
)

var (
	testUser = models.UserProfile{Telecom: "SKT", Payments: []string{"CardX"}}
	testPlan = models.Plan{Datetime: "2025-12-18T18:00:00", Brand: "Acme", Category: "Coffee"}
)

func ptr[T any](v T) *T { return &v }

func offerWith(kind models.BenefitKind, value float64) models.BenefitRecord {
	return models.BenefitRecord{
		ID:    "o",
		Kind:  models.KindOffer,
		Offer: &models.OfferTerms{Benefit: &models.Benefit{Kind: kind, Value: ptr(value)}},
	}
}

func TestScore_BaseOnly(t *testing.T) {
	rec := models.BenefitRecord{ID: "bare", Kind: models.KindOffer}
	assert.Equal(t, 50.0, Score(rec, testUser, testPlan))

	ev := models.BenefitRecord{ID: "bare-event", Kind: models.KindEvent, Event: &models.EventDetails{}}
	assert.Equal(t, 50.0, Score(ev, testUser, testPlan))
}

func TestScore_Matches(t *testing.T) {
	brand := models.BenefitRecord{ID: "b", Kind: models.KindOffer, Brand: "Acme"}
	assert.Equal(t, 80.0, Score(brand, testUser, testPlan))

	category := models.BenefitRecord{ID: "c", Kind: models.KindOffer, Category: "Coffee"}
	assert.Equal(t, 70.0, Score(category, testUser, testPlan))

	caseMismatch := models.BenefitRecord{ID: "x", Kind: models.KindOffer, Brand: "acme", Category: "coffee"}
	assert.Equal(t, 50.0, Score(caseMismatch, testUser, testPlan))
}

func TestScore_BenefitCaps(t *testing.T) {
	tests := []struct {
		kind  models.BenefitKind
		value float64
		want  float64
	}{
		{models.BenefitPercent, 10, 55},
		{models.BenefitPercent, 90, 65},
		{models.BenefitFixed, 2500, 55},
		{models.BenefitFixed, 100000, 60},
		{models.BenefitCashback, 10, 55},
		{models.BenefitCashback, 50, 62},
		{models.BenefitPoints, 4000, 54},
		{models.BenefitPoints, 50000, 58},
		{models.BenefitUnknown, 1000, 50},
		{models.BenefitPercent, 0, 50},
		{models.BenefitPercent, -40, 50},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Score(offerWith(tt.kind, tt.value), testUser, testPlan), 1e-9,
			"%s %v", tt.kind, tt.value)
	}
}

func TestScore_MonotonicInValue(t *testing.T) {
	for _, kind := range []models.BenefitKind{models.BenefitPercent, models.BenefitFixed, models.BenefitCashback, models.BenefitPoints} {
		prev := 0.0
		for value := 0.0; value <= 100000; value += 250 {
			s := Score(offerWith(kind, value), testUser, testPlan)
			assert.GreaterOrEqual(t, s, prev, "%s at %v", kind, value)
			prev = s
		}
	}
}

func TestScore_EventNotesAndChannels(t *testing.T) {
	ev := models.BenefitRecord{ID: "e", Kind: models.KindEvent, Event: &models.EventDetails{Notes: "up to 70% off"}}
	assert.Equal(t, 55.0, Score(ev, testUser, testPlan))

	ev.Channels = []string{"web", "app"}
	assert.Equal(t, 60.0, Score(ev, testUser, testPlan))

	// Benefits are ignored on events.
	offerLike := models.BenefitRecord{ID: "e2", Kind: models.KindEvent,
		Offer: &models.OfferTerms{Benefit: &models.Benefit{Kind: models.BenefitPercent, Value: ptr(30.0)}}}
	assert.Equal(t, 50.0, Score(offerLike, testUser, testPlan))
}

func TestScore_ClampedAt100(t *testing.T) {
	rec := offerWith(models.BenefitPercent, 90)
	rec.Brand, rec.Category, rec.Channels = "Acme", "Coffee", []string{"app"}
	assert.Equal(t, 100.0, Score(rec, testUser, testPlan))
}
