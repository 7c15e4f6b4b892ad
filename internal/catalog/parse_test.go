package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"benefit-recommendation-api/internal/models"
)

const sampleOffers = `[
  {
    "id": "o1",
    "title": "20% off lattes",
    "brand": "Acme",
    "category": "Coffee",
    "validity": {"start": "2025-12-01", "end": "2025-12-31"},
    "benefit": {"kind": "percent", "value": 20, "max_benefit": "3000"},
    "channels": ["app", "store"],
    "eligibility": {"telecom_any_of": ["SKT"], "cards_any_of": "CardX"},
    "constraints": {
      "days_of_week": [0, 4, "sat", "Sunday", 9, "nope"],
      "times": {"start": "10:00", "end": "20:00"},
      "usage_limit": {"period": "daily", "count": 1},
      "exclusive_group": "coffee"
    },
    "exclusions": ["gift cards"],
    "source": {"url": "https://example.com/o1", "provider": "acme"}
  },
  {"id": "e1", "type": "event", "brand": "Acme", "notes": "free cookie"},
  {"title": "no id"},
  {"id": "o1", "title": "duplicate"},
  "not an object",
  {"id": 42, "benefit": {"kind": "mystery", "value": "lots"}, "validity": "soon"}
]`

func TestParse(t *testing.T) {
	res, err := Parse([]byte(sampleOffers), models.KindOffer)
	require.NoError(t, err)

	require.Len(t, res.Offers, 2)
	require.Len(t, res.Events, 1)
	assert.Equal(t, 3, res.Skipped)

	o1 := res.Offers[0]
	assert.Equal(t, "o1", o1.ID)
	assert.Equal(t, models.KindOffer, o1.Kind)
	assert.Equal(t, "20% off lattes", o1.Title)
	assert.Equal(t, &models.Validity{Start: "2025-12-01", End: "2025-12-31"}, o1.Validity)
	assert.Equal(t, []string{"app", "store"}, o1.Channels)
	assert.Equal(t, []string{"SKT"}, o1.Eligibility.TelecomAnyOf)
	assert.Equal(t, []string{"CardX"}, o1.Eligibility.CardsAnyOf)
	assert.Equal(t, "acme", o1.Source.Provider)

	b := o1.Benefit()
	require.NotNil(t, b)
	assert.Equal(t, models.BenefitPercent, b.Kind)
	assert.Equal(t, 20.0, *b.Value)
	assert.Equal(t, 3000.0, *b.MaxBenefit)
	assert.Nil(t, b.MinSpend)

	c := o1.Constraints()
	require.NotNil(t, c)
	assert.Equal(t, models.DaysOfWeek{time.Monday, time.Friday, time.Saturday, time.Sunday}, c.DaysOfWeek)
	assert.Equal(t, &models.TimeRange{Start: "10:00", End: "20:00"}, c.Times)
	assert.Equal(t, "daily", c.UsageLimit.Period)
	assert.Equal(t, 1, *c.UsageLimit.Count)
	assert.Equal(t, "coffee", c.ExclusiveGroup)
	assert.Equal(t, []string{"gift cards"}, o1.Offer.Exclusions)

	e1 := res.Events[0]
	assert.Equal(t, models.KindEvent, e1.Kind)
	assert.Nil(t, e1.Offer)
	assert.Equal(t, "free cookie", e1.Notes())

	odd := res.Offers[1]
	assert.Equal(t, "42", odd.ID)
	assert.Equal(t, models.BenefitUnknown, odd.Benefit().Kind)
	assert.Nil(t, odd.Benefit().Value)
	assert.Nil(t, odd.Validity)
}

func TestParse_DefaultKind(t *testing.T) {
	res, err := Parse([]byte(`[{"id": "e"}, {"id": "o", "type": "offer"}, {"id": "x", "type": "banner"}]`), models.KindEvent)
	require.NoError(t, err)

	assert.Len(t, res.Offers, 1)
	assert.Equal(t, "o", res.Offers[0].ID)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "e", res.Events[0].ID)
	assert.Equal(t, "x", res.Events[1].ID)
}

func TestParse_RejectsNonArray(t *testing.T) {
	for _, doc := range []string{`{"id": "o1"}`, `not json`, ``} {
		_, err := Parse([]byte(doc), models.KindOffer)
		assert.ErrorIs(t, err, ErrNotArray, doc)
	}
}

func TestParseRecord_RoundTripsMarshalledRecord(t *testing.T) {
	res, err := Parse([]byte(sampleOffers), models.KindOffer)
	require.NoError(t, err)
	original := res.Offers[0]

	body, err := original.MarshalJSON()
	require.NoError(t, err)

	again, ok := ParseRecord(gjson.ParseBytes(body), models.KindEvent)
	require.True(t, ok)
	assert.Equal(t, original, again)
}

func TestParse_EmptyTimesIsNoWindow(t *testing.T) {
	res, err := Parse([]byte(`[
  {"id": "blank", "constraints": {"times": {}}},
  {"id": "half", "constraints": {"times": {"start": "10:00"}}}
]`), models.KindOffer)
	require.NoError(t, err)
	require.Len(t, res.Offers, 2)

	require.NotNil(t, res.Offers[0].Constraints())
	assert.Nil(t, res.Offers[0].Constraints().Times)
	assert.Equal(t, &models.TimeRange{Start: "10:00"}, res.Offers[1].Constraints().Times)
}
