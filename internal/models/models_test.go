package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanUnmarshal_DatetimeAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"lowercase", `{"datetime":"2025-12-18T18:00:00","brand":"Acme","category":"Coffee"}`, "2025-12-18T18:00:00"},
		{"camel case", `{"dateTime":"2025-12-18T18:00:00","brand":"Acme","category":"Coffee"}`, "2025-12-18T18:00:00"},
		{"lowercase wins", `{"datetime":"2025-12-18T10:00:00","dateTime":"2025-12-18T18:00:00"}`, "2025-12-18T10:00:00"},
		{"missing", `{"brand":"Acme"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Plan
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.want, p.Datetime)
		})
	}
}

func TestParseBenefitKind(t *testing.T) {
	cases := map[string]BenefitKind{
		"percent":    BenefitPercent,
		" Cashback ": BenefitCashback,
		"FIXED":      BenefitFixed,
		"points":     BenefitPoints,
		"voucher":    BenefitUnknown,
		"":           BenefitUnknown,
	}
	for in, want := range cases {
		assert.Equalf(t, want, ParseBenefitKind(in), "ParseBenefitKind(%q)", in)
	}
}

func TestScoredCandidateMarshal_Flat(t *testing.T) {
	value := 20.0
	c := ScoredCandidate{
		Record: BenefitRecord{
			ID:    "o1",
			Kind:  KindOffer,
			Brand: "Acme",
			Offer: &OfferTerms{
				Benefit: &Benefit{Kind: BenefitPercent, Value: &value},
				Constraints: &Constraints{
					DaysOfWeek: DaysOfWeek{time.Saturday, time.Sunday},
				},
			},
		},
		Score: 87.5,
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	body := string(data)

	for _, want := range []string{
		`"id":"o1"`,
		`"type":"offer"`,
		`"benefit":{"kind":"percent","value":20}`,
		`"days_of_week":["sat","sun"]`,
		`"recommendation_score":87.5`,
	} {
		assert.Contains(t, body, want)
	}
	for _, absent := range []string{`"Record"`, `"notes"`, `"alternative_reason"`} {
		assert.NotContains(t, body, absent)
	}
}

func TestAlternativeCandidateMarshal(t *testing.T) {
	c := AlternativeCandidate{
		ScoredCandidate: ScoredCandidate{
			Record: BenefitRecord{ID: "e1", Kind: KindEvent, Event: &EventDetails{Notes: "free cookie"}},
			Score:  60,
		},
		Reason:        "Acme available anytime",
		AdjustedScore: 70,
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "event", out["type"])
	assert.Equal(t, "free cookie", out["notes"])
	assert.Equal(t, 60.0, out["recommendation_score"])
	assert.Equal(t, 70.0, out["alternative_score"])
	assert.Equal(t, "Acme available anytime", out["alternative_reason"])
}

func TestRecordAccessors(t *testing.T) {
	event := BenefitRecord{ID: "e1", Kind: KindEvent, Event: &EventDetails{Notes: "n"}}
	assert.Nil(t, event.Benefit())
	assert.Nil(t, event.Constraints())
	assert.Equal(t, "n", event.Notes())

	offer := BenefitRecord{ID: "o1", Kind: KindOffer}
	assert.Nil(t, offer.Benefit())
	assert.Empty(t, offer.Notes())
}

func TestDaysOfWeekContains(t *testing.T) {
	days := DaysOfWeek{time.Monday, time.Friday}
	assert.True(t, days.Contains(time.Friday))
	assert.False(t, days.Contains(time.Sunday))
}

func TestTimeRangeIsZero(t *testing.T) {
	var none *TimeRange
	assert.True(t, none.IsZero())
	assert.True(t, (&TimeRange{}).IsZero())
	assert.False(t, (&TimeRange{Start: "10:00"}).IsZero())
	assert.False(t, (&TimeRange{End: "20:00"}).IsZero())
}
