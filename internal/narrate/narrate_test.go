package narrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefit-recommendation-api/internal/models"
)

func ptr[T any](v T) *T { return &v }

var plan = models.Plan{Datetime: "2025-12-18T18:00:00", Brand: "Acme", Category: "Coffee"}

func TestBenefitText(t *testing.T) {
	tests := []struct {
		name    string
		benefit *models.Benefit
		want    string
	}{
		{"nil", nil, ""},
		{"no value", &models.Benefit{Kind: models.BenefitPercent}, ""},
		{"zero", &models.Benefit{Kind: models.BenefitPercent, Value: ptr(0.0)}, ""},
		{"percent", &models.Benefit{Kind: models.BenefitPercent, Value: ptr(12.5)}, "12.5% off"},
		{"fixed", &models.Benefit{Kind: models.BenefitFixed, Value: ptr(3000.0)}, "3000 off"},
		{"cashback amount", &models.Benefit{Kind: models.BenefitCashback, Value: ptr(5000.0)}, "5000 cashback"},
		{"cashback percent", &models.Benefit{Kind: models.BenefitCashback, Value: ptr(5.0)}, "5% cashback"},
		{"cashback boundary", &models.Benefit{Kind: models.BenefitCashback, Value: ptr(100.0)}, "100% cashback"},
		{"points", &models.Benefit{Kind: models.BenefitPoints, Value: ptr(1000.0)}, "1000P points"},
		{"unknown", &models.Benefit{Kind: models.BenefitUnknown, Value: ptr(7.0)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BenefitText(tt.benefit))
		})
	}
}

func alternative(id, reason string) models.AlternativeCandidate {
	return models.AlternativeCandidate{
		ScoredCandidate: models.ScoredCandidate{
			Record: models.BenefitRecord{
				ID:       id,
				Kind:     models.KindOffer,
				Title:    "title " + id,
				Brand:    "Beanery",
				Validity: &models.Validity{Start: "2025-12-01", End: "2025-12-31"},
				Offer: &models.OfferTerms{
					Benefit:     &models.Benefit{Kind: models.BenefitPercent, Value: ptr(10.0)},
					Constraints: &models.Constraints{Times: &models.TimeRange{Start: "10:00", End: "20:00"}},
				},
			},
			Score: 80,
		},
		Reason:        reason,
		AdjustedScore: 80,
	}
}

func TestNewItem(t *testing.T) {
	item := NewItem(alternative("o1", "instead of Acme, consider Beanery"))

	assert.Equal(t, "o1", item.ID)
	assert.Equal(t, "10% off", item.BenefitText)
	assert.Equal(t, &models.TimeRange{Start: "10:00", End: "20:00"}, item.Times)
	assert.Equal(t, "instead of Acme, consider Beanery", item.ReasonHint)
}

func TestTemplateNarrator(t *testing.T) {
	items := []Item{
		{ID: "full", ReasonHint: "instead of Acme, consider Beanery", BenefitText: "10% off",
			Times: &models.TimeRange{Start: "10:00", End: "20:00"}, Notes: "free cookie"},
		{ID: "bare", ReasonHint: "Acme available anytime"},
		{ID: "title-only", Title: "Winter festival", Notes: "up to 70% off"},
		{ID: "benefit-only", BenefitText: "1000P points"},
	}

	got, err := TemplateNarrator{}.Narrate(context.Background(), plan, items)
	require.NoError(t, err)

	assert.Equal(t, "instead of Acme, consider Beanery: 10% off, available 10:00~20:00. free cookie", got["full"])
	assert.Equal(t, "Acme available anytime", got["bare"])
	assert.Equal(t, "Winter festival. up to 70% off", got["title-only"])
	assert.Equal(t, "1000P points", got["benefit-only"])
}

type stubNarrator struct {
	out   map[string]string
	err   error
	calls int
	seen  []Item
}

func (s *stubNarrator) Name() string { return "stub" }

func (s *stubNarrator) Narrate(_ context.Context, _ models.Plan, items []Item) (map[string]string, error) {
	s.calls++
	s.seen = append(s.seen, items...)
	return s.out, s.err
}

func TestMessages(t *testing.T) {
	n := &stubNarrator{out: map[string]string{"a": "narrated a"}}
	near := []models.AlternativeCandidate{alternative("a", "reason a"), alternative("b", "reason b")}
	category := []models.AlternativeCandidate{alternative("c", "")}

	got := Messages(context.Background(), n, plan, near, category)

	assert.Equal(t, 1, n.calls, "both tracks are narrated in one call")
	assert.Len(t, n.seen, 3)
	require.Len(t, got, 2)
	assert.Equal(t, []models.Message{
		{ID: "a", Message: "narrated a", StartAt: "2025-12-01", EndAt: "2025-12-31"},
		{ID: "b", Message: "reason b", StartAt: "2025-12-01", EndAt: "2025-12-31"},
	}, got[0])
	assert.Equal(t, []models.Message{
		{ID: "c", Message: "title c", StartAt: "2025-12-01", EndAt: "2025-12-31"},
	}, got[1])
}

func TestMessages_NarratorFailure(t *testing.T) {
	n := &stubNarrator{out: map[string]string{"a": "ignored"}, err: errors.New("boom")}

	got := Messages(context.Background(), n, plan, []models.AlternativeCandidate{alternative("a", "reason a")})
	require.Len(t, got, 1)
	assert.Equal(t, "reason a", got[0][0].Message)
}

func TestMessages_EmptyTracks(t *testing.T) {
	n := &stubNarrator{}

	got := Messages(context.Background(), n, plan, nil, []models.AlternativeCandidate{})
	assert.Zero(t, n.calls)
	require.Len(t, got, 2)
	assert.NotNil(t, got[0])
	assert.Empty(t, got[0])
	assert.Empty(t, got[1])
}

func TestMessages_NoValidity(t *testing.T) {
	alt := alternative("a", "reason a")
	alt.Record.Validity = nil

	got := Messages(context.Background(), TemplateNarrator{}, plan, []models.AlternativeCandidate{alt})
	assert.Empty(t, got[0][0].StartAt)
	assert.Empty(t, got[0][0].EndAt)
}
