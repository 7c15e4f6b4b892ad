// Package narrate turns ranked alternatives into short user-facing messages.
package narrate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"benefit-recommendation-api/internal/logging"
	"benefit-recommendation-api/internal/metrics"
	"benefit-recommendation-api/internal/models"
)

// Item is the narration input for one alternative.
type Item struct {
	ID          string            `json:"id"`
	Brand       string            `json:"brand,omitempty"`
	Title       string            `json:"title,omitempty"`
	BenefitText string            `json:"benefit_text,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Validity    *models.Validity  `json:"validity,omitempty"`
	Times       *models.TimeRange `json:"times,omitempty"`
	ReasonHint  string            `json:"reason_hint,omitempty"`
}

// NewItem builds the narration input for an alternative.
func NewItem(alt models.AlternativeCandidate) Item {
	rec := alt.Record
	item := Item{
		ID:          rec.ID,
		Brand:       rec.Brand,
		Title:       rec.Title,
		BenefitText: BenefitText(rec.Benefit()),
		Notes:       rec.Notes(),
		Validity:    rec.Validity,
		ReasonHint:  alt.Reason,
	}
	if c := rec.Constraints(); c != nil {
		item.Times = c.Times
	}
	return item
}

// Narrator produces a message per item id. Items it has nothing to say about
// may be left out of the result.
type Narrator interface {
	Narrate(ctx context.Context, plan models.Plan, items []Item) (map[string]string, error)
	Name() string
}

// BenefitText renders a benefit for humans. Cashback above 100 is read as an
// amount, otherwise as a percentage.
func BenefitText(b *models.Benefit) string {
	if b == nil || b.Value == nil || *b.Value <= 0 {
		return ""
	}
	v := *b.Value
	switch b.Kind {
	case models.BenefitPercent:
		return formatNumber(v) + "% off"
	case models.BenefitFixed:
		return strconv.FormatInt(int64(v), 10) + " off"
	case models.BenefitCashback:
		if v > 100 {
			return strconv.FormatInt(int64(v), 10) + " cashback"
		}
		return formatNumber(v) + "% cashback"
	case models.BenefitPoints:
		return strconv.FormatInt(int64(v), 10) + "P points"
	default:
		return ""
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TemplateNarrator writes messages locally from the reason, benefit, time
// window and notes of each item.
type TemplateNarrator struct{}

func (TemplateNarrator) Name() string { return "template" }

func (TemplateNarrator) Narrate(_ context.Context, _ models.Plan, items []Item) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		out[item.ID] = templateMessage(item)
	}
	return out, nil
}

func templateMessage(item Item) string {
	lead := item.ReasonHint
	if lead == "" {
		lead = item.Title
	}

	var details []string
	if item.BenefitText != "" {
		details = append(details, item.BenefitText)
	}
	if !item.Times.IsZero() {
		details = append(details, fmt.Sprintf("available %s~%s", item.Times.Start, item.Times.End))
	}

	msg := lead
	if len(details) > 0 {
		if msg == "" {
			msg = strings.Join(details, ", ")
		} else {
			msg = fmt.Sprintf("%s: %s", msg, strings.Join(details, ", "))
		}
	}
	if item.Notes != "" {
		if msg == "" {
			msg = item.Notes
		} else {
			msg = fmt.Sprintf("%s. %s", msg, item.Notes)
		}
	}
	return msg
}

// Messages narrates every track in one call and returns the messages in
// track order. When the narrator fails, or has nothing for an item, the
// alternative's reason is used, then its title.
func Messages(ctx context.Context, n Narrator, plan models.Plan, tracks ...[]models.AlternativeCandidate) [][]models.Message {
	var items []Item
	for _, track := range tracks {
		for _, alt := range track {
			items = append(items, NewItem(alt))
		}
	}

	var described map[string]string
	if len(items) > 0 {
		var err error
		described, err = n.Narrate(ctx, plan, items)
		if err != nil {
			metrics.NarrationFailures.WithLabelValues(n.Name()).Inc()
			event := logging.Ctx(ctx).Warn()
			if IsCircuitOpen(err) {
				event = logging.Ctx(ctx).Debug()
			}
			event.Err(err).Str("narrator", n.Name()).Msg("narration failed, using reasons")
			described = nil
		}
	}

	out := make([][]models.Message, len(tracks))
	for i, track := range tracks {
		msgs := make([]models.Message, 0, len(track))
		for _, alt := range track {
			msgs = append(msgs, message(alt, described[alt.Record.ID]))
		}
		out[i] = msgs
	}
	return out
}

func message(alt models.AlternativeCandidate, described string) models.Message {
	text := described
	if text == "" {
		text = alt.Reason
	}
	if text == "" {
		text = alt.Record.Title
	}

	m := models.Message{ID: alt.Record.ID, Message: text}
	if v := alt.Record.Validity; v != nil {
		m.StartAt = v.Start
		m.EndAt = v.End
	}
	return m
}
