package catalog

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"benefit-recommendation-api/internal/models"
)

// ErrNotArray is returned when a catalog document is not a JSON array.
var ErrNotArray = errors.New("catalog document must be a JSON array")

// ParseResult is the outcome of parsing one catalog document.
type ParseResult struct {
	Offers  []models.BenefitRecord
	Events  []models.BenefitRecord
	Skipped int // entries without an id, duplicates and non-objects
}

// Parse reads a JSON array of benefit records. Each entry's "type" field
// decides its variant, falling back to defaultKind. Optional fields with the
// wrong shape are dropped rather than failing the document.
func Parse(data []byte, defaultKind models.Kind) (ParseResult, error) {
	var res ParseResult
	if !gjson.ValidBytes(data) {
		return res, ErrNotArray
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return res, ErrNotArray
	}

	seen := make(map[string]bool)
	doc.ForEach(func(_, entry gjson.Result) bool {
		rec, ok := ParseRecord(entry, defaultKind)
		if !ok || seen[rec.ID] {
			res.Skipped++
			return true
		}
		seen[rec.ID] = true

		if rec.Kind == models.KindEvent {
			res.Events = append(res.Events, rec)
		} else {
			res.Offers = append(res.Offers, rec)
		}
		return true
	})

	return res, nil
}

// ParseRecord converts one JSON object into a BenefitRecord. It reports false
// when entry is not an object or has no id.
func ParseRecord(entry gjson.Result, defaultKind models.Kind) (models.BenefitRecord, bool) {
	if !entry.IsObject() {
		return models.BenefitRecord{}, false
	}
	id := scalar(entry.Get("id"))
	if id == "" {
		return models.BenefitRecord{}, false
	}

	kind := defaultKind
	switch models.Kind(strings.ToLower(scalar(entry.Get("type")))) {
	case models.KindOffer:
		kind = models.KindOffer
	case models.KindEvent:
		kind = models.KindEvent
	}
	if kind != models.KindEvent {
		kind = models.KindOffer
	}

	rec := models.BenefitRecord{
		ID:          id,
		Kind:        kind,
		Title:       scalar(entry.Get("title")),
		Brand:       scalar(entry.Get("brand")),
		Category:    scalar(entry.Get("category")),
		Validity:    parseValidity(entry.Get("validity")),
		Eligibility: parseEligibility(entry.Get("eligibility")),
		Channels:    stringList(entry.Get("channels")),
		Source:      parseSource(entry.Get("source")),
	}

	if kind == models.KindEvent {
		rec.Event = &models.EventDetails{Notes: scalar(entry.Get("notes"))}
	} else {
		rec.Offer = &models.OfferTerms{
			Benefit:     parseBenefit(entry.Get("benefit")),
			Constraints: parseConstraints(entry.Get("constraints")),
			Exclusions:  stringList(entry.Get("exclusions")),
		}
	}

	return rec, true
}

// scalar returns strings and numbers as text; anything else is absent.
func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		return v.Raw
	default:
		return ""
	}
}

func number(v gjson.Result) *float64 {
	switch v.Type {
	case gjson.Number:
		f := v.Num
		return &f
	case gjson.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			return &f
		}
	}
	return nil
}

// stringList accepts an array of scalars or a single scalar.
func stringList(v gjson.Result) []string {
	if v.IsArray() {
		var out []string
		for _, item := range v.Array() {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := scalar(v); s != "" {
		return []string{s}
	}
	return nil
}

func parseValidity(v gjson.Result) *models.Validity {
	if !v.IsObject() {
		return nil
	}
	return &models.Validity{
		Start: scalar(v.Get("start")),
		End:   scalar(v.Get("end")),
	}
}

func parseEligibility(v gjson.Result) *models.Eligibility {
	if !v.IsObject() {
		return nil
	}
	return &models.Eligibility{
		TelecomAnyOf: stringList(v.Get("telecom_any_of")),
		CardsAnyOf:   stringList(v.Get("cards_any_of")),
	}
}

func parseSource(v gjson.Result) *models.Source {
	if !v.IsObject() {
		return nil
	}
	return &models.Source{
		URL:      scalar(v.Get("url")),
		Provider: scalar(v.Get("provider")),
	}
}

func parseBenefit(v gjson.Result) *models.Benefit {
	if !v.IsObject() {
		return nil
	}
	return &models.Benefit{
		Kind:       models.ParseBenefitKind(scalar(v.Get("kind"))),
		Value:      number(v.Get("value")),
		MinSpend:   number(v.Get("min_spend")),
		MaxBenefit: number(v.Get("max_benefit")),
	}
}

func parseConstraints(v gjson.Result) *models.Constraints {
	if !v.IsObject() {
		return nil
	}
	c := &models.Constraints{
		DaysOfWeek:     parseDays(v.Get("days_of_week")),
		ExclusiveGroup: scalar(v.Get("exclusive_group")),
	}
	if times := v.Get("times"); times.IsObject() {
		tr := &models.TimeRange{
			Start: scalar(times.Get("start")),
			End:   scalar(times.Get("end")),
		}
		// An empty object is no window at all.
		if !tr.IsZero() {
			c.Times = tr
		}
	}
	if limit := v.Get("usage_limit"); limit.IsObject() {
		c.UsageLimit = &models.UsageLimit{Period: scalar(limit.Get("period"))}
		if n := number(limit.Get("count")); n != nil {
			count := int(*n)
			c.UsageLimit.Count = &count
		}
	}
	return c
}

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// parseDays reads weekdays given as names or as integers where 0 is Monday
// and 6 is Sunday. Unrecognised entries are dropped.
func parseDays(v gjson.Result) models.DaysOfWeek {
	if !v.IsArray() {
		return nil
	}
	var days models.DaysOfWeek
	for _, item := range v.Array() {
		switch item.Type {
		case gjson.Number:
			n := int(item.Num)
			if n >= 0 && n <= 6 && float64(n) == item.Num {
				days = append(days, time.Weekday((n+1)%7))
			}
		case gjson.String:
			if d, ok := dayNames[strings.ToLower(strings.TrimSpace(item.Str))]; ok {
				days = append(days, d)
			}
		}
	}
	return days
}
