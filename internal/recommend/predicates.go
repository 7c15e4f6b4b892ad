package recommend

import (
	"strings"
	"time"

	"benefit-recommendation-api/internal/models"
)

// instantLayouts are the ISO-8601 shapes accepted for plan timestamps and
// validity bounds. Layouts without a zone are read in the caller's location.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const clockLayout = "15:04"

func parseInstant(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// visit is a plan timestamp parsed once per ranking pass. When ok is false
// every temporal predicate passes.
type visit struct {
	at time.Time
	ok bool
}

func newVisit(datetime string) visit {
	at, ok := parseInstant(datetime, time.UTC)
	return visit{at: at, ok: ok}
}

func (v visit) valid(validity *models.Validity) bool {
	if validity == nil || !v.ok {
		return true
	}
	// Bounds without a zone are read on the visit's wall clock.
	if validity.Start != "" {
		start, ok := parseInstant(validity.Start, v.at.Location())
		if !ok {
			return true
		}
		if v.at.Before(start) {
			return false
		}
	}
	if validity.End != "" {
		end, ok := parseInstant(validity.End, v.at.Location())
		if !ok {
			return true
		}
		if v.at.After(end) {
			return false
		}
	}
	return true
}

func (v visit) within(start, end string) bool {
	if start == "" || end == "" || !v.ok {
		return true
	}
	s, err := time.Parse(clockLayout, strings.TrimSpace(start))
	if err != nil {
		return true
	}
	e, err := time.Parse(clockLayout, strings.TrimSpace(end))
	if err != nil {
		return true
	}

	from, to, t := sinceMidnight(s), sinceMidnight(e), sinceMidnight(v.at)
	if from <= to {
		return from <= t && t <= to
	}
	// Window wraps past midnight, e.g. 23:00~02:00.
	return t >= from || t <= to
}

func (v visit) onDay(days models.DaysOfWeek) bool {
	if len(days) == 0 || !v.ok {
		return true
	}
	return days.Contains(v.at.Weekday())
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// IsValid reports whether instant falls inside validity. A nil validity, a
// missing bound or any unparsable value passes.
func IsValid(validity *models.Validity, instant string) bool {
	return newVisit(instant).valid(validity)
}

// IsEligible reports whether a user with the given carrier and payment
// instruments satisfies eligibility. Each list constrains its dimension only
// when non-empty; both constraints must hold.
func IsEligible(eligibility *models.Eligibility, telecom string, payments []string) bool {
	if eligibility == nil {
		return true
	}

	if len(eligibility.TelecomAnyOf) > 0 && !contains(eligibility.TelecomAnyOf, telecom) {
		return false
	}

	if len(eligibility.CardsAnyOf) > 0 {
		for _, p := range payments {
			if contains(eligibility.CardsAnyOf, p) {
				return true
			}
		}
		return false
	}

	return true
}

// IsTimeInRange reports whether the time of day of instant lies in
// [start, end]. A window with start after end wraps past midnight. Missing
// or malformed values pass.
func IsTimeInRange(instant, start, end string) bool {
	return newVisit(instant).within(start, end)
}

// IsDayAllowed reports whether instant falls on one of days. An empty set or
// an unparsable instant passes.
func IsDayAllowed(days models.DaysOfWeek, instant string) bool {
	return newVisit(instant).onDay(days)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
