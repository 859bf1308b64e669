package scrobble

import (
	"fmt"
	"time"
)

// Unit is an aggregation granularity for frequency counts.
type Unit string

const (
	UnitHours    Unit = "hours"
	UnitDays     Unit = "days"
	UnitWeeks    Unit = "weeks"
	UnitMonths   Unit = "months"
	UnitYears    Unit = "years"
	UnitWeekdays Unit = "weekdays"
)

// ParseUnit maps a granularity name onto a Unit.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitHours, UnitDays, UnitWeeks, UnitMonths, UnitYears, UnitWeekdays:
		return Unit(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, s)
	}
}

// Calendar reports whether the unit aligns buckets to calendar days rather
// than clock time.
func (u Unit) Calendar() bool {
	return u != UnitHours
}

// PeriodCount is one bucket of a frequency histogram: the bucket's calibrated
// start and the number of plays that fell inside it.
type PeriodCount struct {
	Bucket time.Time
	Plays  int
}

// EventsInPeriod returns the events with start <= event time <= end,
// preserving input order. It is the single filtering primitive that counting
// and ranking are built on, so that all query types share one boundary
// policy.
func EventsInPeriod(events []Scrobble, start, end time.Time) []Scrobble {
	var in []Scrobble
	for _, s := range events {
		if s.Time.Before(start) || s.Time.After(end) {
			continue
		}
		in = append(in, s)
	}
	return in
}

// CountInPeriod buckets the events between start and end by the given unit
// and counts the plays per bucket. For calendar units the window is first
// calibrated to midnight UTC of the start and end days; hour buckets use the
// exact bounds supplied. Each bucket counts events inclusively at both of
// its boundaries, so an event landing exactly on a shared boundary is
// counted in both adjacent buckets. An end before start yields no buckets.
func CountInPeriod(events []Scrobble, start, end time.Time, unit Unit) ([]PeriodCount, error) {
	if _, err := ParseUnit(string(unit)); err != nil {
		return nil, err
	}

	anchor := start.UTC()
	limit := end.UTC()
	if unit.Calendar() {
		anchor = midnight(anchor)
		limit = midnight(limit)
	}

	var counts []PeriodCount
	cur := anchor
	for step := 1; ; step++ {
		next := advance(anchor, unit, step)
		if next.After(limit) {
			break
		}
		counts = append(counts, PeriodCount{
			Bucket: cur,
			Plays:  len(EventsInPeriod(events, cur, next)),
		})
		cur = next
	}
	return counts, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// advance computes the step-th bucket boundary after the anchor. Boundaries
// are always derived from the anchor, not from the previous boundary, so a
// month series starting on the 31st clamps to short months without drifting.
func advance(anchor time.Time, unit Unit, step int) time.Time {
	switch unit {
	case UnitHours:
		return anchor.Add(time.Duration(step) * time.Hour)
	case UnitDays:
		return anchor.AddDate(0, 0, step)
	case UnitWeeks, UnitWeekdays:
		// Seven-day buckets; a midnight-calibrated anchor keeps every
		// boundary on the anchor's weekday.
		return anchor.AddDate(0, 0, 7*step)
	case UnitMonths:
		return addMonths(anchor, step)
	case UnitYears:
		return addMonths(anchor, 12*step)
	}
	return anchor
}

// addMonths adds n calendar months, clamping the day of month to the target
// month's length (Jan 31 + 1 month = Feb 28/29).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
