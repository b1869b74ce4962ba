// Package datefilter resolves textual date filter expressions into concrete
// inclusive date ranges against a caller-supplied "now". Parsing is pure:
// the same expression and now always produce the same range.
package datefilter

import (
	"strconv"
	"strings"
	"time"

	"github.com/quietlake/mnemo/internal/core"
)

// DateLayout is the calendar-date format used by chunk metadata and absolute
// filter expressions.
const DateLayout = "2006-01-02"

// Range is an inclusive calendar-date range, Start <= End. Both bounds are
// truncated to midnight.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d (truncated to its date) falls inside the range.
func (r Range) Contains(d time.Time) bool {
	d = dateOf(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Parse resolves expr into a Range relative to now.
//
// Supported forms (case-insensitive):
//
//	YYYY-MM-DD               single day
//	YYYY-MM                  full calendar month
//	YYYY                     full calendar year
//	YYYY-MM-上旬/中旬/下旬     first (1-10) / middle (11-20) / last (21-end) third of a month
//	today / yesterday        single day relative to now
//	last_week                trailing 7 days ending at now
//	last_month / last_year   the prior full calendar month / year
//	N_months_ago             the single calendar month N months before now's month
//	N_days_ago               trailing N days ending at now
//
// An empty or unrecognized expression yields (nil, nil): no filtering. A
// recognizable-but-malformed relative form (e.g. "x_months_ago") fails with
// core.InvalidDateFilterError.
func Parse(expr string, now time.Time) (*Range, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	if expr == "" || expr == "none" {
		return nil, nil
	}

	today := dateOf(now)

	switch expr {
	case "today":
		return &Range{Start: today, End: today}, nil

	case "yesterday":
		d := today.AddDate(0, 0, -1)
		return &Range{Start: d, End: d}, nil

	case "last_week":
		return &Range{Start: today.AddDate(0, 0, -6), End: today}, nil

	case "last_month":
		start := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, today.Location())
		end := time.Date(today.Year(), today.Month(), 0, 0, 0, 0, 0, today.Location())
		return &Range{Start: start, End: end}, nil

	case "last_year":
		y := today.Year() - 1
		return &Range{
			Start: time.Date(y, time.January, 1, 0, 0, 0, 0, today.Location()),
			End:   time.Date(y, time.December, 31, 0, 0, 0, 0, today.Location()),
		}, nil
	}

	if rest, ok := strings.CutSuffix(expr, "months_ago"); ok {
		n, err := strconv.Atoi(strings.TrimSuffix(rest, "_"))
		if err != nil || n < 1 {
			return nil, &core.InvalidDateFilterError{Expression: expr, Reason: "month count must be a positive integer"}
		}
		start := time.Date(today.Year(), today.Month()-time.Month(n), 1, 0, 0, 0, 0, today.Location())
		end := time.Date(start.Year(), start.Month()+1, 0, 0, 0, 0, 0, today.Location())
		return &Range{Start: start, End: end}, nil
	}

	if rest, ok := strings.CutSuffix(expr, "days_ago"); ok {
		n, err := strconv.Atoi(strings.TrimSuffix(rest, "_"))
		if err != nil || n < 1 {
			return nil, &core.InvalidDateFilterError{Expression: expr, Reason: "day count must be a positive integer"}
		}
		// "N_days_ago" means the most recent N days including today.
		return &Range{Start: today.AddDate(0, 0, -(n - 1)), End: today}, nil
	}

	if r := parseMonthThird(expr, now.Location()); r != nil {
		return r, nil
	}

	if d, err := time.ParseInLocation(DateLayout, expr, now.Location()); err == nil {
		d = dateOf(d)
		return &Range{Start: d, End: d}, nil
	}

	if m, err := time.ParseInLocation("2006-01", expr, now.Location()); err == nil {
		return monthRange(m.Year(), m.Month(), now.Location()), nil
	}

	if y, err := strconv.Atoi(expr); err == nil && y >= 1900 && y <= 2100 {
		return &Range{
			Start: time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location()),
			End:   time.Date(y, time.December, 31, 0, 0, 0, 0, now.Location()),
		}, nil
	}

	// Unrecognized but syntactically plausible: the conversational path stays
	// forgiving and searches without a temporal constraint. Callers log this.
	return nil, nil
}

// parseMonthThird handles the "YYYY-MM-上旬/中旬/下旬" forms: the first,
// middle, or last third of a calendar month.
func parseMonthThird(expr string, loc *time.Location) *Range {
	var fromDay, toDay int
	var prefix string

	switch {
	case strings.HasSuffix(expr, "-上旬"):
		prefix, fromDay, toDay = strings.TrimSuffix(expr, "-上旬"), 1, 10
	case strings.HasSuffix(expr, "-中旬"):
		prefix, fromDay, toDay = strings.TrimSuffix(expr, "-中旬"), 11, 20
	case strings.HasSuffix(expr, "-下旬"):
		prefix, fromDay, toDay = strings.TrimSuffix(expr, "-下旬"), 21, 0 // 0 = month end
	default:
		return nil
	}

	m, err := time.ParseInLocation("2006-01", prefix, loc)
	if err != nil {
		return nil
	}

	start := time.Date(m.Year(), m.Month(), fromDay, 0, 0, 0, 0, loc)
	var end time.Time
	if toDay == 0 {
		end = time.Date(m.Year(), m.Month()+1, 0, 0, 0, 0, 0, loc)
	} else {
		end = time.Date(m.Year(), m.Month(), toDay, 0, 0, 0, 0, loc)
	}
	return &Range{Start: start, End: end}
}

func monthRange(year int, month time.Month, loc *time.Location) *Range {
	return &Range{
		Start: time.Date(year, month, 1, 0, 0, 0, 0, loc),
		End:   time.Date(year, month+1, 0, 0, 0, 0, 0, loc),
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
