package datefilter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietlake/mnemo/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseAbsoluteForms(t *testing.T) {
	now := date(2026, time.January, 13)

	tests := []struct {
		expr       string
		start, end time.Time
	}{
		{"2024-06-02", date(2024, time.June, 2), date(2024, time.June, 2)},
		{"2024-06", date(2024, time.June, 1), date(2024, time.June, 30)},
		{"2024-02", date(2024, time.February, 1), date(2024, time.February, 29)},
		{"2024", date(2024, time.January, 1), date(2024, time.December, 31)},
		{"2024-06-上旬", date(2024, time.June, 1), date(2024, time.June, 10)},
		{"2024-06-中旬", date(2024, time.June, 11), date(2024, time.June, 20)},
		{"2024-06-下旬", date(2024, time.June, 21), date(2024, time.June, 30)},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			r, err := Parse(tc.expr, now)
			require.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, tc.start, r.Start)
			assert.Equal(t, tc.end, r.End)
		})
	}
}

func TestParseRelativeForms(t *testing.T) {
	now := time.Date(2026, time.January, 13, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		expr       string
		start, end time.Time
	}{
		{"today", date(2026, time.January, 13), date(2026, time.January, 13)},
		{"yesterday", date(2026, time.January, 12), date(2026, time.January, 12)},
		{"last_week", date(2026, time.January, 7), date(2026, time.January, 13)},
		{"last_month", date(2025, time.December, 1), date(2025, time.December, 31)},
		{"last_year", date(2025, time.January, 1), date(2025, time.December, 31)},
		{"3_months_ago", date(2025, time.October, 1), date(2025, time.October, 31)},
		{"1_months_ago", date(2025, time.December, 1), date(2025, time.December, 31)},
		{"2_days_ago", date(2026, time.January, 12), date(2026, time.January, 13)},
		{"7_days_ago", date(2026, time.January, 7), date(2026, time.January, 13)},
		{"1_days_ago", date(2026, time.January, 13), date(2026, time.January, 13)},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			r, err := Parse(tc.expr, now)
			require.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, tc.start, r.Start)
			assert.Equal(t, tc.end, r.End)
		})
	}
}

func TestParseMonthsAgoCrossesYearBoundary(t *testing.T) {
	// 14 months before 2026-01 is 2024-11.
	r, err := Parse("14_months_ago", date(2026, time.January, 13))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, date(2024, time.November, 1), r.Start)
	assert.Equal(t, date(2024, time.November, 30), r.End)
}

func TestParseEmptyAndNone(t *testing.T) {
	now := date(2026, time.January, 13)

	for _, expr := range []string{"", "  ", "none", "NONE"} {
		r, err := Parse(expr, now)
		assert.NoError(t, err)
		assert.Nil(t, r)
	}
}

func TestParseUnrecognizedYieldsNoFilter(t *testing.T) {
	now := date(2026, time.January, 13)

	for _, expr := range []string{"sometime", "next_week", "06-02", "99999"} {
		r, err := Parse(expr, now)
		assert.NoError(t, err, expr)
		assert.Nil(t, r, expr)
	}
}

func TestParseMalformedRelativeFails(t *testing.T) {
	now := date(2026, time.January, 13)

	for _, expr := range []string{"x_months_ago", "xmonths_ago", "_days_ago", "0_days_ago", "-2_months_ago"} {
		_, err := Parse(expr, now)
		require.Error(t, err, expr)

		var invalid *core.InvalidDateFilterError
		assert.True(t, errors.As(err, &invalid), expr)
	}
}

func TestContains(t *testing.T) {
	r := Range{Start: date(2024, time.June, 1), End: date(2024, time.June, 10)}

	assert.True(t, r.Contains(date(2024, time.June, 1)))
	assert.True(t, r.Contains(date(2024, time.June, 10)))
	assert.True(t, r.Contains(time.Date(2024, time.June, 10, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(date(2024, time.May, 31)))
	assert.False(t, r.Contains(date(2024, time.June, 11)))
}
