package rollup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueryValidation(t *testing.T) {
	_, err := NewQuery("hourly", "2026-01-01", "2026-01-31", Filters{})
	assert.ErrorContains(t, err, "invalid rollup")

	_, err = NewQuery("daily", "", "2026-01-31", Filters{})
	assert.ErrorContains(t, err, "startDate")

	_, err = NewQuery("daily", "2026-01-01", "31-01-2026", Filters{})
	assert.ErrorContains(t, err, "endDate")

	_, err = NewQuery("daily", "2026-01-31", "2026-01-01", Filters{})
	assert.ErrorContains(t, err, "precedes")

	q, err := NewQuery("weekly", "2026-01-01", "2026-01-31", Filters{})
	require.NoError(t, err)
	assert.Equal(t, Weekly, q.Granularity)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), q.Start)
}

func TestPlanDaily(t *testing.T) {
	q, err := NewQuery("daily", "2026-01-01", "2026-01-31", Filters{})
	require.NoError(t, err)

	sql, args := q.Plan()
	assert.Contains(t, sql, "FROM utm_daily_metrics")
	assert.Contains(t, sql, "date BETWEEN $1 AND $2")
	assert.Contains(t, sql, "ORDER BY date ASC")
	assert.NotContains(t, sql, "GROUP BY")
	assert.Len(t, args, 2)
}

func TestPlanDailyWithFilters(t *testing.T) {
	q, err := NewQuery("daily", "2026-01-01", "2026-01-31", Filters{
		UTMSource: []string{"google"},
		UTMMedium: []string{"cpc", "organic"},
	})
	require.NoError(t, err)

	sql, args := q.Plan()
	assert.Contains(t, sql, "utm_source = $3")
	assert.Contains(t, sql, "utm_medium = ANY($4)")
	assert.NotContains(t, sql, "utm_campaign")
	assert.Len(t, args, 4)
	assert.Equal(t, "google", args[2])
}

func TestPlanWeeklyGroupsByPeriodAndTriple(t *testing.T) {
	q, err := NewQuery("weekly", "2026-01-01", "2026-01-31", Filters{})
	require.NoError(t, err)

	sql, _ := q.Plan()
	assert.Contains(t, sql, "DATE_TRUNC('week', date)::date AS period")
	assert.Contains(t, sql, "GROUP BY period, utm_source, utm_medium, utm_campaign")
	assert.Contains(t, sql, "SUM(sessions)")
	assert.Contains(t, sql, "AVG(engagement_rate)")
	assert.Contains(t, sql, "ORDER BY period ASC")
}

func TestPlanMonthlyTruncatesToMonth(t *testing.T) {
	q, err := NewQuery("monthly", "2026-01-01", "2026-03-31", Filters{
		UTMCampaign: []string{"spring_sale"},
	})
	require.NoError(t, err)

	sql, args := q.Plan()
	assert.Contains(t, sql, "DATE_TRUNC('month', date)")
	assert.Contains(t, sql, "utm_campaign = $3")
	assert.Len(t, args, 3)
}

func TestPercentDiff(t *testing.T) {
	assert.Equal(t, 100.0, PercentDiff(5, 0))
	assert.Equal(t, 0.0, PercentDiff(0, 0))
	assert.Equal(t, 50.0, PercentDiff(150, 100))
	assert.Equal(t, -25.0, PercentDiff(75, 100))
	assert.Equal(t, 33.33, PercentDiff(4, 3))
	assert.Equal(t, -100.0, PercentDiff(0, 40))
}
