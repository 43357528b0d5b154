package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/rollup"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return &Postgres{DB: db}, mock
}

func strPtr(s string) *string { return &s }

func TestUpsertMetricsSingleRecord(t *testing.T) {
	p, mock := newMockPostgres(t)

	rec := models.MetricRecord{
		Date:           time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		UTMSource:      "google",
		UTMMedium:      "cpc",
		UTMCampaign:    "spring_sale",
		Country:        strPtr("India"),
		Sessions:       10,
		Pageviews:      6,
		Users:          8,
		NewUsers:       2,
		EventCount:     15,
		EngagementRate: 0.56789,
	}

	mock.ExpectExec(`INSERT INTO utm_daily_metrics .+ON CONFLICT \(date, utm_source, utm_medium, utm_campaign, country, city, device_category, user_gender, user_age\) DO UPDATE SET`).
		WithArgs(
			rec.Date, "google", "cpc", "spring_sale",
			rec.Country, nil, nil, nil, nil,
			int64(10), int64(6), int64(8), int64(2),
			int64(0), int64(0), int64(15), 0.5679,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.UpsertMetrics(context.Background(), []models.MetricRecord{rec}))
}

func TestUpsertMetricsMultiRowPlaceholders(t *testing.T) {
	p, mock := newMockPostgres(t)

	recs := []models.MetricRecord{
		{Date: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), UTMSource: "a", UTMMedium: "m", UTMCampaign: "c"},
		{Date: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), UTMSource: "b", UTMMedium: "m", UTMCampaign: "c"},
	}

	// two records of 17 columns bind 34 placeholders
	mock.ExpectExec(`VALUES \(\$1,.+\$17\), \(\$18,.+\$34\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, p.UpsertMetrics(context.Background(), recs))
}

func TestUpsertMetricsEmptyBatch(t *testing.T) {
	p, _ := newMockPostgres(t)
	require.NoError(t, p.UpsertMetrics(context.Background(), nil))
}

func TestSelectDailyMetrics(t *testing.T) {
	p, mock := newMockPostgres(t)

	q, err := rollup.NewQuery("daily", "2026-02-01", "2026-02-28", rollup.Filters{UTMSource: []string{"google"}})
	require.NoError(t, err)

	cols := []string{
		"date", "utm_source", "utm_medium", "utm_campaign",
		"country", "city", "device_category", "user_gender", "user_age",
		"sessions", "pageviews", "users", "new_users",
		"recurring_users", "identified_users", "event_count", "engagement_rate",
	}
	mock.ExpectQuery(`SELECT date, .+FROM utm_daily_metrics.+ORDER BY date ASC`).
		WithArgs(q.Start, q.End, "google").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "google", "cpc", "spring_sale",
			"India", nil, nil, nil, nil,
			int64(10), int64(6), int64(8), int64(2),
			int64(0), int64(0), int64(15), 0.5,
		))

	out, err := p.SelectDailyMetrics(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2026-02-01", out[0].EventDay)
	assert.Equal(t, "google", out[0].UTMSource)
	require.NotNil(t, out[0].Country)
	assert.Equal(t, "India", *out[0].Country)
	assert.Nil(t, out[0].City)
	assert.Equal(t, int64(10), out[0].Sessions)
}

func TestSelectDailyMetricsNoRows(t *testing.T) {
	p, mock := newMockPostgres(t)

	q, err := rollup.NewQuery("daily", "2026-02-01", "2026-02-28", rollup.Filters{})
	require.NoError(t, err)

	mock.ExpectQuery(`FROM utm_daily_metrics`).
		WithArgs(q.Start, q.End).
		WillReturnRows(sqlmock.NewRows([]string{"date"}))

	out, err := p.SelectDailyMetrics(context.Background(), q)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSelectBucketedMetrics(t *testing.T) {
	p, mock := newMockPostgres(t)

	q, err := rollup.NewQuery("monthly", "2026-01-01", "2026-03-31", rollup.Filters{})
	require.NoError(t, err)

	cols := []string{
		"period", "utm_source", "utm_medium", "utm_campaign",
		"sessions", "pageviews", "users", "new_users", "event_count", "engagement_rate",
	}
	mock.ExpectQuery(`DATE_TRUNC\('month', date\).+GROUP BY period, utm_source, utm_medium, utm_campaign`).
		WithArgs(q.Start, q.End).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "google", "cpc", "c",
				int64(100), int64(80), int64(70), int64(12), int64(300), 0.42).
			AddRow(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "google", "cpc", "c",
				int64(90), int64(75), int64(66), int64(9), int64(280), 0.39))

	out, err := p.SelectBucketedMetrics(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2026-01-01", out[0].Period)
	assert.Equal(t, int64(100), out[0].Sessions)
	assert.Equal(t, "2026-02-01", out[1].Period)
}

func TestRangeTotals(t *testing.T) {
	p, mock := newMockPostgres(t)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(sessions\), 0\), COALESCE\(SUM\(users\), 0\) FROM utm_daily_metrics WHERE date BETWEEN \$1 AND \$2$`).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"sessions", "users"}).AddRow(int64(700), int64(450)))

	totals, err := p.RangeTotals(context.Background(), start, end, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(700), totals.Sessions)
	assert.Equal(t, int64(450), totals.Users)
}

func TestRangeTotalsWithSourceFilter(t *testing.T) {
	p, mock := newMockPostgres(t)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`AND utm_source = ANY\(\$3\)`).
		WithArgs(start, end, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"sessions", "users"}).AddRow(int64(5), int64(4)))

	totals, err := p.RangeTotals(context.Background(), start, end, []string{"google", "fb"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), totals.Sessions)
}

func TestListPageMappings(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`FROM page_mappings ORDER BY category ASC, page_name ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "platform", "page_name", "utm_source", "utm_mediums"}).
			AddRow(1, "social", "facebook", "Main Page", "fb", "{cpc,stories}"))

	out, err := p.ListPageMappings(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, []string{"cpc", "stories"}, out[0].UTMMediums)
}

func TestInsertPageMapping(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`INSERT INTO page_mappings .+RETURNING id`).
		WithArgs("social", "facebook", "Main Page", "fb", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	m := models.PageMapping{Category: "social", Platform: "facebook", PageName: "Main Page", UTMSource: "fb", UTMMediums: []string{"cpc"}}
	require.NoError(t, p.InsertPageMapping(context.Background(), &m))
	assert.Equal(t, 7, m.ID)
}

func TestDeletePageMapping(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM page_mappings WHERE id = \$1`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.DeletePageMapping(context.Background(), 3))
}
