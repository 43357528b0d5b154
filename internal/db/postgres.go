package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/rollup"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
//
// UNIQUE NULLS NOT DISTINCT makes the nullable dimension columns compare
// equal on NULL, so re-running a sync or import over the same day replaces
// rows instead of accumulating near-duplicates (requires Postgres 15+).
const schemaSQL = `CREATE TABLE IF NOT EXISTS utm_daily_metrics (
    id SERIAL PRIMARY KEY,
    date DATE NOT NULL,
    utm_source TEXT NOT NULL DEFAULT '(direct)',
    utm_medium TEXT NOT NULL DEFAULT '(none)',
    utm_campaign TEXT NOT NULL DEFAULT '(not set)',
    country TEXT,
    city TEXT,
    device_category TEXT,
    user_gender TEXT,
    user_age TEXT,
    sessions INT NOT NULL DEFAULT 0,
    pageviews INT NOT NULL DEFAULT 0,
    users INT NOT NULL DEFAULT 0,
    new_users INT NOT NULL DEFAULT 0,
    recurring_users INT NOT NULL DEFAULT 0,
    identified_users INT NOT NULL DEFAULT 0,
    event_count INT NOT NULL DEFAULT 0,
    engagement_rate NUMERIC(5,4) NOT NULL DEFAULT 0,
    CONSTRAINT utm_daily_metrics_natural_key
        UNIQUE NULLS NOT DISTINCT (date, utm_source, utm_medium, utm_campaign,
            country, city, device_category, user_gender, user_age)
);

CREATE TABLE IF NOT EXISTS page_mappings (
    id SERIAL PRIMARY KEY,
    category TEXT NOT NULL,
    platform TEXT NOT NULL,
    page_name TEXT NOT NULL,
    utm_source TEXT NOT NULL,
    utm_mediums TEXT[] NOT NULL DEFAULT '{}'
);

-- date range scans back the rollup and headline reads
CREATE INDEX IF NOT EXISTS idx_utm_daily_metrics_date ON utm_daily_metrics (date);
`

// metricColumns is the full insert column list; the leading columns are the
// natural key, the rest are the replaced metric fields.
var metricColumns = []string{
	"date", "utm_source", "utm_medium", "utm_campaign",
	"country", "city", "device_category", "user_gender", "user_age",
	"sessions", "pageviews", "users", "new_users",
	"recurring_users", "identified_users", "event_count", "engagement_rate",
}

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertMetrics writes one batch of metric records in a single statement.
// Rows colliding on the natural key replace the stored metric fields; the
// statement is atomic per batch, callers chunk larger sets themselves.
func (p *Postgres) UpsertMetrics(ctx context.Context, records []models.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	args := make([]any, 0, len(records)*len(metricColumns))
	placeholders := make([]string, 0, len(records))
	for i, rec := range records {
		base := i * len(metricColumns)
		nums := make([]string, len(metricColumns))
		for j := range metricColumns {
			nums[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(nums, ",")+")")
		args = append(args,
			rec.Date, rec.UTMSource, rec.UTMMedium, rec.UTMCampaign,
			rec.Country, rec.City, rec.DeviceCategory, rec.UserGender, rec.UserAge,
			rec.Sessions, rec.Pageviews, rec.Users, rec.NewUsers,
			rec.RecurringUsers, rec.IdentifiedUsers, rec.EventCount,
			models.RoundRate(rec.EngagementRate),
		)
	}

	stmt := fmt.Sprintf(`INSERT INTO utm_daily_metrics (%s) VALUES %s
ON CONFLICT (%s) DO UPDATE SET
    sessions = EXCLUDED.sessions,
    pageviews = EXCLUDED.pageviews,
    users = EXCLUDED.users,
    new_users = EXCLUDED.new_users,
    recurring_users = EXCLUDED.recurring_users,
    identified_users = EXCLUDED.identified_users,
    event_count = EXCLUDED.event_count,
    engagement_rate = EXCLUDED.engagement_rate`,
		strings.Join(metricColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(models.NaturalKeyColumns, ", "))

	if _, err := p.DB.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert metrics batch: %w", err)
	}
	return nil
}

// SelectDailyMetrics executes a daily-granularity query plan and returns
// the matching stored rows unaggregated.
func (p *Postgres) SelectDailyMetrics(ctx context.Context, q rollup.Query) ([]rollup.DailyRow, error) {
	stmt, args := q.Plan()
	rows, err := p.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily metrics: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []rollup.DailyRow{}
	for rows.Next() {
		var r rollup.DailyRow
		var day time.Time
		if err := rows.Scan(&day, &r.UTMSource, &r.UTMMedium, &r.UTMCampaign,
			&r.Country, &r.City, &r.DeviceCategory, &r.UserGender, &r.UserAge,
			&r.Sessions, &r.Pageviews, &r.Users, &r.NewUsers,
			&r.RecurringUsers, &r.IdentifiedUsers, &r.EventCount, &r.EngagementRate); err != nil {
			return nil, fmt.Errorf("scan daily row: %w", err)
		}
		r.EventDay = day.Format(models.DateLayout)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// SelectBucketedMetrics executes a weekly or monthly query plan and returns
// one row per (bucket, source, medium, campaign).
func (p *Postgres) SelectBucketedMetrics(ctx context.Context, q rollup.Query) ([]rollup.BucketRow, error) {
	stmt, args := q.Plan()
	rows, err := p.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query bucketed metrics: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []rollup.BucketRow{}
	for rows.Next() {
		var r rollup.BucketRow
		var period time.Time
		if err := rows.Scan(&period, &r.UTMSource, &r.UTMMedium, &r.UTMCampaign,
			&r.Sessions, &r.Pageviews, &r.Users, &r.NewUsers,
			&r.EventCount, &r.EngagementRate); err != nil {
			return nil, fmt.Errorf("scan bucket row: %w", err)
		}
		r.Period = period.Format(models.DateLayout)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// RangeTotals sums sessions and users over the inclusive date range,
// optionally restricted to the given utm_source values.
func (p *Postgres) RangeTotals(ctx context.Context, start, end time.Time, utmSources []string) (rollup.Totals, error) {
	stmt := `SELECT COALESCE(SUM(sessions), 0), COALESCE(SUM(users), 0) FROM utm_daily_metrics WHERE date BETWEEN $1 AND $2`
	args := []any{start, end}
	if len(utmSources) > 0 {
		stmt += ` AND utm_source = ANY($3)`
		args = append(args, pq.Array(utmSources))
	}

	var t rollup.Totals
	if err := p.DB.QueryRowContext(ctx, stmt, args...).Scan(&t.Sessions, &t.Users); err != nil {
		return rollup.Totals{}, fmt.Errorf("query range totals: %w", err)
	}
	return t, nil
}
