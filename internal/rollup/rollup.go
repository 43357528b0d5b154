// Package rollup builds the read queries served to the dashboard: a date
// range, a granularity, and a set of UTM dimension filters become one
// aggregation statement against the metrics store. Predicates are built from
// a closed dimension enum, never by interpolating caller input into SQL.
package rollup

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
)

// Granularity selects the time bucketing of a metrics query.
type Granularity string

const (
	// Daily is row pass-through: one result row per stored record.
	Daily Granularity = "daily"
	// Weekly buckets records into calendar weeks, preserving the UTM triple.
	Weekly Granularity = "weekly"
	// Monthly buckets records into calendar months, preserving the UTM triple.
	Monthly Granularity = "monthly"
)

// ParseGranularity validates a rollup request parameter.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Daily, Weekly, Monthly:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("invalid rollup %q: must be daily, weekly or monthly", s)
	}
}

// Dimension is a filterable UTM dimension. The enum is closed: only these
// three may appear in a WHERE clause, which keeps predicate construction
// injection-free.
type Dimension string

const (
	DimSource   Dimension = "utm_source"
	DimMedium   Dimension = "utm_medium"
	DimCampaign Dimension = "utm_campaign"
)

// dimensions in stable predicate order.
var dimensions = []Dimension{DimSource, DimMedium, DimCampaign}

// Filters restricts a query to specific UTM dimension values. An empty slice
// means no restriction on that dimension. A single value becomes an equality
// predicate, several become set membership; present filters are ANDed.
type Filters struct {
	UTMSource   []string
	UTMMedium   []string
	UTMCampaign []string
}

func (f Filters) values(d Dimension) []string {
	switch d {
	case DimSource:
		return f.UTMSource
	case DimMedium:
		return f.UTMMedium
	case DimCampaign:
		return f.UTMCampaign
	}
	return nil
}

// Query is a validated metrics read request.
type Query struct {
	Granularity Granularity
	Start       time.Time
	End         time.Time
	Filters     Filters
}

// NewQuery validates the raw request parameters and returns a Query. All
// validation happens here, before any SQL is constructed.
func NewQuery(granularity, startDate, endDate string, filters Filters) (Query, error) {
	g, err := ParseGranularity(granularity)
	if err != nil {
		return Query{}, err
	}
	start, err := parseDay("startDate", startDate)
	if err != nil {
		return Query{}, err
	}
	end, err := parseDay("endDate", endDate)
	if err != nil {
		return Query{}, err
	}
	if end.Before(start) {
		return Query{}, fmt.Errorf("endDate %s precedes startDate %s", endDate, startDate)
	}
	return Query{Granularity: g, Start: start, End: end, Filters: filters}, nil
}

func parseDay(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing required parameter %s", name)
	}
	t, err := time.ParseInLocation(models.DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", name, value)
	}
	return t, nil
}

// wherePredicates builds the shared date-range and dimension predicates.
// Placeholders continue from the returned arg list.
func (q Query) wherePredicates() ([]string, []any) {
	preds := []string{"date BETWEEN $1 AND $2"}
	args := []any{q.Start, q.End}

	for _, dim := range dimensions {
		vals := q.Filters.values(dim)
		switch {
		case len(vals) == 1:
			args = append(args, vals[0])
			preds = append(preds, fmt.Sprintf("%s = $%d", dim, len(args)))
		case len(vals) > 1:
			args = append(args, pq.Array(vals))
			preds = append(preds, fmt.Sprintf("%s = ANY($%d)", dim, len(args)))
		}
	}
	return preds, args
}

// Plan returns the SQL statement and bind arguments for the query.
//
// Daily passes stored rows through unaggregated. Weekly and monthly truncate
// the date to its bucket start and aggregate per (bucket, source, medium,
// campaign): collapsing the UTM triple would silently merge distinct
// campaigns, so the grouping keeps it.
func (q Query) Plan() (string, []any) {
	preds, args := q.wherePredicates()
	where := strings.Join(preds, " AND ")

	if q.Granularity == Daily {
		sql := `SELECT date, utm_source, utm_medium, utm_campaign,
       country, city, device_category, user_gender, user_age,
       sessions, pageviews, users, new_users, recurring_users, identified_users,
       event_count, engagement_rate
FROM utm_daily_metrics
WHERE ` + where + `
ORDER BY date ASC`
		return sql, args
	}

	unit := "week"
	if q.Granularity == Monthly {
		unit = "month"
	}
	sql := fmt.Sprintf(`SELECT DATE_TRUNC('%s', date)::date AS period, utm_source, utm_medium, utm_campaign,
       SUM(sessions) AS sessions, SUM(pageviews) AS pageviews, SUM(users) AS users,
       SUM(new_users) AS new_users, SUM(event_count) AS event_count,
       AVG(engagement_rate) AS engagement_rate
FROM utm_daily_metrics
WHERE %s
GROUP BY period, utm_source, utm_medium, utm_campaign
ORDER BY period ASC, utm_source, utm_medium, utm_campaign`, unit, where)
	return sql, args
}

// DailyRow is one unaggregated result row of a daily query.
type DailyRow struct {
	EventDay       string  `json:"event_day"`
	UTMSource      string  `json:"utm_source"`
	UTMMedium      string  `json:"utm_medium"`
	UTMCampaign    string  `json:"utm_campaign"`
	Country        *string `json:"country"`
	City           *string `json:"city"`
	DeviceCategory *string `json:"device_category"`
	UserGender     *string `json:"user_gender"`
	UserAge        *string `json:"user_age"`

	Sessions        int64   `json:"sessions"`
	Pageviews       int64   `json:"pageviews"`
	Users           int64   `json:"users"`
	NewUsers        int64   `json:"new_users"`
	RecurringUsers  int64   `json:"recurring_users"`
	IdentifiedUsers int64   `json:"identified_users"`
	EventCount      int64   `json:"event_count"`
	EngagementRate  float64 `json:"engagement_rate"`
}

// BucketRow is one aggregated result row of a weekly or monthly query. The
// period is the bucket's first calendar day; metric fields are sums except
// engagement_rate, which is the average over the bucket's daily rows.
type BucketRow struct {
	Period      string `json:"period"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`

	Sessions       int64   `json:"sessions"`
	Pageviews      int64   `json:"pageviews"`
	Users          int64   `json:"users"`
	NewUsers       int64   `json:"new_users"`
	EventCount     int64   `json:"event_count"`
	EngagementRate float64 `json:"engagement_rate"`
}

// PercentDiff computes the day-over-day style percent change between two
// totals, rounded to 2 decimals. A zero previous value yields 100 when the
// current value is positive and 0 otherwise, so the helper never divides by
// zero.
func PercentDiff(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return math.Round(float64(current-previous)/float64(previous)*100*100) / 100
}
