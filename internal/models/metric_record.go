package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sentinel values for absent UTM dimensions. The store columns default to
// these, so a record never carries an empty or null UTM field.
const (
	DefaultUTMSource   = "(direct)"
	DefaultUTMMedium   = "(none)"
	DefaultUTMCampaign = "(not set)"
)

// DateLayout is the calendar-day format used throughout the pipeline.
const DateLayout = "2006-01-02"

// NaturalKeyColumns is the composite key a metric row is unique on. Every
// write is an upsert keyed on these columns; a collision replaces the row.
var NaturalKeyColumns = []string{
	"date",
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"country",
	"city",
	"device_category",
	"user_gender",
	"user_age",
}

// MetricRecord is one row of daily UTM campaign analytics: a calendar day
// plus the traffic-source dimensions it was measured under.
type MetricRecord struct {
	Date        time.Time `json:"date"`
	UTMSource   string    `json:"utm_source"`
	UTMMedium   string    `json:"utm_medium"`
	UTMCampaign string    `json:"utm_campaign"`

	Country        *string `json:"country,omitempty"`
	City           *string `json:"city,omitempty"`
	DeviceCategory *string `json:"device_category,omitempty"`
	UserGender     *string `json:"user_gender,omitempty"`
	UserAge        *string `json:"user_age,omitempty"`

	Sessions        int64   `json:"sessions"`
	Pageviews       int64   `json:"pageviews"`
	Users           int64   `json:"users"`
	NewUsers        int64   `json:"new_users"`
	RecurringUsers  int64   `json:"recurring_users"`
	IdentifiedUsers int64   `json:"identified_users"`
	EventCount      int64   `json:"event_count"`
	EngagementRate  float64 `json:"engagement_rate"`
}

// Day returns the record's date formatted as a calendar day.
func (m MetricRecord) Day() string {
	return m.Date.Format(DateLayout)
}

// RoundRate truncates an engagement rate to the store's fixed precision
// (4 decimal digits).
func RoundRate(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// ParseWarehouseRow converts one loosely-typed warehouse row into a
// MetricRecord. Warehouse rows carry no static shape guarantee: dates may
// arrive as time values, strings, or wrapped in a {value: ...} holder, and
// numbers may arrive as any integer or float width, or as strings. Absent
// UTM fields default to their sentinels; absent metrics default to zero.
// A row without a parseable date, or with a negative metric, is rejected.
func ParseWarehouseRow(row map[string]any) (MetricRecord, error) {
	date, err := parseRowDate(row["date"])
	if err != nil {
		return MetricRecord{}, fmt.Errorf("parse row date: %w", err)
	}

	rec := MetricRecord{
		Date:           date,
		UTMSource:      stringOr(row["utm_source"], DefaultUTMSource),
		UTMMedium:      stringOr(row["utm_medium"], DefaultUTMMedium),
		UTMCampaign:    stringOr(row["utm_campaign"], DefaultUTMCampaign),
		Country:        optString(row["country"]),
		City:           optString(row["city"]),
		DeviceCategory: optString(row["device_category"]),
		UserGender:     optString(row["user_gender"]),
		UserAge:        optString(row["user_age"]),
	}

	counts := []struct {
		name string
		dst  *int64
	}{
		{"sessions", &rec.Sessions},
		{"pageviews", &rec.Pageviews},
		{"users", &rec.Users},
		{"new_users", &rec.NewUsers},
		{"recurring_users", &rec.RecurringUsers},
		{"identified_users", &rec.IdentifiedUsers},
		{"event_count", &rec.EventCount},
	}
	for _, c := range counts {
		n, err := intOrZero(row[c.name])
		if err != nil {
			return MetricRecord{}, fmt.Errorf("parse %s: %w", c.name, err)
		}
		if n < 0 {
			return MetricRecord{}, fmt.Errorf("parse %s: negative value %d", c.name, n)
		}
		*c.dst = n
	}

	// the nullIf-guarded ratio comes back null for empty groups
	rate, err := floatOrZero(row["engagement_rate"])
	if err != nil {
		return MetricRecord{}, fmt.Errorf("parse engagement_rate: %w", err)
	}
	rec.EngagementRate = RoundRate(rate)

	return rec, nil
}

// parseRowDate unwraps the warehouse's date representation into a plain
// calendar date. Some warehouse clients hand dates back inside a value
// holder, so one level of {value: ...} is unwrapped first.
func parseRowDate(v any) (time.Time, error) {
	if holder, ok := v.(map[string]any); ok {
		v = holder["value"]
	}
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case *time.Time:
		if d == nil {
			return time.Time{}, fmt.Errorf("nil date")
		}
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		s := strings.TrimSpace(d)
		if len(s) > len(DateLayout) {
			// trim a trailing time component
			s = s[:len(DateLayout)]
		}
		return time.ParseInLocation(DateLayout, s, time.UTC)
	case nil:
		return time.Time{}, fmt.Errorf("missing date")
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}

// stringOr coerces v to a string, falling back to def when absent or empty.
func stringOr(v any, def string) string {
	if s := optString(v); s != nil {
		return *s
	}
	return def
}

// optString coerces v to a string pointer, nil when absent or empty.
func optString(v any) *string {
	switch s := v.(type) {
	case string:
		if s == "" {
			return nil
		}
		return &s
	case *string:
		if s == nil || *s == "" {
			return nil
		}
		return s
	default:
		return nil
	}
}

// intOrZero coerces a numeric warehouse value to int64, zero when absent.
func intOrZero(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		if n == "" {
			return 0, nil
		}
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

// floatOrZero coerces a numeric warehouse value to float64, zero when absent.
func floatOrZero(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case *float64:
		if n == nil {
			return 0, nil
		}
		return *n, nil
	case int64:
		return float64(n), nil
	case string:
		if n == "" {
			return 0, nil
		}
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}
