package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWarehouseRowFullRow(t *testing.T) {
	country := "India"
	row := map[string]any{
		"date":            "2026-02-01",
		"utm_source":      "google",
		"utm_medium":      "cpc",
		"utm_campaign":    "spring_sale",
		"country":         country,
		"city":            "Mumbai",
		"device_category": "mobile",
		"sessions":        int64(10),
		"pageviews":       int64(6),
		"users":           int64(8),
		"new_users":       int64(2),
		"event_count":     int64(15),
		"engagement_rate": 0.5,
	}

	rec, err := ParseWarehouseRow(row)
	require.NoError(t, err)

	assert.Equal(t, "2026-02-01", rec.Day())
	assert.Equal(t, "google", rec.UTMSource)
	assert.Equal(t, "cpc", rec.UTMMedium)
	assert.Equal(t, "spring_sale", rec.UTMCampaign)
	require.NotNil(t, rec.Country)
	assert.Equal(t, "India", *rec.Country)
	require.NotNil(t, rec.City)
	assert.Equal(t, "Mumbai", *rec.City)
	assert.Nil(t, rec.UserGender)
	assert.Nil(t, rec.UserAge)
	assert.Equal(t, int64(10), rec.Sessions)
	assert.Equal(t, int64(6), rec.Pageviews)
	assert.Equal(t, int64(8), rec.Users)
	assert.Equal(t, int64(2), rec.NewUsers)
	assert.Equal(t, int64(15), rec.EventCount)
	assert.Equal(t, 0.5, rec.EngagementRate)
}

func TestParseWarehouseRowDefaultsAbsentDimensions(t *testing.T) {
	rec, err := ParseWarehouseRow(map[string]any{"date": "2026-02-01"})
	require.NoError(t, err)

	assert.Equal(t, DefaultUTMSource, rec.UTMSource)
	assert.Equal(t, DefaultUTMMedium, rec.UTMMedium)
	assert.Equal(t, DefaultUTMCampaign, rec.UTMCampaign)
	assert.Zero(t, rec.Sessions)
	assert.Zero(t, rec.EngagementRate)
}

func TestParseWarehouseRowEmptyStringsDefault(t *testing.T) {
	rec, err := ParseWarehouseRow(map[string]any{
		"date":       "2026-02-01",
		"utm_source": "",
		"country":    "",
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultUTMSource, rec.UTMSource)
	assert.Nil(t, rec.Country)
}

func TestParseWarehouseRowDateRepresentations(t *testing.T) {
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2026, 2, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800))

	cases := map[string]any{
		"time":         ts,
		"time pointer": &ts,
		"string":       "2026-02-01",
		"timestamp":    "2026-02-01 00:00:00",
		"holder":       map[string]any{"value": "2026-02-01"},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			rec, err := ParseWarehouseRow(map[string]any{"date": v})
			require.NoError(t, err)
			assert.True(t, rec.Date.Equal(want), "got %v", rec.Date)
		})
	}
}

func TestParseWarehouseRowMissingDate(t *testing.T) {
	_, err := ParseWarehouseRow(map[string]any{"sessions": int64(3)})
	assert.Error(t, err)
}

func TestParseWarehouseRowStringNumbers(t *testing.T) {
	rec, err := ParseWarehouseRow(map[string]any{
		"date":            "2026-02-01",
		"sessions":        "42",
		"engagement_rate": "0.75",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.Sessions)
	assert.Equal(t, 0.75, rec.EngagementRate)
}

func TestParseWarehouseRowNegativeMetricRejected(t *testing.T) {
	_, err := ParseWarehouseRow(map[string]any{
		"date":     "2026-02-01",
		"sessions": int64(-1),
	})
	assert.ErrorContains(t, err, "negative")
}

func TestParseWarehouseRowNilRate(t *testing.T) {
	var rate *float64
	rec, err := ParseWarehouseRow(map[string]any{
		"date":            "2026-02-01",
		"engagement_rate": rate,
	})
	require.NoError(t, err)
	assert.Zero(t, rec.EngagementRate)
}

func TestRoundRate(t *testing.T) {
	assert.Equal(t, 0.1235, RoundRate(0.123456))
	assert.Equal(t, 0.5, RoundRate(0.5))
	assert.Equal(t, 0.0, RoundRate(0))
}
