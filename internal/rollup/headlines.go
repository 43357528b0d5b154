package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
)

// Totals holds summed metrics over a date range.
type Totals struct {
	Sessions int64
	Users    int64
}

// StatsReader supplies summed session totals for headline comparisons.
type StatsReader interface {
	// RangeTotals sums sessions and users over the inclusive date range,
	// optionally restricted to the given utm_source values.
	RangeTotals(ctx context.Context, start, end time.Time, utmSources []string) (Totals, error)
}

// DailyHeadline compares yesterday's sessions to the day before.
type DailyHeadline struct {
	Date         string  `json:"date"`
	Sessions     int64   `json:"sessions"`
	PrevSessions int64   `json:"prevSessions"`
	Diff         float64 `json:"diff"`
}

// WeeklyHeadline compares the last 7 full days to the 7 before them.
type WeeklyHeadline struct {
	Range        string  `json:"range"`
	Sessions     int64   `json:"sessions"`
	PrevSessions int64   `json:"prevSessions"`
	Diff         float64 `json:"diff"`
}

// Headlines is the day-over-day and week-over-week comparison payload.
type Headlines struct {
	Daily  DailyHeadline  `json:"daily"`
	Weekly WeeklyHeadline `json:"weekly"`
}

// BuildHeadlines computes headline comparisons relative to now. Yesterday is
// the most recent fully synced day, so all windows end there rather than at
// today.
func BuildHeadlines(ctx context.Context, reader StatsReader, now time.Time, utmSources []string) (Headlines, error) {
	day := func(offset int) time.Time {
		d := now.AddDate(0, 0, offset)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	yesterday := day(-1)
	dayBefore := day(-2)
	last7Start, last7End := day(-7), day(-1)
	prev7Start, prev7End := day(-14), day(-8)

	yTotals, err := reader.RangeTotals(ctx, yesterday, yesterday, utmSources)
	if err != nil {
		return Headlines{}, fmt.Errorf("yesterday totals: %w", err)
	}
	dbTotals, err := reader.RangeTotals(ctx, dayBefore, dayBefore, utmSources)
	if err != nil {
		return Headlines{}, fmt.Errorf("day-before totals: %w", err)
	}
	weekTotals, err := reader.RangeTotals(ctx, last7Start, last7End, utmSources)
	if err != nil {
		return Headlines{}, fmt.Errorf("last-week totals: %w", err)
	}
	prevWeekTotals, err := reader.RangeTotals(ctx, prev7Start, prev7End, utmSources)
	if err != nil {
		return Headlines{}, fmt.Errorf("prior-week totals: %w", err)
	}

	return Headlines{
		Daily: DailyHeadline{
			Date:         yesterday.Format(models.DateLayout),
			Sessions:     yTotals.Sessions,
			PrevSessions: dbTotals.Sessions,
			Diff:         PercentDiff(yTotals.Sessions, dbTotals.Sessions),
		},
		Weekly: WeeklyHeadline{
			Range:        last7Start.Format(models.DateLayout) + " to " + last7End.Format(models.DateLayout),
			Sessions:     weekTotals.Sessions,
			PrevSessions: prevWeekTotals.Sessions,
			Diff:         PercentDiff(weekTotals.Sessions, prevWeekTotals.Sessions),
		},
	}, nil
}
