// Package importer reconstructs historical metric rows from the legacy
// campaign spreadsheet export: one row per campaign link, one column per
// calendar day of click counts. The load is one-shot but safe to repeat,
// since every write is a natural-key upsert.
package importer

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/observability"
)

// The legacy export is a single-network dump, so the source is fixed; only
// the medium varies per link. Not general-purpose by design.
const legacyUTMSource = "fb"

// Columns whose header date falls outside this window are ignored. The
// export carries columns far beyond the range that was ever populated.
var (
	windowStart = time.Date(2025, time.November, 4, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, time.February, 8, 0, 0, 0, 0, time.UTC)
)

// column indexes of the two candidate campaign-link fields
const (
	newLinkCol = 2
	oldLinkCol = 3
)

var unknownDim = "Unknown"

// Importer performs the one-time legacy backfill into the metric store.
type Importer struct {
	Store     MetricWriter
	Logger    *zap.Logger
	Metrics   observability.MetricsRegistry
	Path      string
	BatchSize int
}

// MetricWriter persists batches of metric records via natural-key upsert.
type MetricWriter interface {
	UpsertMetrics(ctx context.Context, records []models.MetricRecord) error
}

// New constructs an Importer reading from path.
func New(store MetricWriter, logger *zap.Logger, metrics observability.MetricsRegistry, path string, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = 2000
	}
	return &Importer{Store: store, Logger: logger, Metrics: metrics, Path: path, BatchSize: batchSize}
}

// Run parses the export, pivots date columns into per-day records and
// upserts them in bounded batches. It returns the number of records written.
// A missing or structurally invalid file is a hard error; individual rows
// that yield no usable link or medium are skipped silently, since partial
// success beats all-or-nothing rejection for this data set.
func (im *Importer) Run(ctx context.Context) (int, error) {
	im.Logger.Info("Starting legacy data import", zap.String("path", im.Path))

	content, err := os.ReadFile(im.Path)
	if err != nil {
		return 0, fmt.Errorf("read legacy export: %w", err)
	}

	lines := splitLines(string(content))
	if len(lines) < 3 {
		return 0, fmt.Errorf("legacy export is empty or invalid: expected a title row, a date row and data rows")
	}

	dateMap := dateColumns(ParseCSVLine(lines[1]))
	im.Logger.Info("Found relevant date columns", zap.Int("columns", len(dateMap)))

	var batch []models.MetricRecord
	for _, line := range lines[2:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		batch = append(batch, pivotRow(ParseCSVLine(line), dateMap)...)
	}

	im.Logger.Info("Inserting legacy records", zap.Int("records", len(batch)))

	for i := 0; i < len(batch); i += im.BatchSize {
		end := i + im.BatchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := im.Store.UpsertMetrics(ctx, batch[i:end]); err != nil {
			return 0, fmt.Errorf("upsert batch at %d: %w", i, err)
		}
	}

	im.Metrics.AddImportRecords(len(batch))
	im.Logger.Info("Legacy import complete", zap.Int("records", len(batch)))
	return len(batch), nil
}

// dateColumns scans the date header row and maps column index to calendar
// date for every cell that parses as a date inside the accepted window.
func dateColumns(dateRow []string) map[int]time.Time {
	out := make(map[int]time.Time)
	for i, cell := range dateRow {
		if cell == "" {
			continue
		}
		d, ok := parseHeaderDate(cell)
		if !ok {
			continue
		}
		if d.Before(windowStart) || d.After(windowEnd) {
			continue
		}
		out[i] = d
	}
	return out
}

// headerDateLayouts are the formats seen in exports of this spreadsheet.
var headerDateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

func parseHeaderDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range headerDateLayouts {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// pivotRow turns one campaign-link row into per-day metric records. The
// legacy source carried a single clicks figure per day, so clicks stand in
// for sessions, pageviews, users and event count alike.
func pivotRow(values []string, dateMap map[int]time.Time) []models.MetricRecord {
	link := chooseLink(values)
	if link == "" || !strings.Contains(link, "utm_source") {
		return nil
	}
	medium := ExtractParam(link, "utm_medium")
	if medium == "" {
		return nil
	}

	var out []models.MetricRecord
	for col, date := range dateMap {
		if col >= len(values) {
			continue
		}
		clicks, ok := parseClicks(values[col])
		if !ok || clicks <= 0 {
			continue
		}
		out = append(out, models.MetricRecord{
			Date:           date,
			UTMSource:      legacyUTMSource,
			UTMMedium:      medium,
			UTMCampaign:    models.DefaultUTMCampaign,
			Country:        &unknownDim,
			City:           &unknownDim,
			DeviceCategory: &unknownDim,
			UserGender:     &unknownDim,
			UserAge:        &unknownDim,
			Sessions:       clicks,
			Pageviews:      clicks,
			Users:          clicks,
			EventCount:     clicks,
		})
	}
	return out
}

// chooseLink prefers the new-link column when it carries a medium marker,
// falling back to the old-link column.
func chooseLink(values []string) string {
	var newLink, oldLink string
	if newLinkCol < len(values) {
		newLink = values[newLinkCol]
	}
	if oldLinkCol < len(values) {
		oldLink = values[oldLinkCol]
	}
	if newLink != "" && strings.Contains(newLink, "utm_medium") {
		return newLink
	}
	return oldLink
}

// parseClicks reads a numeric cell, stripping thousands separators.
func parseClicks(raw string) (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractParam pulls a query-parameter value out of a link by pattern match.
// Legacy links are not reliably well-formed URLs, so this deliberately does
// not run them through a URL parser.
func ExtractParam(link, param string) string {
	re, err := regexp.Compile(`[?&]` + regexp.QuoteMeta(param) + `=([^&]+)`)
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseCSVLine splits one export line on unquoted commas. Fields wrapped in
// quotes keep embedded commas; one surrounding quote pair is stripped.
func ParseCSVLine(text string) []string {
	var result []string
	start := 0
	inQuotes := false
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				result = append(result, cleanField(text[start:i]))
				start = i + 1
			}
		}
	}
	result = append(result, cleanField(text[start:]))
	return result
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return s
}

// splitLines splits on \n, tolerating \r\n line endings.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
