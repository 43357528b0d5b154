// Package syncer materializes aggregated UTM event metrics from the columnar
// warehouse into the relational store. Runs are idempotent: every write is a
// natural-key upsert, so re-syncing a day converges to the same rows.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/observability"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/warehouse"
)

// ErrSyncInProgress is returned when another run already holds the day's lease.
var ErrSyncInProgress = errors.New("sync already in progress for this day")

// MetricWriter persists batches of metric records via natural-key upsert.
type MetricWriter interface {
	UpsertMetrics(ctx context.Context, records []models.MetricRecord) error
}

// LeaseStore guards against overlapping sync runs for the same day. Overlap
// would still converge (upserts are commutative), the lease just avoids the
// wasted duplicate warehouse scan.
type LeaseStore interface {
	AcquireSyncLease(day, runID string, ttl time.Duration) (bool, error)
	ReleaseSyncLease(day, runID string) error
}

// Orchestrator pulls one day of aggregated events from the warehouse and
// replaces the corresponding store rows.
type Orchestrator struct {
	Warehouse warehouse.Client
	Store     MetricWriter
	Leases    LeaseStore // optional; nil disables the overlap guard
	Logger    *zap.Logger
	Metrics   observability.MetricsRegistry

	// Location anchors the "yesterday" window. The warehouse's event-time
	// partitioning lags, so same-day extraction would read a half-filled
	// partition.
	Location  *time.Location
	BatchSize int
	LeaseTTL  time.Duration
}

// New constructs an Orchestrator.
func New(wh warehouse.Client, store MetricWriter, leases LeaseStore, logger *zap.Logger, metrics observability.MetricsRegistry, loc *time.Location, batchSize int, leaseTTL time.Duration) *Orchestrator {
	if loc == nil {
		loc = time.UTC
	}
	if batchSize <= 0 {
		batchSize = 2500
	}
	return &Orchestrator{
		Warehouse: wh,
		Store:     store,
		Leases:    leases,
		Logger:    logger,
		Metrics:   metrics,
		Location:  loc,
		BatchSize: batchSize,
		LeaseTTL:  leaseTTL,
	}
}

// Yesterday returns the default extraction window: the previous calendar day
// in the operational timezone.
func (o *Orchestrator) Yesterday() time.Time {
	now := time.Now().In(o.Location)
	y := now.AddDate(0, 0, -1)
	return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC)
}

// SyncYesterday runs SyncDay for the default window.
func (o *Orchestrator) SyncYesterday(ctx context.Context) error {
	return o.syncDay(ctx, o.Yesterday(), "manual")
}

// SyncDay pulls all aggregated event rows for the given day and upserts them
// in bounded batches. Batches commit independently: a failure partway leaves
// the earlier batches in place, and a re-run repairs the rest.
func (o *Orchestrator) SyncDay(ctx context.Context, day time.Time) error {
	return o.syncDay(ctx, day, "manual")
}

// SyncRange runs SyncDay for every day in the inclusive range.
func (o *Orchestrator) SyncRange(ctx context.Context, from, to time.Time) error {
	if to.Before(from) {
		return fmt.Errorf("invalid range: %s precedes %s", to.Format(models.DateLayout), from.Format(models.DateLayout))
	}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := o.syncDay(ctx, d, "manual"); err != nil {
			return fmt.Errorf("sync %s: %w", d.Format(models.DateLayout), err)
		}
	}
	return nil
}

// RunScheduled executes the daily trigger. Collaborator failures are logged
// and swallowed: the schedule must never crash the process, and a manual
// re-trigger is the recovery path.
func (o *Orchestrator) RunScheduled(ctx context.Context) {
	if err := o.syncDay(ctx, o.Yesterday(), "scheduled"); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			o.Logger.Warn("scheduled sync skipped, run already in flight")
			return
		}
		o.Logger.Error("scheduled sync failed", zap.Error(err))
	}
}

func (o *Orchestrator) syncDay(ctx context.Context, day time.Time, trigger string) error {
	dayStr := day.Format(models.DateLayout)
	runID := uuid.NewString()
	log := o.Logger.With(zap.String("day", dayStr), zap.String("run_id", runID), zap.String("trigger", trigger))

	if o.Leases != nil {
		ok, err := o.Leases.AcquireSyncLease(dayStr, runID, o.LeaseTTL)
		if err != nil {
			// Lease store outage degrades to guard-less execution; the
			// upsert makes overlapping runs safe, just wasteful.
			log.Warn("sync lease unavailable, proceeding without guard", zap.Error(err))
		} else if !ok {
			o.Metrics.IncrementSyncRuns(trigger, "skipped")
			return ErrSyncInProgress
		} else {
			defer func() {
				if err := o.Leases.ReleaseSyncLease(dayStr, runID); err != nil {
					log.Warn("release sync lease", zap.Error(err))
				}
			}()
		}
	}

	log.Info("Starting daily analytics sync")

	start := time.Now()
	rows, err := o.Warehouse.Query(ctx, ExtractionQuery(day))
	o.Metrics.RecordWarehouseQueryLatency(time.Since(start))
	if err != nil {
		o.Metrics.IncrementSyncRuns(trigger, "error")
		return fmt.Errorf("warehouse extraction: %w", err)
	}

	if len(rows) == 0 {
		// The day may genuinely be empty, or the warehouse partition may
		// not be ready yet. Either way this is not an error.
		log.Warn("no warehouse data for day")
		o.Metrics.IncrementSyncRuns(trigger, "empty")
		return nil
	}

	records := make([]models.MetricRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := models.ParseWarehouseRow(row)
		if err != nil {
			log.Warn("skipping unparseable warehouse row", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	log.Info("Upserting metric records", zap.Int("rows", len(records)))

	for i := 0; i < len(records); i += o.BatchSize {
		end := i + o.BatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := o.Store.UpsertMetrics(ctx, records[i:end]); err != nil {
			o.Metrics.IncrementSyncRuns(trigger, "error")
			return fmt.Errorf("upsert batch at %d: %w", i, err)
		}
	}

	o.Metrics.AddSyncRows(len(records))
	o.Metrics.IncrementSyncRuns(trigger, "success")
	log.Info("Daily sync complete", zap.Int("rows", len(records)))
	return nil
}

// ExtractionQuery builds the warehouse aggregation for one day. A session is
// the (user_pseudo_id, ga_session_id) pair, and a session counts as engaged
// when any of its events carries the engagement flag. The engagement ratio
// nulls out instead of dividing by zero on empty groups.
func ExtractionQuery(day time.Time) string {
	return fmt.Sprintf(`SELECT
    event_day AS date,
    utm_source, utm_medium, utm_campaign,
    uniqExact(user_pseudo_id, ga_session_id) AS sessions,
    countIf(event_name = 'page_view') AS pageviews,
    uniqExact(user_pseudo_id) AS users,
    uniqExactIf(user_pseudo_id, event_name = 'first_visit') AS new_users,
    count() AS event_count,
    uniqExactIf((user_pseudo_id, ga_session_id), session_engaged = '1')
        / nullIf(uniqExact(user_pseudo_id, ga_session_id), 0) AS engagement_rate
FROM events_utm_base
WHERE event_day = toDate('%s')
GROUP BY event_day, utm_source, utm_medium, utm_campaign`, day.Format(models.DateLayout))
}
