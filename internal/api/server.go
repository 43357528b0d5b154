package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/config"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/observability"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/rollup"
)

// MetricsStore is the read/reference-data surface the handlers need from the
// relational store.
type MetricsStore interface {
	SelectDailyMetrics(ctx context.Context, q rollup.Query) ([]rollup.DailyRow, error)
	SelectBucketedMetrics(ctx context.Context, q rollup.Query) ([]rollup.BucketRow, error)
	RangeTotals(ctx context.Context, start, end time.Time, utmSources []string) (rollup.Totals, error)
	ListPageMappings(ctx context.Context) ([]models.PageMapping, error)
	InsertPageMapping(ctx context.Context, m *models.PageMapping) error
	DeletePageMapping(ctx context.Context, id int) error
}

// SyncService triggers warehouse-to-store sync runs.
type SyncService interface {
	SyncYesterday(ctx context.Context) error
	SyncDay(ctx context.Context, day time.Time) error
	SyncRange(ctx context.Context, from, to time.Time) error
}

// ImportService runs the one-time legacy backfill.
type ImportService interface {
	Run(ctx context.Context) (int, error)
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger   *zap.Logger
	Store    MetricsStore
	Syncer   SyncService
	Importer ImportService
	Metrics  observability.MetricsRegistry
	Config   config.Config

	// Location is the operational timezone headline windows are anchored to.
	Location *time.Location
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, store MetricsStore, syncer SyncService, importer ImportService, metrics observability.MetricsRegistry, cfg config.Config, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		Logger:   logger,
		Store:    store,
		Syncer:   syncer,
		Importer: importer,
		Metrics:  metrics,
		Config:   cfg,
		Location: loc,
	}
}

// helper function to write JSON response
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// observe records the request counter and latency for one handler exit.
func (s *Server) observe(endpoint, method string, start time.Time, status int) {
	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
