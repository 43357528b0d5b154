package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/syncer"
)

type syncResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ManualSyncHandler handles POST /v1/analytics/sync/manual. With no
// parameters it recomputes the default "yesterday" window; an explicit
// `date`, or a `startDate`+`endDate` pair, backfills arbitrary history.
func (s *Server) ManualSyncHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "sync_manual"
	const method = "POST"

	params := r.URL.Query()
	var run func() error
	var window string

	switch {
	case params.Get("date") != "":
		day, err := time.ParseInLocation(models.DateLayout, params.Get("date"), time.UTC)
		if err != nil {
			s.observe(endpoint, method, start, http.StatusBadRequest)
			http.Error(w, fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", params.Get("date")), http.StatusBadRequest)
			return
		}
		window = params.Get("date")
		run = func() error { return s.Syncer.SyncDay(r.Context(), day) }
	case params.Get("startDate") != "" || params.Get("endDate") != "":
		from, err1 := time.ParseInLocation(models.DateLayout, params.Get("startDate"), time.UTC)
		to, err2 := time.ParseInLocation(models.DateLayout, params.Get("endDate"), time.UTC)
		if err1 != nil || err2 != nil || to.Before(from) {
			s.observe(endpoint, method, start, http.StatusBadRequest)
			http.Error(w, "invalid range: startDate and endDate must be YYYY-MM-DD with startDate <= endDate", http.StatusBadRequest)
			return
		}
		window = params.Get("startDate") + " to " + params.Get("endDate")
		run = func() error { return s.Syncer.SyncRange(r.Context(), from, to) }
	default:
		window = "yesterday"
		run = func() error { return s.Syncer.SyncYesterday(r.Context()) }
	}

	s.Logger.Info("Manual sync triggered", zap.String("window", window))

	if err := run(); err != nil {
		if errors.Is(err, syncer.ErrSyncInProgress) {
			s.observe(endpoint, method, start, http.StatusConflict)
			http.Error(w, "sync already in progress for this window", http.StatusConflict)
			return
		}
		s.Logger.Error("manual sync failed", zap.Error(err))
		s.observe(endpoint, method, start, http.StatusInternalServerError)
		http.Error(w, fmt.Sprintf("Sync failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.observe(endpoint, method, start, http.StatusOK)
	writeJSON(w, syncResponse{
		Status:  "success",
		Message: fmt.Sprintf("Sync completed for %s.", window),
	})
}
