package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/rollup"
)

// UTMMetricsHandler handles GET /v1/analytics/utm/metrics: rollup queries
// against the materialized store. Each UTM filter parameter may repeat; a
// repeated filter becomes a set-membership predicate.
func (s *Server) UTMMetricsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "utm_metrics"
	const method = "GET"

	params := r.URL.Query()
	if params.Get("rollup") == "" || params.Get("startDate") == "" || params.Get("endDate") == "" {
		s.observe(endpoint, method, start, http.StatusBadRequest)
		http.Error(w, "Missing required parameters: rollup, startDate, endDate", http.StatusBadRequest)
		return
	}

	filters := rollup.Filters{
		UTMSource:   params["utmSource"],
		UTMMedium:   params["utmMedium"],
		UTMCampaign: params["utmCampaign"],
	}

	q, err := rollup.NewQuery(params.Get("rollup"), params.Get("startDate"), params.Get("endDate"), filters)
	if err != nil {
		s.observe(endpoint, method, start, http.StatusBadRequest)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if q.Granularity == rollup.Daily {
		rows, err := s.Store.SelectDailyMetrics(r.Context(), q)
		if err != nil {
			s.Logger.Error("daily metrics query", zap.Error(err))
			s.observe(endpoint, method, start, http.StatusInternalServerError)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.observe(endpoint, method, start, http.StatusOK)
		writeJSON(w, rows)
		return
	}

	rows, err := s.Store.SelectBucketedMetrics(r.Context(), q)
	if err != nil {
		s.Logger.Error("bucketed metrics query", zap.Error(err))
		s.observe(endpoint, method, start, http.StatusInternalServerError)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.observe(endpoint, method, start, http.StatusOK)
	writeJSON(w, rows)
}
