package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/rollup"
)

// HeadlinesHandler handles GET /v1/analytics/headlines: day-over-day and
// week-over-week session comparisons, optionally filtered by utm_source.
func (s *Server) HeadlinesHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "headlines"
	const method = "GET"

	sources := r.URL.Query()["utmSource"]
	now := time.Now().In(s.Location)

	headlines, err := rollup.BuildHeadlines(r.Context(), s.Store, now, sources)
	if err != nil {
		s.Logger.Error("headlines query", zap.Error(err))
		s.observe(endpoint, method, start, http.StatusInternalServerError)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.observe(endpoint, method, start, http.StatusOK)
	writeJSON(w, headlines)
}
