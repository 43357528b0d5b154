package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type importResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

// LegacyImportHandler handles POST /v1/analytics/import/legacy: the one-time
// backfill from the legacy spreadsheet export. Safe to re-run; the upsert
// keys make it idempotent.
func (s *Server) LegacyImportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "import_legacy"
	const method = "POST"

	count, err := s.Importer.Run(r.Context())
	if err != nil {
		s.Logger.Error("legacy import failed", zap.Error(err))
		s.observe(endpoint, method, start, http.StatusInternalServerError)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.observe(endpoint, method, start, http.StatusOK)
	writeJSON(w, importResponse{Status: "success", Records: count})
}
