package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
)

// ===== Page mappings (dashboard reference data) =====

func (s *Server) ListPageMappings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "page_mappings"

	mappings, err := s.Store.ListPageMappings(r.Context())
	if err != nil {
		s.Logger.Error("list page mappings", zap.Error(err))
		s.observe(endpoint, "GET", start, http.StatusInternalServerError)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.observe(endpoint, "GET", start, http.StatusOK)
	writeJSON(w, mappings)
}

func (s *Server) CreatePageMapping(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "page_mappings"

	var m models.PageMapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		s.observe(endpoint, "POST", start, http.StatusBadRequest)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.Store.InsertPageMapping(r.Context(), &m); err != nil {
		s.Logger.Error("insert page mapping", zap.Error(err))
		s.observe(endpoint, "POST", start, http.StatusInternalServerError)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.observe(endpoint, "POST", start, http.StatusCreated)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(m)
}

func (s *Server) DeletePageMapping(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "page_mappings"

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		s.observe(endpoint, "DELETE", start, http.StatusBadRequest)
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := s.Store.DeletePageMapping(r.Context(), id); err != nil {
		s.Logger.Error("delete page mapping", zap.Error(err))
		s.observe(endpoint, "DELETE", start, http.StatusInternalServerError)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.observe(endpoint, "DELETE", start, http.StatusOK)
	writeJSON(w, map[string]bool{"deleted": true})
}
