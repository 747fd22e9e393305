package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/loanocr/internal/extract"
	"github.com/sells-group/loanocr/internal/model"
)

type extractRequest struct {
	ApplicationID string    `json:"application_id"`
	DocumentType  string    `json:"document_type"`
	Pages         *[]string `json:"pages"`
	Trigger       string    `json:"trigger"`
	ExtractedAt   time.Time `json:"extracted_at,omitempty"`
}

type extractResponse struct {
	Run     *model.Run     `json:"run"`
	Results []model.Result `json:"results"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Fields)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// A missing pages array is a structural fault; an empty one is a
	// valid document with nothing on it.
	if req.Pages == nil {
		writeError(w, http.StatusBadRequest, "pages is required")
		return
	}

	trigger := model.Trigger(req.Trigger)
	if req.Trigger == "" {
		trigger = model.TriggerUpload
	}

	run, results, err := s.extractor.Run(r.Context(), extract.Input{
		ApplicationID: req.ApplicationID,
		DocumentID:    documentID,
		DocumentType:  req.DocumentType,
		Pages:         *req.Pages,
		Trigger:       trigger,
		ExtractedAt:   req.ExtractedAt,
	})
	if err != nil {
		zap.L().Error("extraction failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		if eris.Is(err, extract.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "store unavailable")
		}
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{Run: run, Results: results})
}

func (s *Server) handleDocumentResults(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	results, err := s.store.ResultsForDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if results == nil {
		results = []model.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleDocumentRuns(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	runs, err := s.store.RunsForDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleApplicationResults(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationID")
	results, err := s.store.ResultsForApplication(r.Context(), applicationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if results == nil {
		results = []model.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationID")
	results, err := s.store.ResultsForApplication(r.Context(), applicationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.comparator.Compare(results))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
