package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/biblio/internal/models"
	"github.com/hyperjump/biblio/internal/query"
	"github.com/hyperjump/biblio/internal/storage"
	"go.uber.org/zap"
)

// handleSearch accepts the query either as ?q=&column=&ids= or as a JSON body.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q models.SearchQuery
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		params := r.URL.Query()
		q = models.SearchQuery{Query: params.Get("q"), Column: params.Get("column"), IDs: params.Get("ids")}
	}
	s.logger.Debug("search request", zap.String("query", q.Query), zap.String("column", q.Column), zap.String("ids", q.IDs))
	response, err := s.engine.Search(r.Context(), &q)
	if err != nil {
		if errors.Is(err, query.ErrUnknownColumn) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	pages, err := s.storage.ListPages(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if pages == nil {
		pages = []*models.Page{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"document_id": id, "pages": pages})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("ingest request")
	report, err := s.indexer.Run(r.Context())
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := storage.CollectStatus(r.Context(), s.storage, s.config.Storage.DatabasePath, s.config.Storage.Driver)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"corpus": st,
		"config": map[string]interface{}{
			"roots":      s.config.Corpus.Roots,
			"extensions": s.config.Corpus.Extensions,
			"delimiter":  s.config.Corpus.Delimiter,
		},
	})
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.logger.Error("store lookup failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
