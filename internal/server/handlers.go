package server

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mitchellmoss/appraisal-generator/internal/httpx"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// Error codes carried in httpx.ErrorBody.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeStore        = "STORE_ERROR"
)

const (
	msgValidation = "Missing required appraisal data"
	msgNotFound   = "Appraisal not found"
)

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(APIKeyHeader)
		if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) != 1 {
			httpx.WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid or missing API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec types.AppraisalRecord
	if err := httpx.ReadJSON(w, r, &rec); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeValidation, msgValidation, err.Error())
		return
	}
	res, err := s.store.Create(r.Context(), rec)
	if err != nil {
		s.writeStoreError(w, r, "create", err)
		return
	}
	s.logger.Info("appraisal created", "id", res.ID)
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "list", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, "get", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var rec types.AppraisalRecord
	if err := httpx.ReadJSON(w, r, &rec); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeValidation, msgValidation, err.Error())
		return
	}
	res, err := s.store.Update(r.Context(), id, rec)
	if err != nil {
		s.writeStoreError(w, r, "update", err)
		return
	}
	s.logger.Info("appraisal updated", "id", res.ID)
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, "delete", err)
		return
	}
	s.logger.Info("appraisal deleted", "id", res.ID)
	httpx.WriteJSON(w, http.StatusOK, res)
}

// writeStoreError maps record store errors to HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, CodeValidation, msgValidation, err.Error())
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrInvalidID):
		httpx.WriteError(w, http.StatusNotFound, CodeNotFound, msgNotFound, nil)
	default:
		s.logger.Error("record store failure", "op", op, "path", r.URL.Path, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, CodeStore, "Failed to "+op+" appraisal", nil)
	}
}
