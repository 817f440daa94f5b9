package internal

import (
	"encoding/json"
	"errors"
	"net/http"

	"era-vendors-api/internal/auth"
	"era-vendors-api/internal/models"
	"era-vendors-api/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// actor is the display name recorded in vendor history for this request.
func actor(r *http.Request) string {
	return auth.Actor(auth.ContextUser{Ctx: r.Context()}, models.DefaultActor)
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.Logger.Error("vendor store", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// LIST with optional name filter and sort, never paginated
func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	vendors, err := s.Vendors.List(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	vendors = filterVendors(vendors, params.q)
	sortVendors(vendors, params.sort)

	sendListResponse(w, vendors, len(vendors))
}

func (s *Server) getVendor(w http.ResponseWriter, r *http.Request) {
	v, err := s.Vendors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) getVendorHistory(w http.ResponseWriter, r *http.Request) {
	v, err := s.Vendors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	history := v.History
	if history == nil {
		history = []models.HistoryEntry{}
	}
	sendListResponse(w, history, len(history))
}

// createVendor stores the payload as sent. Fields missing from the JSON keep the new vendor defaults.
func (s *Server) createVendor(w http.ResponseWriter, r *http.Request) {
	in := models.NewVendorFields()
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	v, err := s.Vendors.Create(r.Context(), in, actor(r))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("create", 1)
	writeJSON(w, http.StatusCreated, v)
}

// updateVendor replaces the editable fields. Fields missing from the JSON keep their current values.
func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	current, err := s.Vendors.Get(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	in := current.VendorFields
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	v, err := s.Vendors.Update(r.Context(), models.Vendor{ID: id, VendorFields: in}, actor(r))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("update", 1)
	writeJSON(w, http.StatusOK, v)
}

// bulkDeleteVendors removes every listed id in one store call. Unknown ids are ignored.
func (s *Server) bulkDeleteVendors(w http.ResponseWriter, r *http.Request) {
	var in models.BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	n, err := s.Vendors.Delete(r.Context(), in.IDs)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("delete", n)
	writeJSON(w, http.StatusOK, models.BulkDeleteResponse{Deleted: n})
}

// deleteVendor is a single-id bulk delete. Deleting an absent vendor still succeeds.
func (s *Server) deleteVendor(w http.ResponseWriter, r *http.Request) {
	n, err := s.Vendors.Delete(r.Context(), []string{chi.URLParam(r, "id")})
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("delete", n)
	w.WriteHeader(http.StatusNoContent)
}
