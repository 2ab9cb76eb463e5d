package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/benefit-optimizer/internal/schemas"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// StatusRequest is the body of PATCH /bundles/{id}/status
type StatusRequest struct {
	Status types.BundleStatus `json:"status"`
}

// handleCreateBundle assembles and stores a new bundle
func (s *Server) handleCreateBundle(w http.ResponseWriter, r *http.Request) {
	var req types.BundleRequest
	if err := decodeRequest(r, schemas.BundleRequest, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	bundle, err := s.bundles.Create(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, bundle)
}

// handleListBundles lists stored bundles with limit and offset query parameters
func (s *Server) handleListBundles(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.bundles.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, list)
}

// handleGetBundle returns one stored bundle
func (s *Server) handleGetBundle(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.bundles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, bundle)
}

// handleUpdateBundle re-optimizes a stored bundle from a new request
func (s *Server) handleUpdateBundle(w http.ResponseWriter, r *http.Request) {
	var req types.BundleRequest
	if err := decodeRequest(r, schemas.BundleRequest, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	bundle, err := s.bundles.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, bundle)
}

// handleUpdateBundleStatus changes a bundle's lifecycle status
func (s *Server) handleUpdateBundleStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeRequest(r, schemas.StatusRequest, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	bundle, err := s.bundles.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, bundle)
}

// handleDeleteBundle removes a stored bundle
func (s *Server) handleDeleteBundle(w http.ResponseWriter, r *http.Request) {
	if err := s.bundles.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCompareBundles compares two or more stored bundles
func (s *Server) handleCompareBundles(w http.ResponseWriter, r *http.Request) {
	var req types.CompareRequest
	if err := decodeRequest(r, schemas.CompareRequest, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	comparison, err := s.bundles.Compare(r.Context(), req.BundleIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, comparison)
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ErrValidation{Field: name, Message: "must be an integer"}
	}
	return v, nil
}
