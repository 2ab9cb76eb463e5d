package server

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/benefit-optimizer/internal/advisor"
	"github.com/jonathan/benefit-optimizer/internal/db"
	"github.com/jonathan/benefit-optimizer/internal/schemas"
	"github.com/jonathan/benefit-optimizer/internal/selection"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// handleOptimize recommends the best plan for one requester
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req types.OptimizeRequest
	if err := decodeRequest(r, schemas.OptimizeRequest, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, invalidProfile(err))
		return
	}

	rec, err := s.advisor.Recommend(r.Context(), req.EmployeeProfile, req.StateCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleOptimizeBatch recommends plans for several requesters. Each item reports its own status.
func (s *Server) handleOptimizeBatch(w http.ResponseWriter, r *http.Request) {
	var req types.BatchOptimizeRequest
	if err := decodeRequest(r, schemas.BatchOptimizeRequest, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcomes := make([]types.BatchOutcome, len(req.Requests))
	var pending []advisor.RecommendRequest
	var pendingIdx []int
	for i := range req.Requests {
		item := &req.Requests[i]
		outcomes[i].Index = i
		if err := item.Validate(); err != nil {
			perr := invalidProfile(err)
			outcomes[i].Status = HTTPStatus(perr)
			outcomes[i].Error = perr.Error()
			continue
		}
		pending = append(pending, advisor.RecommendRequest{Profile: item.EmployeeProfile, StateCode: item.StateCode})
		pendingIdx = append(pendingIdx, i)
	}

	for j, outcome := range s.advisor.RecommendMany(r.Context(), pending) {
		i := pendingIdx[j]
		if outcome.Err != nil {
			outcomes[i].Status = HTTPStatus(outcome.Err)
			outcomes[i].Error = errorMessage(outcome.Err, outcomes[i].Status)
			if outcomes[i].Status >= http.StatusInternalServerError {
				s.logger.Error("batch item failed", zap.Int("index", i), zap.Error(outcome.Err))
			}
			continue
		}
		outcomes[i].Status = http.StatusOK
		outcomes[i].Recommendation = outcome.Recommendation
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"results": outcomes})
}

// handleListPlans lists catalog plans in a state, optionally filtered by network tier and premium
func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	filter := db.PlanFilter{StateCode: strings.ToUpper(r.PathValue("state_code"))}

	if raw := r.URL.Query().Get("network_tier"); raw != "" {
		tier, err := types.ParseNetworkTier(raw)
		if err != nil {
			s.writeError(w, r, &ErrValidation{Field: "network_tier", Message: err.Error()})
			return
		}
		filter.NetworkTier = tier
	}
	if raw := r.URL.Query().Get("max_premium"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			s.writeError(w, r, &ErrValidation{Field: "max_premium", Message: "must be a non-negative number"})
			return
		}
		filter.MaxPremium = &v
	}

	plans, err := s.plans.SearchPlans(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []types.PlanFeature{}
	}
	s.jsonResponse(w, http.StatusOK, plans)
}

// invalidProfile classifies a request validation failure the way the engine does
func invalidProfile(err error) error {
	return &selection.Error{Kind: selection.KindInvalidProfile, Field: types.InvalidField(err), Message: "invalid profile", Cause: err}
}

func errorMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
