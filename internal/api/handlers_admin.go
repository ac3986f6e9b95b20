package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wallet-finder/internal/storage"
	"github.com/wallet-finder/internal/types"
)

// adminRequest is the action envelope for the /api/admin dispatcher
type adminRequest struct {
	Action    string     `json:"action"`
	UserID    *int64     `json:"userId,omitempty"`
	PlanID    types.Plan `json:"planId,omitempty"`
	Key       string     `json:"key,omitempty"`
	Coins     *int64     `json:"coins,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// handleAdminAction dispatches the admin panel's action envelope
func (s *Server) handleAdminAction(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	switch req.Action {
	case "create-key":
		s.adminCreateKey(w, r, req)
	case "create-redeem-key":
		s.adminCreateRedeemKey(w, r, req)
	case "delete-key":
		s.adminDeleteKey(w, r, req)
	case "ban-user":
		s.adminSetBanned(w, r, req, true)
	case "unban-user":
		s.adminSetBanned(w, r, req, false)
	case "assign-plan":
		s.adminAssignPlan(w, r, req)
	case "show-keys":
		s.adminShowKeys(w, r)
	default:
		respondMessage(w, http.StatusBadRequest, "Invalid action", nil)
	}
}

// adminCreateKey issues a plan-granting key. When the token is omitted a
// random one is generated.
func (s *Server) adminCreateKey(w http.ResponseWriter, r *http.Request, req adminRequest) {
	if req.ExpiresAt == nil {
		respondMessage(w, http.StatusBadRequest, "Missing expiration date", nil)
		return
	}

	plan := req.PlanID
	if plan == "" {
		plan = types.PlanPro
	}
	if !types.ValidPlan(plan) {
		respondMessage(w, http.StatusBadRequest, "Invalid plan", nil)
		return
	}

	token := req.Key
	if token == "" {
		token = uuid.NewString()
	}

	key, err := s.keys.Create(r.Context(), token, plan, *req.ExpiresAt)
	if err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			respondMessage(w, http.StatusConflict, "Key already exists", nil)
			return
		}
		s.logger.WithError(err).Error("Failed to create key")
		respondMessage(w, http.StatusInternalServerError, "Failed to create key", nil)
		return
	}

	s.invalidateKeyList(r)
	respondMessage(w, http.StatusOK, "Key created successfully!", map[string]interface{}{
		"key": key.Token,
	})
}

// adminCreateRedeemKey issues a coin-granting redeem code
func (s *Server) adminCreateRedeemKey(w http.ResponseWriter, r *http.Request, req adminRequest) {
	if req.Coins == nil || *req.Coins <= 0 {
		respondMessage(w, http.StatusBadRequest, "Missing or invalid coin amount", nil)
		return
	}

	token := req.Key
	if token == "" {
		token = uuid.NewString()
	}

	rk, err := s.redeemKeys.Create(r.Context(), token, *req.Coins)
	if err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			respondMessage(w, http.StatusConflict, "Key already exists", nil)
			return
		}
		s.logger.WithError(err).Error("Failed to create redeem key")
		respondMessage(w, http.StatusInternalServerError, "Failed to create redeem key", nil)
		return
	}

	respondMessage(w, http.StatusOK, "Redeem key created successfully!", map[string]interface{}{
		"key":   rk.Token,
		"coins": rk.Coins,
	})
}

// adminDeleteKey removes a key; deleting an absent key still reports success
func (s *Server) adminDeleteKey(w http.ResponseWriter, r *http.Request, req adminRequest) {
	if req.Key == "" {
		respondMessage(w, http.StatusBadRequest, "Missing key", nil)
		return
	}

	if err := s.keys.Delete(r.Context(), req.Key); err != nil {
		s.logger.WithError(err).Error("Failed to delete key")
		respondMessage(w, http.StatusInternalServerError, "Failed to delete key", nil)
		return
	}

	s.invalidateKeyList(r)
	respondMessage(w, http.StatusOK, "Key deleted successfully!", nil)
}

// adminSetBanned flips a user's banned flag
func (s *Server) adminSetBanned(w http.ResponseWriter, r *http.Request, req adminRequest, banned bool) {
	if req.UserID == nil {
		respondMessage(w, http.StatusBadRequest, "Missing user ID", nil)
		return
	}

	if err := s.users.SetBanned(r.Context(), *req.UserID, banned); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found", nil)
			return
		}
		s.logger.WithError(err).Error("Failed to update ban state")
		respondMessage(w, http.StatusInternalServerError, "Failed to update user", nil)
		return
	}

	if banned {
		s.scanners.Stop(*req.UserID)
		respondMessage(w, http.StatusOK, "User banned successfully!", nil)
		return
	}
	respondMessage(w, http.StatusOK, "User unbanned successfully!", nil)
}

// adminAssignPlan sets a user's plan directly
func (s *Server) adminAssignPlan(w http.ResponseWriter, r *http.Request, req adminRequest) {
	if req.UserID == nil || req.PlanID == "" {
		respondMessage(w, http.StatusBadRequest, "Missing user ID or plan", nil)
		return
	}
	if !types.ValidPlan(req.PlanID) {
		respondMessage(w, http.StatusBadRequest, "Invalid plan", nil)
		return
	}

	if err := s.users.SetPlan(r.Context(), *req.UserID, req.PlanID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found", nil)
			return
		}
		s.logger.WithError(err).Error("Failed to assign plan")
		respondMessage(w, http.StatusInternalServerError, "Failed to assign plan", nil)
		return
	}

	respondMessage(w, http.StatusOK, "Plan assigned successfully!", nil)
}

// adminShowKeys returns the joined key listing inside the action envelope
func (s *Server) adminShowKeys(w http.ResponseWriter, r *http.Request) {
	list, err := s.loadKeyList(r)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list keys")
		respondMessage(w, http.StatusInternalServerError, "Failed to list keys", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"keys": list})
}
