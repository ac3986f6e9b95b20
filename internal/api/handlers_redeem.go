package api

import (
	"errors"
	"net/http"

	"github.com/wallet-finder/internal/storage"
)

// redeemRequest accepts either token field: redeemKey consumes a coin code,
// key consumes a plan-granting key.
type redeemRequest struct {
	RedeemKey string `json:"redeemKey,omitempty"`
	Key       string `json:"key,omitempty"`
	UserID    *int64 `json:"userId"`
}

// handleRedeem consumes a single-use token for the user. Both token systems
// share the guarantee that N concurrent attempts on the same token yield
// exactly one success; every loser sees the same 404.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.UserID == nil || (req.RedeemKey == "" && req.Key == "") {
		respondMessage(w, http.StatusBadRequest, "Missing redeem key or user ID", nil)
		return
	}

	if req.RedeemKey != "" {
		s.redeemCoins(w, r, req.RedeemKey, *req.UserID)
		return
	}
	s.redeemPlanKey(w, r, req.Key, *req.UserID)
}

// redeemCoins consumes a coin code and credits the user
func (s *Server) redeemCoins(w http.ResponseWriter, r *http.Request, token string, userID int64) {
	coins, err := s.redeemKeys.Redeem(r.Context(), token, userID)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotRedeemable) {
			respondMessage(w, http.StatusNotFound, "Invalid or already used redeem key", nil)
			return
		}
		if errors.Is(err, storage.ErrUserNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found", nil)
			return
		}
		s.logger.WithError(err).Error("Redeem failed")
		respondMessage(w, http.StatusInternalServerError, "Failed to redeem key", nil)
		return
	}

	respondMessage(w, http.StatusOK, "Redeem successful", map[string]interface{}{
		"coins": coins,
	})
}

// redeemPlanKey consumes a plan-granting key and assigns its plan
func (s *Server) redeemPlanKey(w http.ResponseWriter, r *http.Request, token string, userID int64) {
	plan, err := s.keys.Redeem(r.Context(), token, userID)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotRedeemable) {
			respondMessage(w, http.StatusNotFound, "Invalid, expired, or already used key", nil)
			return
		}
		if errors.Is(err, storage.ErrUserNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found", nil)
			return
		}
		s.logger.WithError(err).Error("Key redemption failed")
		respondMessage(w, http.StatusInternalServerError, "Failed to redeem key", nil)
		return
	}

	respondMessage(w, http.StatusOK, "Redeem successful", map[string]interface{}{
		"plan": plan,
	})
}
