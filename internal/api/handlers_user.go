package api

import (
	"errors"
	"net/http"

	"github.com/wallet-finder/internal/plans"
	"github.com/wallet-finder/internal/storage"
	"github.com/wallet-finder/internal/types"
)

type upsertUserRequest struct {
	ID       *int64 `json:"id"`
	Username string `json:"username"`
}

// handleUpsertUser registers the user on first contact and refreshes the
// stored username on every later call. The Telegram ID is the primary key.
func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.ID == nil || *req.ID <= 0 {
		respondMessage(w, http.StatusBadRequest, "Missing or invalid user ID", nil)
		return
	}

	user, err := s.users.Upsert(r.Context(), *req.ID, req.Username)
	if err != nil {
		s.logger.WithError(err).Error("Failed to upsert user")
		respondMessage(w, http.StatusInternalServerError, "Failed to save user", nil)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleListPlans returns the static plan catalog
func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, plans.Catalog())
}

type purchasePlanRequest struct {
	UserID *int64     `json:"userId"`
	PlanID types.Plan `json:"planId"`
}

// handlePurchasePlan buys a plan upgrade with in-app coins. The deduction
// and plan change are one conditional update in the store, so the balance
// can never go negative under concurrent purchases.
func (s *Server) handlePurchasePlan(w http.ResponseWriter, r *http.Request) {
	var req purchasePlanRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.UserID == nil || req.PlanID == "" {
		respondMessage(w, http.StatusBadRequest, "Missing user ID or plan", nil)
		return
	}

	features, ok := plans.ByName(req.PlanID)
	if !ok {
		respondMessage(w, http.StatusBadRequest, "Invalid plan", nil)
		return
	}

	remaining, err := s.users.PurchasePlan(r.Context(), *req.UserID, features.Name, features.CoinCost)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientCoins) {
			respondMessage(w, http.StatusBadRequest, "Insufficient coins", nil)
			return
		}
		if errors.Is(err, storage.ErrUserNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found", nil)
			return
		}
		s.logger.WithError(err).Error("Plan purchase failed")
		respondMessage(w, http.StatusInternalServerError, "Failed to purchase plan", nil)
		return
	}

	respondMessage(w, http.StatusOK, "Plan purchased successfully!", map[string]interface{}{
		"plan":  features.Name,
		"coins": remaining,
	})
}
