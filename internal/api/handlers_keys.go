package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/wallet-finder/internal/models"
	"github.com/wallet-finder/internal/storage"
	"github.com/wallet-finder/internal/types"
)

type createKeyAndBanRequest struct {
	UserID    *int64     `json:"userId"`
	Key       string     `json:"key"`
	Plan      types.Plan `json:"planId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// handleCreateKeyAndBan creates a key and bans the user in one transaction.
// A failure of either write rolls back both.
func (s *Server) handleCreateKeyAndBan(w http.ResponseWriter, r *http.Request) {
	var req createKeyAndBanRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.UserID == nil || req.Key == "" || req.ExpiresAt == nil {
		respondMessage(w, http.StatusBadRequest, "Missing user ID, key, or expiration date", nil)
		return
	}

	plan := req.Plan
	if plan == "" {
		plan = types.PlanPro
	}
	if !types.ValidPlan(plan) {
		respondMessage(w, http.StatusBadRequest, "Invalid plan", nil)
		return
	}

	key, err := s.keys.CreateAndBan(r.Context(), req.Key, plan, *req.ExpiresAt, *req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			respondMessage(w, http.StatusConflict, "Key already exists", nil)
			return
		}
		if errors.Is(err, storage.ErrUserNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found", nil)
			return
		}
		s.logger.WithError(err).Error("Create-key-and-ban failed")
		respondMessage(w, http.StatusInternalServerError, "Failed to create key and ban user", nil)
		return
	}

	s.scanners.Stop(*req.UserID)
	s.invalidateKeyList(r)
	respondMessage(w, http.StatusOK, "Key created and user banned successfully!", map[string]interface{}{
		"key": key.Token,
	})
}

type removeKeyAndBanRequest struct {
	UserID *int64 `json:"userId"`
	Key    string `json:"key"`
}

// handleRemoveKeyAndBan removes a key and bans the user in one transaction
func (s *Server) handleRemoveKeyAndBan(w http.ResponseWriter, r *http.Request) {
	var req removeKeyAndBanRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.UserID == nil || req.Key == "" {
		respondMessage(w, http.StatusBadRequest, "Missing user ID or key", nil)
		return
	}

	if err := s.keys.DeleteAndBan(r.Context(), req.Key, *req.UserID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found", nil)
			return
		}
		s.logger.WithError(err).Error("Remove-key-and-ban failed")
		respondMessage(w, http.StatusInternalServerError, "Failed to remove key and ban user", nil)
		return
	}

	s.scanners.Stop(*req.UserID)
	s.invalidateKeyList(r)
	respondMessage(w, http.StatusOK, "Key removed and user banned successfully!", nil)
}

// handleListKeys returns every key joined to its user. An empty table is a
// 404, matching the admin panel's expectation.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	list, err := s.loadKeyList(r)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list keys")
		respondMessage(w, http.StatusInternalServerError, "Failed to list keys", nil)
		return
	}
	if len(list) == 0 {
		respondMessage(w, http.StatusNotFound, "No keys found", nil)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// loadKeyList reads the key listing through the cache when one is wired
func (s *Server) loadKeyList(r *http.Request) ([]*models.KeyWithUser, error) {
	ctx := r.Context()

	if s.cache != nil {
		if cached, err := s.cache.GetKeyList(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	list, err := s.keys.ListWithUsers(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(list) > 0 {
		if err := s.cache.SetKeyList(ctx, list); err != nil {
			s.logger.WithError(err).Warn("Failed to cache key list")
		}
	}

	return list, nil
}

// invalidateKeyList drops the cached listing after any key mutation
func (s *Server) invalidateKeyList(r *http.Request) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateKeyList(r.Context()); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate key list cache")
	}
}
