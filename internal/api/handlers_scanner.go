package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/wallet-finder/internal/plans"
	"github.com/wallet-finder/internal/scanner"
	"github.com/wallet-finder/internal/storage"
	"github.com/wallet-finder/internal/types"
)

type scannerStartRequest struct {
	UserID *int64          `json:"userId"`
	Mode   types.ScanMode  `json:"mode"`
	Chains []types.ChainID `json:"chains,omitempty"`
}

// handleScannerStart begins (or restarts) the user's scan loop. Speed,
// chain set, and private-key capability come from the user's plan, never
// from the request.
func (s *Server) handleScannerStart(w http.ResponseWriter, r *http.Request) {
	var req scannerStartRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.UserID == nil {
		respondMessage(w, http.StatusBadRequest, "Missing user ID", nil)
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = types.ModeSeed
	}
	if !types.ValidScanMode(mode) {
		respondMessage(w, http.StatusBadRequest, "Invalid scan mode", nil)
		return
	}

	user, err := s.users.GetByID(r.Context(), *req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found", nil)
			return
		}
		s.logger.WithError(err).Error("Failed to load user")
		respondMessage(w, http.StatusInternalServerError, "Failed to load user", nil)
		return
	}
	if user.Banned {
		respondMessage(w, http.StatusForbidden, "Forbidden", nil)
		return
	}

	features, ok := plans.ByName(user.Plan)
	if !ok {
		s.logger.WithField("plan", user.Plan).Error("User has unknown plan")
		respondMessage(w, http.StatusInternalServerError, "Failed to resolve plan", nil)
		return
	}
	if mode == types.ModePrivateKey && !features.PrivateKeyScanner {
		respondMessage(w, http.StatusForbidden, "Your plan does not include the private key scanner", nil)
		return
	}

	chains := req.Chains
	if len(chains) == 0 {
		chains = features.Chains
	}
	for _, chain := range chains {
		if !types.ValidChain(chain) {
			respondMessage(w, http.StatusBadRequest, "Invalid blockchain", nil)
			return
		}
		if !features.Allows(chain) {
			respondMessage(w, http.StatusForbidden, "Your plan does not include this blockchain", nil)
			return
		}
	}

	speed := features.Speed
	if s.config.MaxScanSpeed > 0 && speed > s.config.MaxScanSpeed {
		speed = s.config.MaxScanSpeed
	}

	if err := s.scanners.Start(scanner.Config{
		UserID: user.ID,
		Mode:   mode,
		Chains: chains,
		Speed:  speed,
	}); err != nil {
		s.logger.WithError(err).Error("Failed to start scanner")
		respondMessage(w, http.StatusInternalServerError, "Failed to start scanner", nil)
		return
	}

	respondJSON(w, http.StatusOK, s.scanners.Status(user.ID))
}

type scannerStopRequest struct {
	UserID *int64 `json:"userId"`
}

// handleScannerStop halts the user's scan loop
func (s *Server) handleScannerStop(w http.ResponseWriter, r *http.Request) {
	var req scannerStopRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.UserID == nil {
		respondMessage(w, http.StatusBadRequest, "Missing user ID", nil)
		return
	}

	s.scanners.Stop(*req.UserID)
	respondJSON(w, http.StatusOK, s.scanners.Status(*req.UserID))
}

// handleScannerStatus reports the current scan loop state. When the
// in-memory snapshot has no result (fresh process, user reconnecting after
// a restart) the cached last result fills it in.
func (s *Server) handleScannerStatus(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		respondMessage(w, http.StatusBadRequest, "Missing user ID", nil)
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid user ID", nil)
		return
	}

	status := s.scanners.Status(userID)
	if status.LastResult == nil && s.cache != nil {
		cached, err := s.cache.GetLastResult(r.Context(), userID)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to read cached scan result")
		} else {
			status.LastResult = cached
		}
	}

	respondJSON(w, http.StatusOK, status)
}
