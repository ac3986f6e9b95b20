// Package scanner implements the timer-driven wallet scan loop.
package scanner

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wallet-finder/internal/logging"
	"github.com/wallet-finder/internal/models"
	"github.com/wallet-finder/internal/types"
	"github.com/wallet-finder/internal/wallet"
)

// BalanceLookup resolves an address balance on one chain
type BalanceLookup interface {
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	FormatBalance(raw *big.Int) string
}

// HistoryWriter records applied ticks. Optional.
type HistoryWriter interface {
	Insert(ctx context.Context, rec *models.ScanRecord) error
}

// ResultCache stores the latest applied result per user. Optional.
type ResultCache interface {
	SetLastResult(ctx context.Context, userID int64, result *types.WalletResult) error
}

// Config describes one scan session
type Config struct {
	UserID int64
	Mode   types.ScanMode
	Chains []types.ChainID
	Speed  int // ticks per second
}

// Snapshot is the externally visible scanner state
type Snapshot struct {
	Running    bool                `json:"running"`
	Scanned    int64               `json:"scanned"`
	Speed      int                 `json:"speed"`
	Chains     []types.ChainID     `json:"selectedChains"`
	LastResult *types.WalletResult `json:"lastResult,omitempty"`
}

// Scanner runs one user's scan loop. Each Start bumps a generation
// counter; a tick whose lookup resolves after Stop (or after a newer
// Start) carries a stale generation and its result is discarded rather
// than applied.
type Scanner struct {
	adapters map[types.ChainID]BalanceLookup
	gen      wallet.Generator
	history  HistoryWriter
	cache    ResultCache
	logger   *logging.Logger

	mu         sync.Mutex
	running    bool
	generation uint64
	cancel     context.CancelFunc
	cfg        Config
	lastResult *types.WalletResult
	scanned    int64
}

// New creates a scanner. history and cache may be nil.
func New(adapters map[types.ChainID]BalanceLookup, gen wallet.Generator, history HistoryWriter, cache ResultCache, logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Scanner{
		adapters: adapters,
		gen:      gen,
		history:  history,
		cache:    cache,
		logger:   logger,
	}
}

// Start begins scanning with the given session config. Starting an
// already-running scanner restarts it with the new config.
func (s *Scanner) Start(cfg Config) error {
	if !types.ValidScanMode(cfg.Mode) {
		return fmt.Errorf("invalid scan mode: %s", cfg.Mode)
	}
	if cfg.Speed <= 0 {
		return fmt.Errorf("speed must be positive")
	}
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("at least one chain is required")
	}
	for _, chain := range cfg.Chains {
		if _, ok := s.adapters[chain]; !ok {
			return fmt.Errorf("no adapter for chain %s", chain)
		}
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true
	s.cfg = cfg
	s.lastResult = nil
	s.scanned = 0
	s.mu.Unlock()

	go s.run(ctx, gen, cfg)

	s.logger.WithFields(map[string]interface{}{
		"userId": cfg.UserID,
		"mode":   cfg.Mode,
		"speed":  cfg.Speed,
	}).Info("Scanner started")

	return nil
}

// Stop halts the loop. Any in-flight lookup completes against a stale
// generation and is discarded.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.logger.WithField("userId", s.cfg.UserID).Info("Scanner stopped")
}

// Status returns the current scanner state
func (s *Scanner) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Running:    s.running,
		Scanned:    s.scanned,
		Speed:      s.cfg.Speed,
		Chains:     s.cfg.Chains,
		LastResult: s.lastResult,
	}
}

// run is the loop body: pace with the limiter, then tick until cancelled
func (s *Scanner) run(ctx context.Context, gen uint64, cfg Config) {
	limiter := rate.NewLimiter(rate.Limit(cfg.Speed), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		s.tick(ctx, gen, cfg)
	}
}

// tick generates one credential, looks up its balance, and applies the
// result if the generation is still current. Lookup errors drop the tick.
func (s *Scanner) tick(ctx context.Context, gen uint64, cfg Config) {
	chain := cfg.Chains[rand.Intn(len(cfg.Chains))] // #nosec G404 - chain selection needs no crypto randomness

	cred, err := s.gen.Generate(cfg.Mode)
	if err != nil {
		s.logger.WithError(err).Debug("Credential generation failed, dropping tick")
		return
	}

	lookup := s.adapters[chain]
	lookupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	balance, err := lookup.NativeBalance(lookupCtx, cred.Address)
	cancel()
	if err != nil {
		s.logger.WithError(err).Debug("Balance lookup failed, dropping tick")
		return
	}

	result := &types.WalletResult{
		Address:    cred.Address,
		Seed:       cred.Seed,
		PrivateKey: cred.PrivateKey,
		Balance:    lookup.FormatBalance(balance),
		Chain:      chain,
		Timestamp:  time.Now(),
	}

	s.mu.Lock()
	if s.generation != gen || !s.running {
		s.mu.Unlock()
		return
	}
	s.lastResult = result
	s.scanned++
	s.mu.Unlock()

	s.record(cfg, result)
}

// record persists the applied tick to history and cache. Failures are
// logged and do not affect the loop.
func (s *Scanner) record(cfg Config, result *types.WalletResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.history != nil {
		rec := &models.ScanRecord{
			UserID:    cfg.UserID,
			Chain:     result.Chain,
			Address:   result.Address,
			Balance:   result.Balance,
			Mode:      cfg.Mode,
			ScannedAt: result.Timestamp,
		}
		if err := s.history.Insert(ctx, rec); err != nil {
			s.logger.WithError(err).Warn("Failed to persist scan record")
		}
	}

	if s.cache != nil {
		if err := s.cache.SetLastResult(ctx, cfg.UserID, result); err != nil {
			s.logger.WithError(err).Warn("Failed to cache scan result")
		}
	}
}
