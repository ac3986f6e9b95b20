// Package types provides common type definitions for the wallet finder system.
package types

import "time"

// Plan represents a named service tier
type Plan string

const (
	// PlanBasic is the free entry tier
	PlanBasic Plan = "basic"
	// PlanPro is the first paid tier
	PlanPro Plan = "pro"
	// PlanAdvanced is the professional tier
	PlanAdvanced Plan = "advanced"
	// PlanPremium is the top tier with all chains enabled
	PlanPremium Plan = "premium"
)

// ValidPlan reports whether p is one of the known plan names
func ValidPlan(p Plan) bool {
	switch p {
	case PlanBasic, PlanPro, PlanAdvanced, PlanPremium:
		return true
	}
	return false
}

// ChainID represents supported blockchain networks
type ChainID string

const (
	// ChainETH represents the Ethereum mainnet
	ChainETH ChainID = "eth"
	// ChainBNB represents the BNB Chain (BSC)
	ChainBNB ChainID = "bnb"
	// ChainMATIC represents the Polygon network
	ChainMATIC ChainID = "matic"
	// ChainAVAX represents the Avalanche C-Chain
	ChainAVAX ChainID = "avax"
	// ChainSOL represents the Solana mainnet
	ChainSOL ChainID = "sol"
)

// AllChains lists every chain the scanner knows about
var AllChains = []ChainID{ChainETH, ChainBNB, ChainMATIC, ChainAVAX, ChainSOL}

// ValidChain reports whether c is a supported chain
func ValidChain(c ChainID) bool {
	for _, known := range AllChains {
		if c == known {
			return true
		}
	}
	return false
}

// ScanMode selects what kind of credential the scanner generates
type ScanMode string

const (
	// ModeSeed generates a BIP-39 mnemonic and derives the first address
	ModeSeed ScanMode = "seed"
	// ModePrivateKey generates a raw secp256k1 private key
	ModePrivateKey ScanMode = "privkey"
)

// ValidScanMode reports whether m is a known scan mode
func ValidScanMode(m ScanMode) bool {
	return m == ModeSeed || m == ModePrivateKey
}

// WalletResult is a single scanner hit: one generated credential and its balance
type WalletResult struct {
	Address    string    `json:"address"`
	Seed       string    `json:"seed,omitempty"`
	PrivateKey string    `json:"privateKey,omitempty"`
	Balance    string    `json:"balance"`
	Chain      ChainID   `json:"blockchain"`
	Timestamp  time.Time `json:"timestamp"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
