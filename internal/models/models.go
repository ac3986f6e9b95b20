// Package models provides data models for the wallet finder system.
package models

import (
	"time"

	"github.com/wallet-finder/internal/types"
)

// User represents a mini-app user. Users are created implicitly on first
// interaction and are never hard-deleted; admin actions only flip flags.
type User struct {
	ID        int64      `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Plan      types.Plan `json:"plan" db:"plan"`
	Banned    bool       `json:"banned" db:"banned"`
	Coins     int64      `json:"coins" db:"coins"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// Key is an administrator-issued token that grants a plan. A key is
// single-use and expires; once used or past expires_at it can never be
// redeemed again.
type Key struct {
	ID        int64      `json:"id" db:"id"`
	Token     string     `json:"key" db:"key"`
	Plan      types.Plan `json:"plan" db:"plan"`
	ExpiresAt time.Time  `json:"expiresAt" db:"expires_at"`
	Used      bool       `json:"used" db:"used"`
	UserID    *int64     `json:"userId,omitempty" db:"user_id"`
}

// RedeemKey is a single-use code that grants a coin reward. It is a
// separate system from Key and has no expiration.
type RedeemKey struct {
	ID    int64  `json:"id" db:"id"`
	Token string `json:"key" db:"key"`
	Coins int64  `json:"coins" db:"coins"`
	Used  bool   `json:"used" db:"used"`
}

// KeyWithUser is one row of the admin key listing: a key left-joined to its
// associated user. User fields are nil when the key is unassigned.
type KeyWithUser struct {
	KeyID     int64     `json:"keyId"`
	Token     string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    *int64    `json:"userId"`
	Username  *string   `json:"username"`
	Banned    *bool     `json:"banned"`
}

// ScanRecord is one applied scanner tick, persisted for the history view
type ScanRecord struct {
	UserID    int64          `json:"userId"`
	Chain     types.ChainID  `json:"blockchain"`
	Address   string         `json:"address"`
	Balance   string         `json:"balance"`
	Mode      types.ScanMode `json:"mode"`
	ScannedAt time.Time      `json:"scannedAt"`
}
