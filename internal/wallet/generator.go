// Package wallet generates random wallet credentials. Key material comes
// from real cryptography libraries; nothing here is hand-rolled.
package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tarancss/hd"
	"github.com/tyler-smith/go-bip39"
	"github.com/wallet-finder/internal/types"
)

// Credential is one randomly generated wallet: an address plus the secret
// that controls it (mnemonic or raw private key, depending on the mode)
type Credential struct {
	Address    string
	Seed       string
	PrivateKey string
}

// Generator produces random credentials for a scan mode
type Generator interface {
	Generate(mode types.ScanMode) (*Credential, error)
}

// RandomGenerator is the production Generator
type RandomGenerator struct{}

// NewRandomGenerator creates a new credential generator
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// Generate produces one random credential for the given mode
func (g *RandomGenerator) Generate(mode types.ScanMode) (*Credential, error) {
	switch mode {
	case types.ModeSeed:
		return generateSeedWallet()
	case types.ModePrivateKey:
		return generatePrivateKeyWallet()
	default:
		return nil, fmt.Errorf("unknown scan mode: %s", mode)
	}
}

// generateSeedWallet creates a 12-word BIP-39 mnemonic and derives the
// first external address of account 0
func generateSeedWallet() (*Credential, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}

	hdw, err := hd.Init(bip39.NewSeed(mnemonic, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to init HD wallet: %w", err)
	}

	addr, _, _, err := hdw.Address(0, hd.External, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to derive address: %w", err)
	}

	return &Credential{
		Address: "0x" + hex.EncodeToString(addr),
		Seed:    mnemonic,
	}, nil
}

// generatePrivateKeyWallet creates a raw secp256k1 key pair
func generatePrivateKeyWallet() (*Credential, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	return &Credential{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
	}, nil
}
