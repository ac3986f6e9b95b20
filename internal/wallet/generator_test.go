package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/wallet-finder/internal/types"
)

func TestGenerateSeedWallet(t *testing.T) {
	g := NewRandomGenerator()

	cred, err := g.Generate(types.ModeSeed)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(cred.Address, "0x"))
	assert.Len(t, cred.Address, 42)
	assert.Empty(t, cred.PrivateKey)

	words := strings.Fields(cred.Seed)
	assert.Len(t, words, 12)
	assert.True(t, bip39.IsMnemonicValid(cred.Seed))
}

func TestGeneratePrivateKeyWallet(t *testing.T) {
	g := NewRandomGenerator()

	cred, err := g.Generate(types.ModePrivateKey)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(cred.Address, "0x"))
	assert.Len(t, cred.Address, 42)
	assert.Empty(t, cred.Seed)

	assert.True(t, strings.HasPrefix(cred.PrivateKey, "0x"))
	assert.Len(t, cred.PrivateKey, 66)
}

func TestGenerateUnknownMode(t *testing.T) {
	g := NewRandomGenerator()

	_, err := g.Generate("telepathy")
	assert.Error(t, err)
}

func TestGenerateProducesDistinctCredentials(t *testing.T) {
	g := NewRandomGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		cred, err := g.Generate(types.ModeSeed)
		require.NoError(t, err)
		assert.False(t, seen[cred.Address], "duplicate address generated")
		seen[cred.Address] = true
	}
}
