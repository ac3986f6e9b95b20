package adapter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/wallet-finder/internal/types"
)

// EVMAdapter implements ChainAdapter for Ethereum and EVM-compatible
// chains (eth, bnb, matic, avax)
type EVMAdapter struct {
	chainID  types.ChainID
	client   *ethclient.Client
	provider *RPCProvider
}

// NewEVMAdapter creates a new EVM chain adapter
func NewEVMAdapter(chainID types.ChainID, provider *RPCProvider) (*EVMAdapter, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	client, err := ethclient.Dial(provider.CurrentURL())
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s RPC: %w", chainID, err)
	}

	return &EVMAdapter{
		chainID:  chainID,
		client:   client,
		provider: provider,
	}, nil
}

// ChainID returns the chain this adapter serves
func (a *EVMAdapter) ChainID() types.ChainID {
	return a.chainID
}

// NativeBalance returns the address balance in wei at the latest block
func (a *EVMAdapter) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address: %s", address)
	}

	balance, err := a.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		a.provider.RecordFailure()
		return nil, fmt.Errorf("balance lookup failed on %s: %w", a.chainID, err)
	}

	a.provider.RecordSuccess()
	return balance, nil
}

// FormatBalance renders wei as an ether-denominated decimal string
func (a *EVMAdapter) FormatBalance(raw *big.Int) string {
	return formatUnits(raw, 18)
}

// Close releases the underlying RPC client
func (a *EVMAdapter) Close() {
	a.client.Close()
}
