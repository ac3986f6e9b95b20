package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/wallet-finder/internal/types"
)

// SolanaAdapter implements ChainAdapter for Solana over plain JSON-RPC.
// Solana has no ethclient equivalent here, so the getBalance call is made
// directly against the HTTP endpoint.
type SolanaAdapter struct {
	provider *RPCProvider
	client   *http.Client
}

// NewSolanaAdapter creates a new Solana adapter
func NewSolanaAdapter(provider *RPCProvider) (*SolanaAdapter, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &SolanaAdapter{
		provider: provider,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// ChainID returns the chain this adapter serves
func (a *SolanaAdapter) ChainID() types.ChainID {
	return types.ChainSOL
}

type solanaRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type solanaRPCResponse struct {
	Result struct {
		Value uint64 `json:"value"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NativeBalance returns the address balance in lamports
func (a *SolanaAdapter) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	reqBody, err := json.Marshal(solanaRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getBalance",
		Params:  []interface{}{address},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal getBalance request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.provider.CurrentURL(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build getBalance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.provider.RecordFailure()
		return nil, fmt.Errorf("balance lookup failed on sol: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.provider.RecordFailure()
		return nil, fmt.Errorf("solana RPC returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		a.provider.RecordFailure()
		return nil, fmt.Errorf("failed to read solana RPC response: %w", err)
	}

	var rpcResp solanaRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		a.provider.RecordFailure()
		return nil, fmt.Errorf("failed to decode solana RPC response: %w", err)
	}
	if rpcResp.Error != nil {
		a.provider.RecordFailure()
		return nil, fmt.Errorf("solana RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	a.provider.RecordSuccess()
	return new(big.Int).SetUint64(rpcResp.Result.Value), nil
}

// FormatBalance renders lamports as a SOL-denominated decimal string
func (a *SolanaAdapter) FormatBalance(raw *big.Int) string {
	return formatUnits(raw, 9)
}
