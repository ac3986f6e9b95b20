package adapter

import (
	"fmt"
	"sync"
	"time"
)

// RPCProvider tracks a primary and optional secondary RPC endpoint with
// simple health accounting and failover.
type RPCProvider struct {
	mu sync.RWMutex

	primaryURL   string
	secondaryURL string
	currentURL   string

	totalRequests    int64
	failedReqs       int64
	consecutiveFails int
	lastFailure      time.Time

	maxConsecutiveFails int
}

// NewRPCProvider creates a new RPC provider with primary and optional
// secondary URLs
func NewRPCProvider(primaryURL, secondaryURL string) (*RPCProvider, error) {
	if primaryURL == "" {
		return nil, fmt.Errorf("primary URL cannot be empty")
	}

	return &RPCProvider{
		primaryURL:          primaryURL,
		secondaryURL:        secondaryURL,
		currentURL:          primaryURL,
		maxConsecutiveFails: 5,
	}, nil
}

// CurrentURL returns the currently active RPC endpoint URL
func (p *RPCProvider) CurrentURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentURL
}

// RecordSuccess records a successful request
func (p *RPCProvider) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalRequests++
	p.consecutiveFails = 0
}

// RecordFailure records a failed request and fails over to the secondary
// endpoint once the consecutive-failure threshold is crossed
func (p *RPCProvider) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalRequests++
	p.failedReqs++
	p.consecutiveFails++
	p.lastFailure = time.Now()

	if p.consecutiveFails >= p.maxConsecutiveFails {
		p.failover()
	}
}

// failover switches between primary and secondary. Caller holds the lock.
func (p *RPCProvider) failover() {
	if p.secondaryURL == "" {
		return
	}
	if p.currentURL == p.primaryURL {
		p.currentURL = p.secondaryURL
	} else {
		p.currentURL = p.primaryURL
	}
	p.consecutiveFails = 0
}

// IsHealthy reports whether the provider is below the failure threshold
func (p *RPCProvider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.consecutiveFails < p.maxConsecutiveFails
}

// Reset returns the provider to the primary endpoint
func (p *RPCProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentURL = p.primaryURL
	p.consecutiveFails = 0
}
