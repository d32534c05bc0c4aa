package rpc

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// Client is a JSON-RPC client over one or more EVM endpoints with failover,
// a per-endpoint circuit breaker and a shared token-bucket rate limit.
type Client struct {
	endpoints []string
	clients   map[string]*ethclient.Client
	timeout   time.Duration

	limiter *rate.Limiter

	// circuit-breaker
	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration

	// transaction signing
	signer         *ecdsa.PrivateKey
	gasLimit       uint64
	createGasLimit uint64
	txTimeout      time.Duration

	// voting machine addresses keyed by "org:scheme". Entries expire because the
	// controller may re-register a scheme with new parameters.
	cacheMu  sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL time.Duration
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// Opts is the set of options for a new Client.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	CacheTTL        time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration

	// SignerKey is a hex-encoded secp256k1 private key. Empty disables transactions.
	SignerKey string
	GasLimit  uint64
	TxTimeout time.Duration

	// CreateGasLimit covers forgeOrg, which deploys the organization contracts.
	CreateGasLimit uint64
}

// NewWithOpts creates a new Client with the given options.
func NewWithOpts(o Opts) (*Client, error) {
	if o.RPS <= 0 {
		o.RPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 40
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}
	if o.GasLimit == 0 {
		o.GasLimit = 4_000_000
	}
	if o.CreateGasLimit == 0 {
		o.CreateGasLimit = 8_000_000
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = 2 * time.Minute
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 5 * time.Minute
	}

	endpoints := dedup(o.Endpoints)
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}

	c := &Client{
		endpoints:        endpoints,
		clients:          make(map[string]*ethclient.Client, len(endpoints)),
		timeout:          o.Timeout,
		limiter:          rate.NewLimiter(rate.Limit(o.RPS), o.Burst),
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
		gasLimit:         o.GasLimit,
		createGasLimit:   o.CreateGasLimit,
		txTimeout:        o.TxTimeout,
		cache:            make(map[string]cacheEntry),
		cacheTTL:         o.CacheTTL,
	}

	if o.SignerKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(o.SignerKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse signer key: %w", err)
		}
		c.signer = key
	}

	for _, ep := range endpoints {
		ec, err := ethclient.Dial(ep)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("dial %s: %w", ep, err)
		}
		c.clients[ep] = ec
	}

	return c, nil
}

// Close releases all endpoint connections.
func (c *Client) Close() {
	for _, ec := range c.clients {
		ec.Close()
	}
}

func dedup(ss []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(ss))
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		result = append(result, s)
	}
	return result
}

// getCache returns cached data if available and not expired.
func getCache[T any](c *Client, key string) (T, bool) {
	var zero T
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	if e, ok := c.cache[key]; ok && time.Now().Before(e.expires) {
		if typed, ok := e.value.(T); ok {
			slog.Debug("rpc cache hit", "key", key)
			return typed, true
		}
	}
	return zero, false
}

// setCache stores data in the cache for cacheTTL.
func setCache[T any](c *Client, key string, data T) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{value: data, expires: time.Now().Add(c.cacheTTL)}
}

func (c *Client) isOpen(ep string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, ep)
		c.failures[ep] = 0
		return false
	}
	return true
}

func (c *Client) noteFailure(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep]++
	if c.failures[ep] >= c.breakerThreshold {
		c.opened[ep] = time.Now().Add(c.breakerCooldown)
	}
}

func (c *Client) noteSuccess(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep] = 0
}

// do runs fn against each healthy endpoint in turn until one succeeds.
// Reverts are returned immediately since another endpoint would revert too.
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context, ec *ethclient.Client) error) error {
	var lastErr error
	for _, ep := range c.endpoints {
		if c.isOpen(ep) {
			continue
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := fn(callCtx, c.clients[ep])
		cancel()

		if err == nil {
			c.noteSuccess(ep)
			return nil
		}
		if isRevert(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		slog.Debug("rpc endpoint failed", "op", op, "endpoint", ep, "err", err)
		lastErr = err
		c.noteFailure(ep)
	}

	if lastErr == nil {
		lastErr = errors.New("all endpoints unavailable")
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

// primary returns the first endpoint whose breaker is closed.
func (c *Client) primary() (string, *ethclient.Client, error) {
	for _, ep := range c.endpoints {
		if !c.isOpen(ep) {
			return ep, c.clients[ep], nil
		}
	}
	return "", nil, errors.New("all endpoints unavailable")
}

func isRevert(err error) bool {
	return strings.Contains(err.Error(), "execution reverted")
}
