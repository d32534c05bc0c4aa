package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot sources.
const (
	SourceChain = "chain"
	SourceIndex = "index"
)

// Config holds all configuration for the indexer.
type Config struct {
	// Ledger
	RPCURLs      []string
	Creator      common.Address
	Scheme       common.Address
	GenesisBlock uint64
	SignerKey    string

	// Organization creation. AbsoluteVote is the voting machine new
	// organizations register with; zero disables creation.
	AbsoluteVote  common.Address
	VotePrecision uint64
	VoteOwnerVote bool

	// RPC rate limiting
	RPCRPS      int
	RPCBurst    int
	RPCTimeout  time.Duration
	RPCCacheTTL time.Duration

	// Description service
	DescriptionAPIURL string

	// SnapshotSource selects where snapshots replay events from.
	SnapshotSource string

	// PostgreSQL
	PostgresURL string

	// Redis
	RedisURL      string
	BlocksTopic   string
	ConsumerGroup string

	// WebSocket (newHeads subscription)
	WSEnabled        bool
	WSURL            string
	WSMaxRetries     int
	WSReconnectDelay time.Duration

	// Logging
	LogLevel string

	// Backfill
	BackfillCheckInterval time.Duration // Periodic gap check interval (0 = disabled)

	// HTTP API
	HTTPEnabled bool
	HTTPAddr    string
	AdminToken  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		RPCRPS:           20,
		RPCBurst:         40,
		RPCTimeout:       15 * time.Second,
		RPCCacheTTL:      5 * time.Minute,
		VotePrecision:    50,
		VoteOwnerVote:    true,
		SnapshotSource:   SourceChain,
		BlocksTopic:      "blocks-to-index",
		ConsumerGroup:    "indexer-workers",
		WSEnabled:        true,
		WSMaxRetries:     25,
		WSReconnectDelay: time.Second,
		LogLevel:         "info",
		HTTPEnabled:      true,
	}

	// Required
	for _, u := range strings.Split(os.Getenv("ETH_RPC_URLS"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			cfg.RPCURLs = append(cfg.RPCURLs, u)
		}
	}
	if len(cfg.RPCURLs) == 0 {
		return nil, fmt.Errorf("ETH_RPC_URLS is required")
	}

	var err error
	if cfg.Creator, err = requireAddress("DAO_CREATOR_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.Scheme, err = requireAddress("CONTRIBUTION_REWARD_ADDRESS"); err != nil {
		return nil, err
	}

	cfg.PostgresURL = os.Getenv("POSTGRES_URL")
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	// Optional overrides
	if v := os.Getenv("GENESIS_BLOCK"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GENESIS_BLOCK: %w", err)
		}
		cfg.GenesisBlock = n
	}

	cfg.SignerKey = os.Getenv("SIGNER_KEY")

	if v := os.Getenv("ABSOLUTE_VOTE_ADDRESS"); v != "" {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("ABSOLUTE_VOTE_ADDRESS is not a hex address: %q", v)
		}
		cfg.AbsoluteVote = common.HexToAddress(v)
	}
	if v := os.Getenv("VOTE_PRECISION"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 || n > 100 {
			return nil, fmt.Errorf("VOTE_PRECISION must be a percentage in 1..100, got %q", v)
		}
		cfg.VotePrecision = n
	}
	if v := os.Getenv("VOTE_OWNER_VOTE"); v != "" {
		cfg.VoteOwnerVote = v == "true" || v == "1"
	}
	cfg.DescriptionAPIURL = os.Getenv("DESCRIPTION_API_URL")

	if v := os.Getenv("SNAPSHOT_SOURCE"); v != "" {
		if v != SourceChain && v != SourceIndex {
			return nil, fmt.Errorf("SNAPSHOT_SOURCE must be %q or %q, got %q", SourceChain, SourceIndex, v)
		}
		cfg.SnapshotSource = v
	}

	if v := os.Getenv("RPC_RPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCRPS = n
		}
	}

	if v := os.Getenv("RPC_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCBurst = n
		}
	}

	if v := os.Getenv("RPC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RPCTimeout = d
		}
	}

	if v := os.Getenv("RPC_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RPCCacheTTL = d
		}
	}

	if v := os.Getenv("BLOCKS_TOPIC"); v != "" {
		cfg.BlocksTopic = v
	}

	if v := os.Getenv("CONSUMER_GROUP"); v != "" {
		cfg.ConsumerGroup = v
	}

	if v := os.Getenv("WS_ENABLED"); v != "" {
		cfg.WSEnabled = v == "true" || v == "1"
	}

	cfg.WSURL = os.Getenv("ETH_WS_URL")
	if cfg.WSURL == "" {
		cfg.WSURL = cfg.RPCURLs[0] // http(s) is rewritten to ws(s) by the listener
	}

	if v := os.Getenv("WS_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WSMaxRetries = n
		}
	}

	if v := os.Getenv("WS_RECONNECT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WSReconnectDelay = d
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("BACKFILL_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BackfillCheckInterval = d
		}
	}

	// HTTP API Configuration
	if v := os.Getenv("HTTP_ENABLED"); v != "" {
		cfg.HTTPEnabled = v == "true" || v == "1"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080" // Default port
	}

	// Protected routes sign transactions once a key is loaded, so the
	// development token is only allowed without one.
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if cfg.AdminToken == "" {
		if cfg.SignerKey != "" {
			return nil, fmt.Errorf("ADMIN_TOKEN is required when SIGNER_KEY is set")
		}
		cfg.AdminToken = "devtoken" // Default token for development
	}

	return cfg, nil
}

func requireAddress(key string) (common.Address, error) {
	v := os.Getenv(key)
	if v == "" {
		return common.Address{}, fmt.Errorf("%s is required", key)
	}
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s is not a hex address: %q", key, v)
	}
	return common.HexToAddress(v), nil
}
