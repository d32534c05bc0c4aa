package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
)

// Config configures the WebSocket listener.
type Config struct {
	URL            string        // Node WebSocket URL (e.g., "wss://node.example.com/ws")
	MaxRetries     int           // Max reconnection attempts (default: 25)
	ReconnectDelay time.Duration // Base delay between reconnects (default: 1s)
}

// BlockHandler is called when a new block is received.
type BlockHandler func(height uint64)

// Listener subscribes to an EVM node's newHeads feed over WebSocket.
type Listener struct {
	config     Config
	onNewBlock BlockHandler
	conn       *websocket.Conn
	mu         sync.RWMutex

	// Stats (protected by mu)
	connectedAt   time.Time
	messageCount  uint64
	lastMessageAt time.Time
	lastHeight    uint64
}

// New creates a new WebSocket listener.
func New(config Config, onNewBlock BlockHandler) *Listener {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 25
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = time.Second
	}
	return &Listener{
		config:     config,
		onNewBlock: onNewBlock,
	}
}

// Run starts the listener. It blocks until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	wsURL, err := l.buildURL()
	if err != nil {
		return fmt.Errorf("build websocket url: %w", err)
	}

	for attempt := 0; attempt < l.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		slog.Info("connecting to node",
			"attempt", attempt+1,
			"max_retries", l.config.MaxRetries,
			"url", wsURL,
		)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			l.mu.Lock()
			l.conn = conn
			l.connectedAt = time.Now()
			l.messageCount = 0
			l.mu.Unlock()

			slog.Info("websocket connected", "url", wsURL)

			err = l.listen(ctx, conn)
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				_ = l.Close()
				return ctx.Err()
			}

			l.mu.Lock()
			uptime := time.Since(l.connectedAt)
			msgCount := l.messageCount
			if l.conn != nil {
				_ = l.conn.Close()
				l.conn = nil
			}
			l.mu.Unlock()

			slog.Warn("websocket disconnected",
				"err", err,
				"uptime", uptime.Round(time.Second),
				"messages_received", msgCount,
			)

			// Reset attempt counter on successful connection
			attempt = 0
			continue
		}

		slog.Warn("failed to connect to node",
			"attempt", attempt+1,
			"err", err,
		)

		// Linear backoff
		delay := time.Duration(attempt+1) * l.config.ReconnectDelay
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retries (%d) reached", l.config.MaxRetries)
}

// buildURL normalizes the configured URL to a ws or wss URL.
func (l *Listener) buildURL() (string, error) {
	parsed, err := url.Parse(l.config.URL)
	if err != nil {
		return "", err
	}

	host := parsed.Host
	path := parsed.Path
	if host == "" {
		host, path = parsed.Path, ""
	}
	if host == "" {
		return "", fmt.Errorf("missing host in %q", l.config.URL)
	}

	wsScheme := "ws"
	if parsed.Scheme == "https" || parsed.Scheme == "wss" {
		wsScheme = "wss"
	}

	wsURL := url.URL{
		Scheme:   wsScheme,
		Host:     host,
		Path:     path,
		RawQuery: parsed.RawQuery,
	}
	return wsURL.String(), nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcMessage struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type head struct {
	Number hexutil.Uint64 `json:"number"`
}

// subscribe sends eth_subscribe newHeads and waits for the subscription id.
func subscribe(conn *websocket.Conn) (string, error) {
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: "eth_subscribe", Params: []any{"newHeads"}}
	if err := conn.WriteJSON(req); err != nil {
		return "", fmt.Errorf("write subscribe: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("read subscribe response: %w", err)
		}
		var msg rpcMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return "", fmt.Errorf("decode subscribe response: %w", err)
		}
		if msg.ID == nil || *msg.ID != req.ID {
			continue
		}
		if msg.Error != nil {
			return "", fmt.Errorf("eth_subscribe: %s (code %d)", msg.Error.Message, msg.Error.Code)
		}
		var id string
		if err := json.Unmarshal(msg.Result, &id); err != nil {
			return "", fmt.Errorf("decode subscription id: %w", err)
		}
		return id, nil
	}
}

// parseHead extracts the block height from a newHeads notification.
// ok is false for messages that are not notifications of subscription.
func parseHead(data []byte, subscription string) (height uint64, ok bool, err error) {
	var msg rpcMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return 0, false, err
	}
	if msg.Method != "eth_subscription" || msg.Params.Subscription != subscription {
		return 0, false, nil
	}
	var h head
	if err := json.Unmarshal(msg.Params.Result, &h); err != nil {
		return 0, false, err
	}
	return uint64(h.Number), true, nil
}

// listen subscribes and reads notifications from the WebSocket connection.
func (l *Listener) listen(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	subscription, err := subscribe(conn)
	if err != nil {
		return err
	}
	slog.Info("subscribed to new heads", "subscription", subscription)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}

		height, ok, err := parseHead(data, subscription)
		if err != nil {
			slog.Warn("websocket unmarshal failed",
				"err", err,
				"data_len", len(data),
			)
			continue
		}
		if !ok {
			continue
		}

		// Update stats
		l.mu.Lock()
		l.messageCount++
		l.lastMessageAt = time.Now()
		l.lastHeight = height
		msgNum := l.messageCount
		l.mu.Unlock()

		slog.Debug("websocket block received",
			"height", height,
			"msg_num", msgNum,
		)

		l.onNewBlock(height)
	}
}

// Close gracefully closes the WebSocket connection.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		err := l.conn.Close()
		l.conn = nil
		return err
	}
	return nil
}

// Stats holds listener connection statistics.
type Stats struct {
	Connected    bool          `json:"connected"`
	Uptime       time.Duration `json:"uptime"`
	MessageCount uint64        `json:"message_count"`
	LastMessage  time.Time     `json:"last_message"`
	LastHeight   uint64        `json:"last_height"`
}

// Stats returns current connection statistics.
func (l *Listener) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Stats{
		Connected:    l.conn != nil,
		MessageCount: l.messageCount,
		LastMessage:  l.lastMessageAt,
		LastHeight:   l.lastHeight,
	}
	if s.Connected {
		s.Uptime = time.Since(l.connectedAt)
	}
	return s
}
