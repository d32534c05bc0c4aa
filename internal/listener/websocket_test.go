package listener

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notification(sub string, height uint64) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":%q,"result":{"number":"0x%x","hash":"0x00"}}}`, sub, height)
}

func headsServer(t *testing.T, messages ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "eth_subscribe" {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"result":"0xabc"}`))
		for _, m := range messages {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(m))
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListenerReceivesHeads(t *testing.T) {
	srv := headsServer(t,
		notification("0xabc", 100),
		"not json",
		notification("0xother", 5),
		notification("0xabc", 101),
	)

	heights := make(chan uint64, 4)
	l := New(Config{URL: srv.URL, ReconnectDelay: 10 * time.Millisecond}, func(h uint64) {
		heights <- h
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var got []uint64
	for len(got) < 2 {
		select {
		case h := <-heights:
			got = append(got, h)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for heads")
		}
	}
	assert.Equal(t, []uint64{100, 101}, got)

	stats := l.Stats()
	assert.Equal(t, uint64(101), stats.LastHeight)
	assert.Equal(t, uint64(2), stats.MessageCount)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
	assert.False(t, l.Stats().Connected)
}

func TestBuildURL(t *testing.T) {
	for in, want := range map[string]string{
		"http://127.0.0.1:8546":       "ws://127.0.0.1:8546",
		"https://node.example.com/ws": "wss://node.example.com/ws",
		"wss://node.example.com/v3?k": "wss://node.example.com/v3?k",
	} {
		got, err := New(Config{URL: in}, nil).buildURL()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseHead(t *testing.T) {
	h, ok, err := parseHead([]byte(notification("0x1", 0x1b4)), "0x1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(436), h)

	_, ok, err = parseHead([]byte(`{"jsonrpc":"2.0","id":3,"result":true}`), "0x1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = parseHead([]byte(strings.Repeat("{", 3)), "0x1")
	require.Error(t, err)
}
