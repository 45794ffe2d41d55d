package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// echoSubscribeServer confirms every accountSubscribe with subID and then
// sends one notification carrying data.
func echoSubscribeServer(t *testing.T, subID int64, data []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Method != "accountSubscribe" {
				continue
			}

			conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  subID,
			})

			conn.WriteJSON(wsEnvelope{
				JSONRPC: "2.0",
				Method:  "accountNotification",
				Params: &wsNotificationParams{
					Subscription: subID,
					Result: wsNotificationResult{
						Context: rpcContext{Slot: 100},
						Value: &accountValue{
							Lamports: 1134480,
							Owner:    "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s",
							Data:     []string{base64.StdEncoding.EncodeToString(data), "base64"},
						},
					},
				},
			})
		}
	}))
}

func TestWSClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()
}

func TestWSClient_ConnectRefused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := NewWSClient(ctx, "ws://127.0.0.1:1", nil); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestWSClient_SubscribeAccount(t *testing.T) {
	payload := []byte{10, 1, 2, 3}
	server := echoSubscribeServer(t, 12345, payload)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeAccount(ctx, "escrowaddr")
	if err != nil {
		t.Fatalf("SubscribeAccount: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Slot != 100 {
			t.Errorf("expected slot 100, got %d", notif.Slot)
		}
		if notif.Account == nil {
			t.Fatal("expected account in notification")
		}
		if notif.Account.Lamports != 1134480 {
			t.Errorf("expected lamports 1134480, got %d", notif.Account.Lamports)
		}
		if string(notif.Account.Data) != string(payload) {
			t.Errorf("unexpected data %v", notif.Account.Data)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_SubscribeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error": map[string]interface{}{
					"code":    -32602,
					"message": "Invalid param: Invalid",
				},
			})
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	_, err = client.SubscribeAccount(ctx, "bad")
	if err == nil {
		t.Fatal("expected subscribe error")
	}
	if !strings.Contains(err.Error(), "-32602") {
		t.Errorf("expected error code in message, got %v", err)
	}
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	config := DefaultWSConfig()
	config.SubscribeTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), &config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if _, err := client.SubscribeAccount(ctx, "silent"); err == nil {
		t.Fatal("expected subscription timeout")
	}
}

func TestWSClient_Close(t *testing.T) {
	server := echoSubscribeServer(t, 7, nil)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	ch, err := client.SubscribeAccount(ctx, "escrowaddr")
	if err != nil {
		t.Fatalf("SubscribeAccount: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Double close is a no-op.
	if err := client.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	// Drain until the channel is closed.
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("subscription channel not closed")
		}
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	server := echoSubscribeServer(t, 1, nil)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	client.Close()

	_, err = client.SubscribeAccount(ctx, "escrowaddr")
	if !errors.Is(err, ErrClientClosed) {
		t.Errorf("expected ErrClientClosed, got %v", err)
	}
}

func TestWSClient_CustomConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	config := &WSClientConfig{
		ReconnectDelay:    500 * time.Millisecond,
		MaxReconnectDelay: 10 * time.Second,
		PingInterval:      5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.config.ReconnectDelay != 500*time.Millisecond {
		t.Errorf("expected ReconnectDelay 500ms, got %v", client.config.ReconnectDelay)
	}
	if client.config.SubscribeTimeout != DefaultWSConfig().SubscribeTimeout {
		t.Errorf("expected default SubscribeTimeout, got %v", client.config.SubscribeTimeout)
	}
}

func TestWSClient_HandleMessage_IgnoresUnknown(t *testing.T) {
	c := &WSClientImpl{
		subs:        make(map[int64]chan AccountNotification),
		pendingSubs: make(map[uint64]*pendingSub),
		done:        make(chan struct{}),
		logger:      log.New(io.Discard, "", 0),
	}

	msg, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      99,
		"result":  true,
	})
	c.handleMessage(msg)
	c.handleMessage([]byte("not json"))

	ch := make(chan AccountNotification, 1)
	c.subs[5] = ch
	note, _ := json.Marshal(wsEnvelope{
		JSONRPC: "2.0",
		Method:  "accountNotification",
		Params: &wsNotificationParams{
			Subscription: 5,
			Result:       wsNotificationResult{Context: rpcContext{Slot: 9}},
		},
	})
	c.handleMessage(note)

	select {
	case n := <-ch:
		if n.Slot != 9 || n.Account != nil {
			t.Errorf("unexpected notification %+v", n)
		}
	default:
		t.Fatal("expected closed-account notification")
	}
}
