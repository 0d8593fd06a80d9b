package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

func TestClientReplaysSubscriptionAndDeliversMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	subCh := make(chan map[string]any, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept ws: %v", err)
			return
		}
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err == nil {
			subCh <- msg
		}
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"e":"kline"}`))
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := New(wsURL, 10*time.Millisecond, 0, zap.NewNop())
	sub := map[string]any{"method": "SUBSCRIBE", "params": []string{"ethusdt@kline_15m"}, "id": 1}
	if err := client.Subscribe(ctx, sub); err != nil {
		t.Fatalf("subscribe before connect: %v", err)
	}

	var received atomic.Int32
	gotMsg := make(chan struct{}, 1)
	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	go func() {
		_ = client.Run(runCtx, func(msg json.RawMessage) {
			if received.Add(1) == 1 {
				gotMsg <- struct{}{}
			}
		})
	}()

	select {
	case msg := <-subCh:
		if msg["method"] != "SUBSCRIBE" {
			t.Fatalf("expected subscription replay, got %v", msg)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for subscription")
	}
	select {
	case <-gotMsg:
	case <-ctx.Done():
		t.Fatalf("timed out waiting for handler")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	client := New("ws://127.0.0.1:1", 10*time.Millisecond, 0, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := client.Run(ctx, nil)
	if err == nil {
		t.Fatalf("expected context error")
	}
}
