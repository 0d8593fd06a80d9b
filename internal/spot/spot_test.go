package spot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"gmx-rsi-bot/internal/config"
)

func newClient(url string) *Client {
	return New(config.SpotConfig{
		BaseURL:    url,
		CoinID:     "ethereum",
		VsCurrency: "usd",
		Timeout:    time.Second,
	}, zap.NewNop())
}

func TestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("ids") != "ethereum" || r.URL.Query().Get("vs_currencies") != "usd" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ethereum":{"usd":2543.21}}`))
	}))
	defer srv.Close()

	price, ok := newClient(srv.URL).Price(context.Background())
	if !ok || price != 2543.21 {
		t.Fatalf("expected 2543.21, got %v (ok=%v)", price, ok)
	}
}

func TestPriceHTTPErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, ok := newClient(srv.URL).Price(context.Background()); ok {
		t.Fatalf("expected unavailable on 429")
	}
}

func TestPriceMissingKeyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}))
	defer srv.Close()

	if _, ok := newClient(srv.URL).Price(context.Background()); ok {
		t.Fatalf("expected unavailable when coin missing")
	}
}

func TestPriceTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, ok := newClient(url).Price(context.Background()); ok {
		t.Fatalf("expected unavailable when server is down")
	}
}
