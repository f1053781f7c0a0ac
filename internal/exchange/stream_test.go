package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestGroupSymbols(t *testing.T) {
	symbols := make([]string, 650)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d", i)
	}

	groups := GroupSymbols(symbols, 300)
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}
	if len(groups[0]) != 300 || len(groups[1]) != 300 || len(groups[2]) != 50 {
		t.Fatalf("group sizes = %d,%d,%d, want 300,300,50", len(groups[0]), len(groups[1]), len(groups[2]))
	}
}

func TestGroupSymbolsEmpty(t *testing.T) {
	if groups := GroupSymbols(nil, 300); len(groups) != 0 {
		t.Fatalf("len(groups) = %d, want 0", len(groups))
	}
}

func TestBuildStreamURL(t *testing.T) {
	got := BuildStreamURL("wss://stream.binance.com:9443", []string{"BTCUSDT", "ETHUSDT"})
	want := "wss://stream.binance.com:9443/stream?streams=btcusdt@trade/btcusdt@depth@100ms/ethusdt@trade/ethusdt@depth@100ms"
	if got != want {
		t.Fatalf("BuildStreamURL() = %q, want %q", got, want)
	}
}

// TestRunOverlapsConnectionsAcrossReconnect asserts that Run's reconnect
// handover is overlapping, not serial: a replacement connection opens
// while its predecessor is still draining, so at least two connections
// are simultaneously live during a reconnect.
func TestRunOverlapsConnectionsAcrossReconnect(t *testing.T) {
	var mu sync.Mutex
	var current, maxSimultaneous int
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		current++
		if current > maxSimultaneous {
			maxSimultaneous = current
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			current--
			mu.Unlock()
			c.Close()
		}()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn := NewStreamConn(url, 80*time.Millisecond, 120*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	out := make(chan RawEvent, 16)
	conn.Run(ctx, out)

	mu.Lock()
	got := maxSimultaneous
	mu.Unlock()
	if got < 2 {
		t.Fatalf("max simultaneous connections = %d, want >= 2 (reconnect handover did not overlap)", got)
	}
}
