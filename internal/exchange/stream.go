package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marketdata-pipeline/internal/logging"
	"marketdata-pipeline/internal/xerrors"
)

// RawEvent is an undecoded frame pulled off a combined-stream connection,
// tagged with which stream kind it came from so the ingest consumer can
// route it to the right decoder without re-inspecting the JSON.
type RawEvent struct {
	Kind RawKind
	Text string
}

// RawKind enumerates the stream kinds a combined-stream connection can
// deliver.
type RawKind int

const (
	RawTrade RawKind = iota
	RawDepth
)

// ConnState is one state of a stream connection's lifecycle.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// GroupSymbols partitions symbols into groups of at most maxPerGroup, the
// unit a single combined-stream connection subscribes to.
func GroupSymbols(symbols []string, maxPerGroup int) [][]string {
	if maxPerGroup <= 0 {
		maxPerGroup = 300
	}
	var groups [][]string
	for len(symbols) > 0 {
		n := maxPerGroup
		if n > len(symbols) {
			n = len(symbols)
		}
		groups = append(groups, symbols[:n])
		symbols = symbols[n:]
	}
	return groups
}

// BuildStreamURL constructs the combined-stream subscription URL for a
// group of symbols, contributing a @trade and a @depth@100ms stream name
// per symbol.
func BuildStreamURL(wsBaseURL string, symbols []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(wsBaseURL, "/"))
	b.WriteString("/stream?streams=")
	for i, sym := range symbols {
		lower := strings.ToLower(sym)
		if i > 0 {
			b.WriteByte('/')
		}
		fmt.Fprintf(&b, "%s@trade/%s@depth@100ms", lower, lower)
	}
	return b.String()
}

// StreamConn manages one combined-stream WebSocket connection's lifetime,
// reconnecting every Lifetime while holding the outgoing connection open
// an extra Grace so the replacement connection's early frames overlap
// with the old connection's last ones.
type StreamConn struct {
	URL      string
	Lifetime time.Duration
	Grace    time.Duration

	dial func(url string) (*websocket.Conn, error)
	log  *logging.Logger
}

// NewStreamConn builds a StreamConn for url with the given lifecycle
// parameters.
func NewStreamConn(url string, lifetime, grace time.Duration) *StreamConn {
	return &StreamConn{
		URL:      url,
		Lifetime: lifetime,
		Grace:    grace,
		dial: func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		},
		log: logging.Default().WithComponent("stream"),
	}
}

// Run drives an overlapping reconnect loop until ctx is cancelled, pushing
// raw, classified frames onto out. A fresh connection is spawned every Lifetime;
// each connection reads independently until its own Lifetime+Grace
// deadline, so a departing connection and its replacement are both Open
// and delivering frames during the handover window and no update is lost
// across a reconnect.
func (s *StreamConn) Run(ctx context.Context, out chan<- RawEvent) {
	var wg sync.WaitGroup
	defer wg.Wait()

	spawn := func() {
		conn := s.dialWithRetry(ctx)
		if conn == nil {
			return
		}
		s.log.WithField("state", StateOpen.String()).Info("connection open")
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runConnection(ctx, conn, out)
		}()
	}

	spawn()

	ticker := time.NewTicker(s.Lifetime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			spawn()
		}
	}
}

// dialWithRetry dials s.URL, retrying every 5s until it succeeds or ctx is
// cancelled, in which case it returns nil.
func (s *StreamConn) dialWithRetry(ctx context.Context) *websocket.Conn {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		s.log.WithField("state", StateConnecting.String()).Debug("dialing")
		conn, err := s.dial(s.URL)
		if err == nil {
			return conn
		}
		s.log.WithError(err).Warn("dial failed, retrying")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}

// runConnection reads frames from conn, classifying and forwarding them,
// until the wall clock crosses Lifetime+Grace since it opened or ctx is
// cancelled. Each StreamConn.Run spawn runs one of these concurrently with
// its predecessor during the overlap window.
func (s *StreamConn) runConnection(ctx context.Context, conn *websocket.Conn, out chan<- RawEvent) {
	defer conn.Close()

	start := time.Now()
	deadline := s.Lifetime + s.Grace

	conn.SetPingHandler(func(data string) error {
		return conn.WriteMessage(websocket.PongMessage, []byte(data))
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(done)
	}()

	for {
		if time.Since(start) >= deadline {
			s.log.WithField("state", StateClosing.String()).Info("connection lifetime elapsed, closing")
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				s.log.WithError(fmt.Errorf("%w: %v", xerrors.ErrConnectionClosed, err)).Warn("read error, closing connection")
			}
			return
		}

		text := string(message)
		switch {
		case strings.Contains(text, "@trade"):
			select {
			case out <- RawEvent{Kind: RawTrade, Text: text}:
			case <-ctx.Done():
				return
			}
		case strings.Contains(text, "@depth"):
			select {
			case out <- RawEvent{Kind: RawDepth, Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}
}
