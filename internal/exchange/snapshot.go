package exchange

import (
	"context"
	"time"

	"marketdata-pipeline/internal/logging"
)

// SnapshotPayload is one REST depth snapshot tagged with the symbol it
// was fetched for, so downstream decoding doesn't need to re-derive it
// from the envelope.
type SnapshotPayload struct {
	Symbol string
	Body   string
}

// SnapshotLoop polls a full order-book snapshot for each of symbols in
// turn, forever, pacing itself against limiter so the per-minute weight
// budget is never exceeded. After a full pass over symbols it sleeps the
// remainder of an hour before starting again.
type SnapshotLoop struct {
	Client  *Client
	Limiter *RateLimiter
	Symbols []string

	// PassInterval is how long one full pass over Symbols should take at
	// minimum; the loop sleeps out the remainder after each pass.
	PassInterval time.Duration

	log *logging.Logger
}

// NewSnapshotLoop builds a SnapshotLoop.
func NewSnapshotLoop(client *Client, limiter *RateLimiter, symbols []string, passInterval time.Duration) *SnapshotLoop {
	return &SnapshotLoop{
		Client:       client,
		Limiter:      limiter,
		Symbols:      symbols,
		PassInterval: passInterval,
		log:          logging.Default().WithComponent("snapshot"),
	}
}

// Run fetches a snapshot for every configured symbol, pushing each onto
// out, until ctx is cancelled.
func (l *SnapshotLoop) Run(ctx context.Context, out chan<- SnapshotPayload) {
	for {
		passStart := time.Now()
		for _, symbol := range l.Symbols {
			select {
			case <-ctx.Done():
				return
			default:
			}

			l.Limiter.Acquire(DepthSnapshotWeight)

			body, err := l.Client.GetDepthSnapshot(symbol)
			if err != nil {
				l.log.WithError(err).WithField("symbol", symbol).Warn("snapshot fetch failed")
				continue
			}

			select {
			case out <- SnapshotPayload{Symbol: symbol, Body: body}:
			case <-ctx.Done():
				return
			}
		}

		elapsed := time.Since(passStart)
		if remaining := l.PassInterval - elapsed; remaining > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(remaining):
			}
		}
	}
}
