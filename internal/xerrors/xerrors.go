// Package xerrors defines the sentinel error values callers across the
// pipeline match against with errors.Is/errors.As, instead of matching on
// wrapped message text.
package xerrors

import "errors"

var (
	// ErrConnectionClosed wraps the read error the stream client logs when
	// a combined-stream connection fails outside of a planned reconnect.
	ErrConnectionClosed = errors.New("exchange: stream connection closed")

	// ErrRateLimitExhausted is returned by RateLimiter.TryAcquire when the
	// configured weight budget for the current window would be exceeded
	// (Acquire sleeps instead of returning it).
	ErrRateLimitExhausted = errors.New("exchange: rate limit budget exhausted")

	// ErrMalformedEnvelope is returned when a raw websocket/REST payload
	// does not match any recognised combined-stream or snapshot shape.
	ErrMalformedEnvelope = errors.New("decode: malformed envelope")

	// ErrUnknownMessageType classifies an envelope that is well-formed
	// but whose stream name matches neither @trade nor @depth. The stream
	// reader drops such frames without returning an error.
	ErrUnknownMessageType = errors.New("decode: unrecognised message type")

	// ErrStaleDiff classifies an order-book diff level whose ID2 falls at
	// or before the book's current snapshot watermark. Book.ApplyDiff
	// discards such levels without returning an error.
	ErrStaleDiff = errors.New("orderbook: diff level older than snapshot watermark")

	// ErrBookUninitialized classifies a Book that has never received a
	// bootstrapping snapshot. Book.ApplyDiff and Book.ApplyTrade do not
	// return it; they operate on the empty book.
	ErrBookUninitialized = errors.New("orderbook: book has no snapshot watermark")

	// ErrInsufficientLiquidity is returned by Book.BestTotalPriceErr when the
	// aggregate ask-side liquidity cannot fill the requested notional
	// quantity.
	ErrInsufficientLiquidity = errors.New("orderbook: insufficient ask liquidity")

	// ErrDegenerateEstimate is returned (informationally) when an Episode
	// has too few observations, or a degenerate covariance matrix, to
	// produce a non-sentinel confidence interval.
	ErrDegenerateEstimate = errors.New("model: degenerate confidence interval")

	// ErrSourceExhausted is returned by the replay player when the event
	// source is exhausted before ever delivering a bootstrapping
	// snapshot.
	ErrSourceExhausted = errors.New("player: source exhausted before any snapshot arrived")

	// ErrRecorderClosed is returned by Recorder.Write/Flush once Close has
	// been called.
	ErrRecorderClosed = errors.New("recorder: write after close")

	// ErrSchemaMismatch is returned by store.VerifyEngine when the
	// analytical store's existing table is not backed by the expected
	// MergeTree engine. EnsureSchema never returns it.
	ErrSchemaMismatch = errors.New("store: existing table schema does not match expected DDL")
)

// DecodeError carries the raw payload alongside a sentinel classification,
// so a caller can both errors.Is against ErrMalformedEnvelope/
// ErrUnknownMessageType and log the exact bytes that failed.
type DecodeError struct {
	Err     error
	Payload string
}

func (e *DecodeError) Error() string {
	return e.Err.Error() + ": " + truncate(e.Payload, 200)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
