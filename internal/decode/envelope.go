// Package decode turns raw exchange payloads (combined-stream WebSocket
// frames and REST snapshot bodies) into canonical events.
package decode

import (
	"strings"

	"marketdata-pipeline/internal/xerrors"
)

// ExtractStreamData strips the combined-stream envelope
// ({"stream":"<name>","data":{...}}) and returns just the inner object's
// JSON text, locating it by a "data":{ prefix search rather than a full
// parse (the envelope's outer keys carry no information the decoder
// needs).
func ExtractStreamData(msg string) (string, error) {
	const key = `"data":{`
	idx := strings.Index(msg, key)
	if idx < 0 {
		return "", &xerrors.DecodeError{Err: xerrors.ErrMalformedEnvelope, Payload: msg}
	}
	start := idx + len(key) - 1
	if len(msg) == 0 {
		return "", &xerrors.DecodeError{Err: xerrors.ErrMalformedEnvelope, Payload: msg}
	}
	return msg[start : len(msg)-1], nil
}

// SplitSnapshotEnvelope splits a raw snapshot payload of the form
// "<SYMBOL>@snapshot<body>" into its symbol and JSON body. The ingest
// command does not use this form: it queues snapshots as
// exchange.SnapshotPayload values that already carry the symbol.
func SplitSnapshotEnvelope(raw string) (symbol, body string, err error) {
	const sep = "@snapshot"
	idx := strings.Index(raw, sep)
	if idx < 0 {
		return "", "", &xerrors.DecodeError{Err: xerrors.ErrMalformedEnvelope, Payload: raw}
	}
	return raw[:idx], raw[idx+len(sep):], nil
}
