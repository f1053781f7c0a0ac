package decode

import (
	"encoding/json"
	"fmt"

	"marketdata-pipeline/internal/event"
)

// PriceLevel is a single [price, quantity] pair as the exchange sends it.
type PriceLevel [2]string

// Depth is the wire shape of a combined-stream @depth@100ms payload.
type Depth struct {
	EventTime     int64        `json:"E"`
	Symbol        string       `json:"s"`
	FirstUpdateID uint64       `json:"U"`
	LastUpdateID  uint64       `json:"u"`
	Bids          []PriceLevel `json:"b"`
	Asks          []PriceLevel `json:"a"`
}

// ParseDepth decodes one @depth@100ms message body.
func ParseDepth(body string) (Depth, error) {
	var d Depth
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return Depth{}, fmt.Errorf("decode: parse depth: %w", err)
	}
	return d, nil
}

// ToEvents explodes a depth-diff into one canonical Event per price
// level, bids first in message order, then asks in message order.
func (d Depth) ToEvents(gateTimestamp int64) []event.Event {
	events := make([]event.Event, 0, len(d.Bids)+len(d.Asks))
	for _, lvl := range d.Bids {
		events = append(events, event.FromDepthItem(d.Symbol, d.EventTime, d.FirstUpdateID, d.LastUpdateID, false, lvl[0], lvl[1], gateTimestamp))
	}
	for _, lvl := range d.Asks {
		events = append(events, event.FromDepthItem(d.Symbol, d.EventTime, d.FirstUpdateID, d.LastUpdateID, true, lvl[0], lvl[1], gateTimestamp))
	}
	return events
}
