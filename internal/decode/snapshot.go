package decode

import (
	"encoding/json"
	"fmt"

	"marketdata-pipeline/internal/event"
)

// Snapshot is the wire shape of a REST /api/v3/depth?limit=5000 response.
type Snapshot struct {
	LastUpdateID uint64       `json:"lastUpdateId"`
	Bids         []PriceLevel `json:"bids"`
	Asks         []PriceLevel `json:"asks"`
}

// ParseSnapshot decodes one REST depth-snapshot body.
func ParseSnapshot(body string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode: parse snapshot: %w", err)
	}
	return s, nil
}

// ToEvents explodes a snapshot into one canonical Event per price level,
// bids first in message order, then asks in message order.
func (s Snapshot) ToEvents(symbol string, timestamp int64) []event.Event {
	events := make([]event.Event, 0, len(s.Bids)+len(s.Asks))
	for _, lvl := range s.Bids {
		events = append(events, event.FromSnapshotItem(symbol, s.LastUpdateID, false, lvl[0], lvl[1], timestamp))
	}
	for _, lvl := range s.Asks {
		events = append(events, event.FromSnapshotItem(symbol, s.LastUpdateID, true, lvl[0], lvl[1], timestamp))
	}
	return events
}
