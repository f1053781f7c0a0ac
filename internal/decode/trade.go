package decode

import (
	"encoding/json"
	"fmt"

	"marketdata-pipeline/internal/event"
)

// Trade is the wire shape of a combined-stream @trade payload.
type Trade struct {
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	TradeID     uint64 `json:"t"`
	Price       string `json:"p"`
	Quantity    string `json:"q"`
	MarketMaker bool   `json:"m"`
}

// ParseTrade decodes one @trade message body.
func ParseTrade(body string) (Trade, error) {
	var t Trade
	if err := json.Unmarshal([]byte(body), &t); err != nil {
		return Trade{}, fmt.Errorf("decode: parse trade: %w", err)
	}
	return t, nil
}

// ToEvent converts a decoded trade into its canonical Event.
func (t Trade) ToEvent(gateTimestamp int64) event.Event {
	return event.FromTrade(t.Symbol, t.EventTime, t.TradeID, t.MarketMaker, t.Price, t.Quantity, gateTimestamp)
}
