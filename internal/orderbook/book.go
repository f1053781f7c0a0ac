// Package orderbook reconstructs a per-symbol limit order book from a
// sequence of canonical snapshot, depth-diff, and trade events.
package orderbook

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"marketdata-pipeline/internal/event"
	"marketdata-pipeline/internal/xerrors"
)

// Book is a reconstructed limit order book: bids keyed by price in
// descending order, asks keyed by price in ascending order. Go has no
// ordered-map idiom equivalent to an inverted BTreeMap, so the sorted key
// order is maintained alongside a plain map.
type Book struct {
	lastUpdateID uint64

	bids    map[string]decimal.Decimal // price string -> quantity
	bidKeys []decimal.Decimal          // descending

	asks    map[string]decimal.Decimal
	askKeys []decimal.Decimal // ascending
}

// New returns an empty Book.
func New() *Book {
	return &Book{
		bids: make(map[string]decimal.Decimal),
		asks: make(map[string]decimal.Decimal),
	}
}

// LastUpdateID reports the snapshot update ID the book was bootstrapped
// from, used to discard stale diffs.
func (b *Book) LastUpdateID() uint64 { return b.lastUpdateID }

// ApplySnapshot replaces the book's contents with the exploded levels of
// a snapshot (one Event per level, AskNotBid set on every one). All
// levels in a single snapshot carry the same ID1 (the snapshot's
// lastUpdateId).
func (b *Book) ApplySnapshot(levels []event.Event) error {
	bids := make(map[string]decimal.Decimal)
	asks := make(map[string]decimal.Decimal)
	var lastUpdateID uint64

	for _, lvl := range levels {
		if lvl.ID1 == nil || lvl.AskNotBid == nil {
			return fmt.Errorf("orderbook: snapshot level missing id1/ask_not_bid: %+v", lvl)
		}
		lastUpdateID = *lvl.ID1

		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			return fmt.Errorf("orderbook: snapshot level price %q: %w", lvl.Price, err)
		}
		qty, err := decimal.NewFromString(lvl.Quantity)
		if err != nil {
			return fmt.Errorf("orderbook: snapshot level quantity %q: %w", lvl.Quantity, err)
		}
		if qty.IsZero() {
			continue
		}
		if *lvl.AskNotBid {
			asks[price.String()] = qty
		} else {
			bids[price.String()] = qty
		}
	}

	b.lastUpdateID = lastUpdateID
	b.bids = bids
	b.asks = asks
	b.rebuildKeys()
	return nil
}

// ApplyDiff applies the exploded levels of a depth-diff message (one
// Event per level). A level is discarded if its ID2 (the diff's
// lastUpdateId) is at or before the book's snapshot watermark. A
// zero-quantity level removes the price from the book.
func (b *Book) ApplyDiff(levels []event.Event) error {
	changed := false
	for _, lvl := range levels {
		if lvl.ID2 == nil || lvl.AskNotBid == nil {
			return fmt.Errorf("orderbook: diff level missing id2/ask_not_bid: %+v", lvl)
		}
		if *lvl.ID2 <= b.lastUpdateID {
			continue
		}

		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			return fmt.Errorf("orderbook: diff level price %q: %w", lvl.Price, err)
		}
		qty, err := decimal.NewFromString(lvl.Quantity)
		if err != nil {
			return fmt.Errorf("orderbook: diff level quantity %q: %w", lvl.Quantity, err)
		}

		side := b.bids
		if *lvl.AskNotBid {
			side = b.asks
		}
		key := price.String()
		if qty.IsZero() {
			if _, ok := side[key]; ok {
				delete(side, key)
				changed = true
			}
		} else {
			side[key] = qty
			changed = true
		}
	}
	if changed {
		b.rebuildKeys()
	}
	return nil
}

// ApplyTrade reflects a trade print as book consumption: the trade
// decrements the best-ask level if the trade price is at or above the
// current best ask, otherwise the best-bid level, by the traded
// quantity. A level whose quantity reaches zero is removed. This is a
// heuristic for venues (like this one) whose trade feed carries no
// resting-order ID to consume directly.
func (b *Book) ApplyTrade(price, quantity decimal.Decimal) error {
	var side map[string]decimal.Decimal
	var levelPrice decimal.Decimal

	bestAsk, hasAsk := b.bestAsk()
	switch {
	case hasAsk && price.GreaterThanOrEqual(bestAsk):
		side, levelPrice = b.asks, bestAsk
	default:
		bestBid, hasBid := b.bestBid()
		if !hasBid {
			return nil
		}
		side, levelPrice = b.bids, bestBid
	}

	key := levelPrice.String()
	remaining, ok := side[key]
	if !ok {
		return nil
	}
	remaining = remaining.Sub(quantity)
	if remaining.Sign() <= 0 {
		delete(side, key)
	} else {
		side[key] = remaining
	}
	b.rebuildKeys()
	return nil
}

// BestAskPrice returns the minimum ask key. ok is false if asks is empty.
func (b *Book) BestAskPrice() (decimal.Decimal, bool) {
	return b.bestAsk()
}

// BestTotalPrice walks the ask side ascending, accumulating
// min(level_qty, remaining_qty)*level_price and subtracting the consumed
// quantity from remaining_qty, until notionalQty is exhausted. ok is
// false if the book's aggregate ask liquidity cannot fill notionalQty.
func (b *Book) BestTotalPrice(notionalQty decimal.Decimal) (decimal.Decimal, bool) {
	remaining := notionalQty
	total := decimal.Zero

	for _, price := range b.askKeys {
		if remaining.Sign() <= 0 {
			break
		}
		levelQty := b.asks[price.String()]
		take := levelQty
		if remaining.LessThan(levelQty) {
			take = remaining
		}
		total = total.Add(take.Mul(price))
		remaining = remaining.Sub(take)
	}

	if remaining.Sign() > 0 {
		return decimal.Zero, false
	}
	return total, true
}

// BestTotalPriceErr is BestTotalPrice with xerrors.ErrInsufficientLiquidity
// in place of the ok bool, for callers that want to errors.Is/wrap it
// instead of branching on a bool.
func (b *Book) BestTotalPriceErr(notionalQty decimal.Decimal) (decimal.Decimal, error) {
	total, ok := b.BestTotalPrice(notionalQty)
	if !ok {
		return decimal.Zero, xerrors.ErrInsufficientLiquidity
	}
	return total, nil
}

func (b *Book) bestAsk() (decimal.Decimal, bool) {
	if len(b.askKeys) == 0 {
		return decimal.Zero, false
	}
	return b.askKeys[0], true
}

func (b *Book) bestBid() (decimal.Decimal, bool) {
	if len(b.bidKeys) == 0 {
		return decimal.Zero, false
	}
	return b.bidKeys[0], true
}

func (b *Book) rebuildKeys() {
	b.bidKeys = sortedKeys(b.bids, true)
	b.askKeys = sortedKeys(b.asks, false)
}

func sortedKeys(side map[string]decimal.Decimal, descending bool) []decimal.Decimal {
	keys := make([]decimal.Decimal, 0, len(side))
	for k := range side {
		d, _ := decimal.NewFromString(k)
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool {
		if descending {
			return keys[i].GreaterThan(keys[j])
		}
		return keys[i].LessThan(keys[j])
	})
	return keys
}
