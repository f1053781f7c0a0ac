package orderbook

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"marketdata-pipeline/internal/event"
	"marketdata-pipeline/internal/xerrors"
)

func snapshotLevel(lastUpdateID uint64, askNotBid bool, price, qty string) event.Event {
	return event.FromSnapshotItem("BTCUSDT", lastUpdateID, askNotBid, price, qty, 0)
}

func diffLevel(first, last uint64, askNotBid bool, price, qty string) event.Event {
	return event.FromDepthItem("BTCUSDT", 0, first, last, askNotBid, price, qty, 0)
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// S1 — book bootstrap.
func TestApplySnapshotBootstrap(t *testing.T) {
	b := New()
	levels := []event.Event{
		snapshotLevel(100, false, "10.0", "1"),
		snapshotLevel(100, false, "9.5", "2"),
		snapshotLevel(100, true, "10.5", "1"),
		snapshotLevel(100, true, "11.0", "3"),
	}
	if err := b.ApplySnapshot(levels); err != nil {
		t.Fatalf("ApplySnapshot() error = %v", err)
	}

	ask, ok := b.BestAskPrice()
	if !ok || !ask.Equal(d("10.5")) {
		t.Fatalf("BestAskPrice() = %v, %v, want 10.5, true", ask, ok)
	}

	total, ok := b.BestTotalPrice(d("2"))
	if !ok {
		t.Fatalf("BestTotalPrice() ok = false")
	}
	want := d("10.5").Add(d("11.0"))
	if !total.Equal(want) {
		t.Fatalf("BestTotalPrice(2) = %v, want %v", total, want)
	}
}

// S2 — diff sequencing: a diff at or before the snapshot watermark is
// discarded; a later one applies.
func TestApplyDiffSequencing(t *testing.T) {
	b := New()
	levels := []event.Event{
		snapshotLevel(100, false, "10.0", "1"),
		snapshotLevel(100, true, "10.5", "1"),
		snapshotLevel(100, true, "11.0", "3"),
	}
	if err := b.ApplySnapshot(levels); err != nil {
		t.Fatalf("ApplySnapshot() error = %v", err)
	}

	if err := b.ApplyDiff([]event.Event{diffLevel(99, 100, true, "10.5", "0")}); err != nil {
		t.Fatalf("ApplyDiff() error = %v", err)
	}
	if ask, ok := b.BestAskPrice(); !ok || !ask.Equal(d("10.5")) {
		t.Fatalf("stale diff should be discarded, got ask=%v ok=%v", ask, ok)
	}

	if err := b.ApplyDiff([]event.Event{diffLevel(101, 102, true, "10.5", "0")}); err != nil {
		t.Fatalf("ApplyDiff() error = %v", err)
	}
	if ask, ok := b.BestAskPrice(); !ok || !ask.Equal(d("11.0")) {
		t.Fatalf("BestAskPrice() after diff = %v, %v, want 11.0, true", ask, ok)
	}
}

// S3 — trade consumes a level.
func TestApplyTradeConsumesLevel(t *testing.T) {
	b := New()
	levels := []event.Event{
		snapshotLevel(100, false, "10.0", "1"),
		snapshotLevel(100, true, "10.5", "1"),
		snapshotLevel(100, true, "11.0", "3"),
	}
	if err := b.ApplySnapshot(levels); err != nil {
		t.Fatalf("ApplySnapshot() error = %v", err)
	}

	if err := b.ApplyTrade(d("10.5"), d("1")); err != nil {
		t.Fatalf("ApplyTrade() error = %v", err)
	}

	if ask, ok := b.BestAskPrice(); !ok || !ask.Equal(d("11.0")) {
		t.Fatalf("BestAskPrice() after trade = %v, %v, want 11.0, true", ask, ok)
	}

	total, ok := b.BestTotalPrice(d("2"))
	if !ok {
		t.Fatalf("BestTotalPrice() ok = false")
	}
	if want := d("22.0"); !total.Equal(want) {
		t.Fatalf("BestTotalPrice(2) = %v, want %v", total, want)
	}
}

func TestApplyTradeBelowBestAsk(t *testing.T) {
	b := New()
	levels := []event.Event{
		snapshotLevel(100, false, "10.0", "1"),
		snapshotLevel(100, false, "9.5", "2"),
		snapshotLevel(100, true, "10.5", "1"),
	}
	if err := b.ApplySnapshot(levels); err != nil {
		t.Fatalf("ApplySnapshot() error = %v", err)
	}

	if err := b.ApplyTrade(d("10.0"), d("1")); err != nil {
		t.Fatalf("ApplyTrade() error = %v", err)
	}

	if _, ok := b.bids[d("10.0").String()]; ok {
		t.Fatalf("best bid level should have been removed")
	}
}

func TestBestTotalPriceInsufficientLiquidity(t *testing.T) {
	b := New()
	levels := []event.Event{
		snapshotLevel(1, true, "10.5", "1"),
	}
	if err := b.ApplySnapshot(levels); err != nil {
		t.Fatalf("ApplySnapshot() error = %v", err)
	}

	if _, ok := b.BestTotalPrice(d("5")); ok {
		t.Fatalf("BestTotalPrice() should report insufficient liquidity")
	}
	if _, err := b.BestTotalPriceErr(d("5")); !errors.Is(err, xerrors.ErrInsufficientLiquidity) {
		t.Fatalf("BestTotalPriceErr() error = %v, want ErrInsufficientLiquidity", err)
	}
}

func TestApplySnapshotDropsZeroQuantityLevels(t *testing.T) {
	b := New()
	levels := []event.Event{
		snapshotLevel(1, false, "10.0", "0"),
		snapshotLevel(1, true, "10.5", "1"),
	}
	if err := b.ApplySnapshot(levels); err != nil {
		t.Fatalf("ApplySnapshot() error = %v", err)
	}
	if len(b.bids) != 0 {
		t.Fatalf("zero-quantity bid level should not be stored")
	}
}
