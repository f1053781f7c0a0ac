package event

import (
	"bytes"
	"testing"
)

func eventsEqual(a, b Event) bool {
	if a.LocalUniqueID != b.LocalUniqueID || a.VenueTimestamp != b.VenueTimestamp ||
		a.GateTimestamp != b.GateTimestamp || a.EventType != b.EventType ||
		a.Product != b.Product || a.Price != b.Price || a.Quantity != b.Quantity {
		return false
	}
	if (a.ID1 == nil) != (b.ID1 == nil) || (a.ID1 != nil && *a.ID1 != *b.ID1) {
		return false
	}
	if (a.ID2 == nil) != (b.ID2 == nil) || (a.ID2 != nil && *a.ID2 != *b.ID2) {
		return false
	}
	if (a.AskNotBid == nil) != (b.AskNotBid == nil) || (a.AskNotBid != nil && *a.AskNotBid != *b.AskNotBid) {
		return false
	}
	if (a.BuyNotSell == nil) != (b.BuyNotSell == nil) || (a.BuyNotSell != nil && *a.BuyNotSell != *b.BuyNotSell) {
		return false
	}
	return true
}

func TestEventRoundTrip(t *testing.T) {
	events := []Event{
		FromTrade("BTCUSDT", 1000, 42, true, "50000.12", "0.001", 1001),
		FromDepthItem("ETHUSDT", 2000, 10, 20, false, "3000.5", "1.25", 2001),
		FromSnapshotItem("BNBUSDT", 99, true, "400.00", "0.0", 3000),
	}

	for _, want := range events {
		var buf bytes.Buffer
		if err := want.Encode(&buf); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		got, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !eventsEqual(want, got) {
			t.Fatalf("round trip mismatch:\n want=%+v\n  got=%+v", want, got)
		}
	}
}

func TestEventRoundTripMultiple(t *testing.T) {
	var buf bytes.Buffer
	want := []Event{
		FromTrade("BTCUSDT", 1, 1, false, "1", "1", 1),
		FromTrade("BTCUSDT", 2, 2, true, "2", "2", 2),
		FromDepthItem("BTCUSDT", 3, 3, 4, true, "3", "3", 3),
	}
	for _, e := range want {
		if err := e.Encode(&buf); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
	}

	for i, exp := range want {
		got, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode() event %d error = %v", i, err)
		}
		if !eventsEqual(exp, got) {
			t.Fatalf("event %d mismatch:\n want=%+v\n  got=%+v", i, exp, got)
		}
	}
}

func TestNextLocalUniqueIDMonotonic(t *testing.T) {
	prev := NextLocalUniqueID()
	for i := 0; i < 1000; i++ {
		next := NextLocalUniqueID()
		if next <= prev {
			t.Fatalf("NextLocalUniqueID() not monotonic: prev=%d next=%d", prev, next)
		}
		prev = next
	}
}
