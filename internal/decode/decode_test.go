package decode

import "testing"

func TestExtractStreamData(t *testing.T) {
	msg := `{"stream":"btcusdt@trade","data":{"e":"trade","E":123,"s":"BTCUSDT"}}`
	got, err := ExtractStreamData(msg)
	if err != nil {
		t.Fatalf("ExtractStreamData() error = %v", err)
	}
	want := `{"e":"trade","E":123,"s":"BTCUSDT"}`
	if got != want {
		t.Fatalf("ExtractStreamData() = %q, want %q", got, want)
	}
}

func TestExtractStreamDataMissingEnvelope(t *testing.T) {
	if _, err := ExtractStreamData(`{"e":"trade"}`); err == nil {
		t.Fatal("expected error for message without a data envelope")
	}
}

func TestSplitSnapshotEnvelope(t *testing.T) {
	raw := `BTCUSDT@snapshot{"lastUpdateId":1,"bids":[],"asks":[]}`
	symbol, body, err := SplitSnapshotEnvelope(raw)
	if err != nil {
		t.Fatalf("SplitSnapshotEnvelope() error = %v", err)
	}
	if symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q, want BTCUSDT", symbol)
	}
	if body != `{"lastUpdateId":1,"bids":[],"asks":[]}` {
		t.Fatalf("body = %q", body)
	}
}

func TestParseTradeToEvent(t *testing.T) {
	body := `{"E":1000,"s":"BTCUSDT","t":42,"p":"50000.1","q":"0.002","m":true}`
	trade, err := ParseTrade(body)
	if err != nil {
		t.Fatalf("ParseTrade() error = %v", err)
	}
	ev := trade.ToEvent(1001)
	if ev.Product != "BTCUSDT" || ev.Price != "50000.1" || ev.Quantity != "0.002" {
		t.Fatalf("unexpected event from trade: %+v", ev)
	}
	if ev.ID1 == nil || *ev.ID1 != 42 {
		t.Fatalf("expected id1=42, got %+v", ev.ID1)
	}
	if ev.BuyNotSell == nil || *ev.BuyNotSell != true {
		t.Fatalf("expected buy_not_sell=true, got %+v", ev.BuyNotSell)
	}
}

func TestParseDepthToEventsOrder(t *testing.T) {
	body := `{"E":1000,"s":"ETHUSDT","U":10,"u":20,` +
		`"b":[["100.0","1.0"],["99.0","2.0"]],` +
		`"a":[["101.0","1.5"],["102.0","0.5"]]}`
	depth, err := ParseDepth(body)
	if err != nil {
		t.Fatalf("ParseDepth() error = %v", err)
	}
	events := depth.ToEvents(1001)
	if len(events) != 4 {
		t.Fatalf("len(events) = %d, want 4", len(events))
	}
	for i, want := range []struct {
		askNotBid bool
		price     string
	}{
		{false, "100.0"},
		{false, "99.0"},
		{true, "101.0"},
		{true, "102.0"},
	} {
		if events[i].AskNotBid == nil || *events[i].AskNotBid != want.askNotBid {
			t.Fatalf("event %d ask_not_bid = %+v, want %v", i, events[i].AskNotBid, want.askNotBid)
		}
		if events[i].Price != want.price {
			t.Fatalf("event %d price = %q, want %q", i, events[i].Price, want.price)
		}
	}
}

func TestParseSnapshotToEventsOrder(t *testing.T) {
	body := `{"lastUpdateId":99,"bids":[["10.0","1"]],"asks":[["11.0","1"],["12.0","1"]]}`
	snap, err := ParseSnapshot(body)
	if err != nil {
		t.Fatalf("ParseSnapshot() error = %v", err)
	}
	events := snap.ToEvents("BNBUSDT", 5000)
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	if events[0].AskNotBid == nil || *events[0].AskNotBid {
		t.Fatalf("first event should be a bid level")
	}
	if events[1].AskNotBid == nil || !*events[1].AskNotBid || events[2].AskNotBid == nil || !*events[2].AskNotBid {
		t.Fatalf("remaining events should be ask levels")
	}
	for _, e := range events {
		if e.ID1 == nil || *e.ID1 != 99 {
			t.Fatalf("expected id1=99 on every snapshot event, got %+v", e.ID1)
		}
	}
}
