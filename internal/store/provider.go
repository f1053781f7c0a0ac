package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"marketdata-pipeline/internal/event"
)

// WindowSize is the replay page width each query against the analytical
// store covers.
const WindowSize = 5 * time.Minute

// Provider feeds the replay player a stream of canonical events for one
// product, reading the analytical store one WindowSize page at a time so
// replay never has to hold an entire symbol's history in memory.
type Provider struct {
	conn    clickhouse.Conn
	product string

	currentTimestamp time.Time
	buffer           []event.Event
	bufferPos        int
}

// NewProvider builds a Provider that starts reading product's events at
// startTimestamp.
func NewProvider(conn clickhouse.Conn, product string, startTimestamp time.Time) *Provider {
	return &Provider{
		conn:             conn,
		product:          product,
		currentTimestamp: startTimestamp,
	}
}

// Product reports which symbol this Provider replays.
func (p *Provider) Product() string { return p.product }

// Next returns the next event in timestamp order, transparently loading
// the next 5-minute page from the store when the current page is
// exhausted. ok is false as soon as one page query returns no rows, so a
// 5-minute window with no events for this product ends the stream even if
// later windows hold events.
func (p *Provider) Next(ctx context.Context) (ev event.Event, ok bool, err error) {
	if p.bufferPos < len(p.buffer) {
		ev = p.buffer[p.bufferPos]
		p.bufferPos++
		return ev, true, nil
	}

	if err := p.loadPage(ctx); err != nil {
		return event.Event{}, false, err
	}
	if len(p.buffer) == 0 {
		return event.Event{}, false, nil
	}

	ev = p.buffer[0]
	p.bufferPos = 1
	return ev, true, nil
}

func (p *Provider) loadPage(ctx context.Context) error {
	nextTimestamp := p.currentTimestamp.Add(WindowSize)
	query := fmt.Sprintf(
		`SELECT local_unique_id, venue_timestamp, gate_timestamp, event_type, product, id1, id2, ask_not_bid, buy_not_sell, price, quantity
		 FROM %s
		 WHERE product = ? AND gate_timestamp >= ? AND gate_timestamp < ?
		 ORDER BY local_unique_id`,
		TableName,
	)

	rows, err := p.conn.Query(ctx, query, p.product, p.currentTimestamp, nextTimestamp)
	if err != nil {
		return fmt.Errorf("store: query page [%s, %s): %w", p.currentTimestamp, nextTimestamp, err)
	}
	defer rows.Close()

	p.currentTimestamp = nextTimestamp
	p.buffer = p.buffer[:0]
	p.bufferPos = 0

	for rows.Next() {
		var e event.Event
		var eventType string
		if err := rows.Scan(
			&e.LocalUniqueID,
			&e.VenueTimestamp,
			&e.GateTimestamp,
			&eventType,
			&e.Product,
			&e.ID1,
			&e.ID2,
			&e.AskNotBid,
			&e.BuyNotSell,
			&e.Price,
			&e.Quantity,
		); err != nil {
			return fmt.Errorf("store: scan row: %w", err)
		}
		e.EventType = event.Type(eventType)
		p.buffer = append(p.buffer, e)
	}
	return rows.Err()
}
