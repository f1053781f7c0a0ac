// Package player replays a recorded event stream against a reconstructed
// order book and the execution-price estimator, emitting one observation
// record per completed depth->trade cycle.
package player

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/shopspring/decimal"

	"marketdata-pipeline/internal/event"
	"marketdata-pipeline/internal/logging"
	"marketdata-pipeline/internal/model"
	"marketdata-pipeline/internal/orderbook"
	"marketdata-pipeline/internal/xerrors"
)

// EventSource is whatever next-event feed the player drives;
// store.Provider implements it for replay against the analytical store.
type EventSource interface {
	Next(ctx context.Context) (event.Event, bool, error)
}

// messageGroup bundles the exploded levels of a single wire message
// (every level of one snapshot or depth-diff shares the same
// event_type/id1/id2/venue_timestamp; a trade is always a group of one).
type messageGroup struct {
	eventType event.Type
	events    []event.Event
}

// groupingSource buffers one pending event from an EventSource so whole
// messages can be reassembled from the per-level events the store or
// binary log actually carries.
type groupingSource struct {
	src     EventSource
	pending *event.Event
}

func newGroupingSource(src EventSource) *groupingSource {
	return &groupingSource{src: src}
}

func sameMessage(a, b event.Event) bool {
	if a.EventType != b.EventType || a.VenueTimestamp != b.VenueTimestamp {
		return false
	}
	switch a.EventType {
	case event.TypeSnapshot:
		return ptrEqual(a.ID1, b.ID1)
	case event.TypeDepth:
		return ptrEqual(a.ID1, b.ID1) && ptrEqual(a.ID2, b.ID2)
	default:
		return false
	}
}

func ptrEqual(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Next returns the next complete message group.
func (g *groupingSource) Next(ctx context.Context) (messageGroup, bool, error) {
	var group messageGroup

	first := g.pending
	g.pending = nil
	if first == nil {
		e, ok, err := g.src.Next(ctx)
		if err != nil || !ok {
			return messageGroup{}, ok, err
		}
		first = &e
	}

	group.eventType = first.EventType
	group.events = append(group.events, *first)

	if first.EventType == event.TypeTrade {
		return group, true, nil
	}

	for {
		e, ok, err := g.src.Next(ctx)
		if err != nil {
			return messageGroup{}, false, err
		}
		if !ok {
			return group, true, nil
		}
		if !sameMessage(*first, e) {
			g.pending = &e
			return group, true, nil
		}
		group.events = append(group.events, e)
	}
}

// Record is one emitted execution-price observation.
type Record struct {
	BestPlayerPrice decimal.Decimal
	ModelPriceLower float64
	ModelPriceUpper float64
	RealPrice       decimal.Decimal
	DeltaExecution  int64
	NumObservations float64
}

func (r Record) String() string {
	return fmt.Sprintf("%s %v %v %s %d %v",
		r.BestPlayerPrice, r.ModelPriceLower, r.ModelPriceUpper, r.RealPrice, r.DeltaExecution, r.NumObservations)
}

// Player drives a reconstructed Book and execution Episode forward from
// an EventSource, one completed wire message at a time.
type Player struct {
	Product            string
	QuantityExecution  decimal.Decimal
	ConfidenceLevel    float64

	src   *groupingSource
	book  *orderbook.Book
	model *model.Episode

	lastUpdateID *uint64
	lastEvent    *messageGroup

	pendingCandidate *candidate
	prevRealPrice    decimal.Decimal
	hasPrevReal      bool

	out io.Writer
	log *logging.Logger
}

// candidate is the "candidate measurement" taken on a trade->depth
// transition, held until the following depth->trade transition decides
// whether to emit it as a realised record.
type candidate struct {
	bestPlayerPrice decimal.Decimal
	modelLower      float64
	modelUpper      float64
	numObs          float64
	deltaExecution  int64
}

// New builds a Player reading from src and writing emitted records to w.
func New(product string, quantityExecution decimal.Decimal, confidenceLevel float64, src EventSource, w io.Writer) *Player {
	return &Player{
		Product:           product,
		QuantityExecution: quantityExecution,
		ConfidenceLevel:   confidenceLevel,
		src:               newGroupingSource(src),
		book:              orderbook.New(),
		out:               w,
		log:               logging.Default().WithComponent("player").WithField("product", product),
	}
}

// OpenOutputFile opens (creating if necessary) "<product>.txt" for
// append, matching the original player's per-symbol output convention.
func OpenOutputFile(product string) (*os.File, error) {
	return os.OpenFile(product+".txt", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Play bootstraps the book from the first snapshot seen, then drives the
// steady-state loop until the source is exhausted or ctx is cancelled.
func (p *Player) Play(ctx context.Context) error {
	if err := p.bootstrap(ctx); err != nil {
		return err
	}

	header := "Best player price | Best model price lower | Best model price upper | Real price | Delta execution | Num of obs\n"
	if _, err := io.WriteString(p.out, header); err != nil {
		return fmt.Errorf("player: write header: %w", err)
	}

	for {
		group, ok, err := p.src.Next(ctx)
		if err != nil {
			return fmt.Errorf("player: read event: %w", err)
		}
		if !ok {
			return nil
		}
		if err := p.step(group); err != nil {
			return err
		}
	}
}

func (p *Player) bootstrap(ctx context.Context) error {
	for {
		group, ok, err := p.src.Next(ctx)
		if err != nil {
			return fmt.Errorf("player: bootstrap: %w", err)
		}
		if !ok {
			return xerrors.ErrSourceExhausted
		}
		if group.eventType != event.TypeSnapshot {
			continue
		}
		if err := p.book.ApplySnapshot(group.events); err != nil {
			return fmt.Errorf("player: bootstrap snapshot: %w", err)
		}
		p.lastUpdateID = group.events[0].ID1
		p.model = model.Reinit(bestAskFloat(p.book))
		p.lastEvent = &group
		return nil
	}
}

func (p *Player) step(group messageGroup) error {
	switch group.eventType {
	case event.TypeSnapshot:
		if ptrEqual(group.events[0].ID1, p.lastUpdateID) {
			if err := p.book.ApplySnapshot(group.events); err != nil {
				return fmt.Errorf("player: re-apply snapshot: %w", err)
			}
		}
		if p.lastEvent != nil && p.lastEvent.eventType == event.TypeDepth {
			p.model = model.Reinit(bestAskFloat(p.book))
		}

	case event.TypeDepth:
		if p.lastEvent != nil {
			switch p.lastEvent.eventType {
			case event.TypeTrade:
				total, ok := p.book.BestTotalPrice(p.QuantityExecution)
				if ok {
					lower, upper, n := p.model.BestPrice(p.ConfidenceLevel)
					q, _ := p.QuantityExecution.Float64()
					p.pendingCandidate = &candidate{
						bestPlayerPrice: total,
						modelLower:      (lower + p.model.LastPBest) * q,
						modelUpper:      (upper + p.model.LastPBest) * q,
						numObs:          n,
						deltaExecution:  group.events[0].VenueTimestamp - p.lastEvent.events[0].VenueTimestamp,
					}
				}
			case event.TypeSnapshot:
				p.model = model.Reinit(bestAskFloat(p.book))
			}
		}
		if err := p.book.ApplyDiff(group.events); err != nil {
			return fmt.Errorf("player: apply diff: %w", err)
		}

	case event.TypeTrade:
		tradeEvent := group.events[0]
		price, err := decimal.NewFromString(tradeEvent.Price)
		if err != nil {
			return fmt.Errorf("player: trade price %q: %w", tradeEvent.Price, err)
		}
		quantity, err := decimal.NewFromString(tradeEvent.Quantity)
		if err != nil {
			return fmt.Errorf("player: trade quantity %q: %w", tradeEvent.Quantity, err)
		}

		if p.lastEvent != nil {
			switch p.lastEvent.eventType {
			case event.TypeDepth:
				if p.pendingCandidate != nil {
					realPrice, ok := p.book.BestTotalPrice(p.QuantityExecution)
					if ok && !math.IsInf(p.pendingCandidate.modelUpper, 0) && !math.IsNaN(p.pendingCandidate.modelUpper) &&
						(!p.hasPrevReal || !realPrice.Equal(p.prevRealPrice)) {
						rec := Record{
							BestPlayerPrice: p.pendingCandidate.bestPlayerPrice,
							ModelPriceLower: p.pendingCandidate.modelLower,
							ModelPriceUpper: p.pendingCandidate.modelUpper,
							RealPrice:       realPrice,
							DeltaExecution:  p.pendingCandidate.deltaExecution,
							NumObservations: p.pendingCandidate.numObs,
						}
						if _, err := io.WriteString(p.out, rec.String()+"\n"); err != nil {
							return fmt.Errorf("player: write record: %w", err)
						}
						p.prevRealPrice = realPrice
						p.hasPrevReal = true
					}
				}
				p.model = model.Reinit(bestAskFloat(p.book))
			case event.TypeSnapshot:
				p.model = model.Reinit(bestAskFloat(p.book))
			}

			deltaT := tradeEvent.VenueTimestamp - p.lastEvent.events[0].VenueTimestamp
			priceFloat, _ := price.Float64()
			if deltaT > 0 {
				p.model.Update(deltaT, priceFloat)
			}
		}
		p.pendingCandidate = nil
		if err := p.book.ApplyTrade(price, quantity); err != nil {
			return fmt.Errorf("player: apply trade: %w", err)
		}
	}

	p.lastEvent = &group
	return nil
}

func bestAskFloat(b *orderbook.Book) float64 {
	ask, ok := b.BestAskPrice()
	if !ok {
		return 0
	}
	f, _ := ask.Float64()
	return f
}
