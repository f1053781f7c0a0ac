package model

import (
	"errors"
	"testing"

	"marketdata-pipeline/internal/xerrors"
)

func TestBestPriceDegenerateBelowThreeObservations(t *testing.T) {
	e := Reinit(100.0)
	lower, upper, n := e.BestPrice(0.95)
	if lower != 0 || upper != 0 || n != 0 {
		t.Fatalf("BestPrice() with 0 obs = (%v, %v, %v), want (0, 0, 0)", lower, upper, n)
	}

	e.Update(1000, 100.5)
	e.Update(2000, 99.5)
	lower, upper, n = e.BestPrice(0.95)
	if lower != 0 || upper != 0 || n != 2 {
		t.Fatalf("BestPrice() with 2 obs = (%v, %v, %v), want (0, 0, 2)", lower, upper, n)
	}
}

func TestBestPriceThreeObservationsProducesInterval(t *testing.T) {
	e := Reinit(100.0)
	e.Update(1000, 100.5)
	e.Update(1500, 99.2)
	e.Update(800, 100.9)

	lower, upper, n := e.BestPrice(0.95)
	if n != 3 {
		t.Fatalf("n = %v, want 3", n)
	}
	if lower < 0 || upper < 0 {
		t.Fatalf("lower/upper must be non-negative squared quantities: lower=%v upper=%v", lower, upper)
	}
	if lower > upper {
		t.Fatalf("lower (%v) > upper (%v)", lower, upper)
	}
}

func TestBestPriceErrReturnsDegenerateSentinel(t *testing.T) {
	e := Reinit(100.0)
	e.Update(1000, 100.5)
	if _, _, err := e.BestPriceErr(0.95); !errors.Is(err, xerrors.ErrDegenerateEstimate) {
		t.Fatalf("BestPriceErr() error = %v, want ErrDegenerateEstimate", err)
	}
}

func TestUpdateAccumulatesObservations(t *testing.T) {
	e := Reinit(50.0)
	e.Update(1000, 51.0)
	if len(e.TimeInterval) != 1 || len(e.PriceShift) != 1 {
		t.Fatalf("expected one observation recorded, got %d/%d", len(e.TimeInterval), len(e.PriceShift))
	}
}
