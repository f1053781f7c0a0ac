// Package model implements the replay player's execution-price estimator:
// a Hotelling T²-style confidence interval built from the inter-trade
// timing and price-shift observed during one replay episode.
package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"marketdata-pipeline/internal/xerrors"
)

// Episode is the execution model's working set between re-inits: the
// best-ask price the episode began at, and two parallel observation
// sequences accumulated as trades arrive.
type Episode struct {
	LastPBest    float64
	TimeInterval []float64 // ln(Δt_ms) per observation
	PriceShift   []float64 // sqrt(|LastPBest - trade_price|) per observation
}

// Reinit starts a fresh episode anchored at pbest (the current best ask),
// discarding any accumulated observations. Called at every episode
// boundary: after each snapshot, after a depth->trade transition, and
// after a completed trade cycle that was preceded by depth updates.
func Reinit(pbest float64) *Episode {
	return &Episode{LastPBest: pbest}
}

// Update appends one observation: deltaTMs is the elapsed time in
// milliseconds since the previous replayed event (the player passes the
// venue-timestamp gap to whichever message preceded the trade),
// tradePrice is the trade's price.
func (e *Episode) Update(deltaTMs int64, tradePrice float64) {
	e.TimeInterval = append(e.TimeInterval, math.Log(float64(deltaTMs)))
	e.PriceShift = append(e.PriceShift, math.Sqrt(math.Abs(e.LastPBest-tradePrice)))
}

// BestPrice computes a (lower, upper, n) confidence interval for the
// execution price shift at confidence level p, using a Hotelling
// T²-style statistic built from the bivariate (time_interval,
// price_shift) sample. n is the observation count actually used. Fewer
// than 3 observations is degenerate — the statistic needs at least 3
// points to estimate a 2x2 covariance matrix with a nonzero residual
// degree of freedom — and returns the sentinel (0, 0, n).
func (e *Episode) BestPrice(p float64) (lower, upper, n float64) {
	lower, upper, n, _ = e.bestPrice(p)
	return lower, upper, n
}

// BestPriceErr is BestPrice with the degenerate sentinel replaced by
// xerrors.ErrDegenerateEstimate, for callers that want to errors.Is/wrap
// it instead of branching on n.
func (e *Episode) BestPriceErr(p float64) (lower, upper float64, err error) {
	lower, upper, _, degenerate := e.bestPrice(p)
	if degenerate {
		return 0, 0, xerrors.ErrDegenerateEstimate
	}
	return lower, upper, nil
}

func (e *Episode) bestPrice(p float64) (lower, upper, n float64, degenerate bool) {
	n = float64(len(e.TimeInterval))
	if n < 3 {
		return 0, 0, n, true
	}

	timeMean := mean(e.TimeInterval)
	priceMean := mean(e.PriceShift)

	var varianceTime, variancePrice, covariance float64
	for i := range e.TimeInterval {
		dt := e.TimeInterval[i] - timeMean
		dp := e.PriceShift[i] - priceMean
		varianceTime += dt * dt
		variancePrice += dp * dp
		covariance += dt * dp
	}

	denom := varianceTime*variancePrice - covariance*covariance
	if denom <= 0 {
		return 0, 0, n, true
	}
	covarianceCoef := math.Sqrt(varianceTime) / math.Sqrt(denom)

	residualDF := n - 2
	if residualDF <= 0 {
		return 0, 0, n, true
	}

	f := distuv.F{D1: 2, D2: residualDF}
	hotellingStat := math.Sqrt(2 * (n - 1) / (n * residualDF) * f.Quantile(p))

	lower = math.Pow(priceMean-hotellingStat/covarianceCoef, 2)
	upper = math.Pow(priceMean+hotellingStat/covarianceCoef, 2)
	return lower, upper, n, false
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
