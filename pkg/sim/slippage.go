package sim

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// Slippage derives an executed fill price from a reference price by applying
// a uniform random perturbation in [-bound, +bound].
//
// The random source is injected so tests can pin the draw. Not safe for
// concurrent use on its own; the executor serializes all draws under its lock.
type Slippage struct {
	bound float64 // fractional bound, e.g. 0.005 for 50 bps
	rng   *rand.Rand
}

// NewSlippage creates a slippage model bounded at maxBps basis points.
// maxBps = 50 means fills land within ±0.5% of the reference price.
func NewSlippage(maxBps int64, rng *rand.Rand) *Slippage {
	if maxBps < 0 {
		maxBps = 0
	}
	return &Slippage{
		bound: float64(maxBps) / 10000,
		rng:   rng,
	}
}

// Fill returns the executed price for a positive base price.
// Output stays strictly positive for any bound below 100%.
func (s *Slippage) Fill(base decimal.Decimal) decimal.Decimal {
	if s.bound == 0 {
		return base
	}
	u := (s.rng.Float64()*2 - 1) * s.bound
	return base.Mul(decimal.NewFromFloat(1 + u))
}
