package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/atmx/pricing-engine/internal/option"
)

// ErrDomain is returned when a numerical routine would otherwise produce
// NaN or Infinity. A domain error fails the whole pricing call loudly;
// NaN never propagates into results.
var ErrDomain = errors.New("pricing: numerical domain error")

// Finite-difference bump sizes as proportions of the bumped input.
// Fixed 1% bumps trade a little adaptive accuracy for reproducibility;
// with the bounded-error erf approximation they are stable across the
// strike/expiry ranges weather contracts use.
const (
	deltaBump = 0.01 // dS = 1% of underlying
	vegaBump  = 0.01 // dσ = 1% of volatility
)

// Greeks are the option value sensitivities, each rounded to 4 decimal
// places for presentation stability. Recomputed on every call.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// ComputeGreeks estimates delta, gamma, theta, and vega by finite
// differences over the closed-form approximator:
//
//	delta = (V(S+dS) − V(S−dS)) / (2·dS)      central, dS = 0.01·S
//	gamma = (V(S+dS) − 2V(S) + V(S−dS)) / dS² second central
//	theta = V(T−1day) − V(T)                  one-day forward decay
//	vega  = (V(σ+dσ) − V(σ)) / dσ             forward, dσ = 0.01·σ
//
// Negative theta means the option loses value as a day passes.
// Deterministic given identical inputs — no randomness, unlike the Monte
// Carlo premium path.
func ComputeGreeks(typ option.Type, strike float64, expiryDays int, underlying, volatility, riskFreeRate float64) (Greeks, error) {
	days := float64(expiryDays)
	base := Approximate(typ, strike, days, underlying, volatility, riskFreeRate)

	dS := deltaBump * underlying
	up := Approximate(typ, strike, days, underlying+dS, volatility, riskFreeRate)
	down := Approximate(typ, strike, days, underlying-dS, volatility, riskFreeRate)

	delta := (up - down) / (2 * dS)
	gamma := (up - 2*base + down) / (dS * dS)

	// One day of decay; the T ≤ 0 guard in Approximate covers expiryDays=1.
	theta := Approximate(typ, strike, days-1, underlying, volatility, riskFreeRate) - base

	dVol := vegaBump * volatility
	vega := (Approximate(typ, strike, days, underlying, volatility+dVol, riskFreeRate) - base) / dVol

	g := Greeks{
		Delta: round4(delta),
		Gamma: round4(gamma),
		Theta: round4(theta),
		Vega:  round4(vega),
	}
	if !finite(g.Delta) || !finite(g.Gamma) || !finite(g.Theta) || !finite(g.Vega) {
		return Greeks{}, fmt.Errorf("%w: greeks for %s strike=%g S=%g σ=%g T=%dd",
			ErrDomain, typ, strike, underlying, volatility, expiryDays)
	}
	return g, nil
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
