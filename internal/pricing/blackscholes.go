// Package pricing implements the numerical core of the weather option
// engine: a Black–Scholes closed-form approximator, finite-difference
// Greeks derived from it, and a geometric-Brownian-motion Monte Carlo
// premium estimator.
//
// Index levels and premiums are computed in float64; callers that render
// money convert to shopspring/decimal at the edge.
package pricing

import (
	"math"

	"github.com/atmx/pricing-engine/internal/option"
)

// DaysPerYear converts day-denominated expiries to year fractions.
const DaysPerYear = 365.0

// Abramowitz & Stegun 7.1.26 rational-approximation coefficients.
const (
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
	erfP  = 0.3275911
)

// erf approximates the error function via Abramowitz & Stegun 7.1.26,
// with maximum absolute error ≈ 1.5e-7. The bounded-error approximation
// keeps Greeks stable under finite differencing, so it is part of the
// pricing contract rather than an implementation shortcut.
func erf(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	t := 1.0 / (1.0 + erfP*x)
	y := 1.0 - (((((erfA5*t+erfA4)*t)+erfA3)*t+erfA2)*t+erfA1)*t*math.Exp(-x*x)

	return sign * y
}

// normCDF is the standard normal cumulative distribution:
// N(x) = 0.5 * (1 + erf(x / √2)).
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + erf(x/math.Sqrt2))
}

// intrinsic returns the immediate-exercise value of the option.
// Unknown type tags return NaN, which downstream guards convert to
// ErrDomain rather than letting it propagate.
func intrinsic(typ option.Type, strike, underlying float64) float64 {
	switch typ {
	case option.Call:
		return math.Max(underlying-strike, 0)
	case option.Put:
		return math.Max(strike-underlying, 0)
	default:
		return math.NaN()
	}
}

// Approximate computes the Black–Scholes value of the option:
//
//	d1 = (ln(S/K) + (r + 0.5σ²)T) / (σ√T)
//	d2 = d1 − σ√T
//	call = S·N(d1) − K·e^(−rT)·N(d2)
//	put  = K·e^(−rT)·N(−d2) − S·N(−d1)
//
// with T = expiryDays/365. For T ≤ 0 (already expired) or σ ≤ 0 the
// formula is undefined (division by zero in d1), so the intrinsic value
// is returned instead.
//
// expiryDays is a float so finite-difference theta can evaluate T − 1 day
// without re-quantizing.
func Approximate(typ option.Type, strike, expiryDays, underlying, volatility, riskFreeRate float64) float64 {
	T := expiryDays / DaysPerYear
	if T <= 0 || volatility <= 0 {
		return intrinsic(typ, strike, underlying)
	}

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(underlying/strike) + (riskFreeRate+0.5*volatility*volatility)*T) /
		(volatility * sqrtT)
	d2 := d1 - volatility*sqrtT
	discount := math.Exp(-riskFreeRate * T)

	switch typ {
	case option.Call:
		return underlying*normCDF(d1) - strike*discount*normCDF(d2)
	case option.Put:
		return strike*discount*normCDF(-d2) - underlying*normCDF(-d1)
	default:
		return math.NaN()
	}
}
