// Package risk computes position statistics for weather option contracts:
// volatility estimated from historical index readings, break-even level,
// maximum profit/loss, and probability of profit from a historical
// backtest. Every function here is a stateless pure function over the
// caller's inputs; historical series are read-only and never mutated.
package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/atmx/pricing-engine/internal/option"
	"github.com/atmx/pricing-engine/internal/pricing"
)

// Insufficient-data thresholds. Below them the functions return a
// documented default rather than an error: a thin history degrades the
// estimate, it does not fail the pricing call.
const (
	minReturnsForVolatility = 2
	minPointsForProbability = 10
)

// logReturns computes ln(v_i / v_{i-1}) over consecutive pairs where both
// readings are non-zero. Weather series are full of zeros (dry days, calm
// days); a zero on either side of a pair contributes no usable return.
func logReturns(series []float64) []float64 {
	var returns []float64
	for i := 1; i < len(series); i++ {
		if series[i-1] > 0 && series[i] > 0 {
			returns = append(returns, math.Log(series[i]/series[i-1]))
		}
	}
	return returns
}

// ImpliedVolatility estimates annualized volatility from a historical
// index series: sample standard deviation of daily log returns scaled by
// √365, clamped to [MinVolatility, MaxVolatility].
//
// No liquid market quotes these instruments, so "implied" volatility here
// is inferred from history rather than backed out of market prices.
// With fewer than 2 usable returns the estimate is undefined and the
// default 0.30 is returned.
func ImpliedVolatility(series []float64) float64 {
	returns := logReturns(series)
	if len(returns) < minReturnsForVolatility {
		return option.DefaultVolatility
	}

	daily := stat.StdDev(returns, nil)
	annualized := daily * math.Sqrt(pricing.DaysPerYear)
	return option.ClampVolatility(annualized)
}

// BreakEven returns the underlying level at which the position neither
// gains nor loses net of premium paid: strike+premium for calls,
// strike−premium for puts.
func BreakEven(typ option.Type, strike, premium float64) float64 {
	switch typ {
	case option.Call:
		return strike + premium
	case option.Put:
		return strike - premium
	default:
		return math.NaN()
	}
}

// ProfitLoss bounds a long position. A call's upside is unbounded
// (MaxProfit = +Inf); a put's upside caps at strike−premium. Either way
// the most a buyer can lose is the premium paid.
type ProfitLoss struct {
	MaxProfit float64 `json:"max_profit"`
	MaxLoss   float64 `json:"max_loss"`
}

// MaxProfitLoss returns the profit/loss bounds for a long position in the
// contract at the given premium.
func MaxProfitLoss(typ option.Type, strike, premium float64) ProfitLoss {
	switch typ {
	case option.Call:
		return ProfitLoss{MaxProfit: math.Inf(1), MaxLoss: premium}
	case option.Put:
		return ProfitLoss{MaxProfit: strike - premium, MaxLoss: premium}
	default:
		return ProfitLoss{MaxProfit: math.NaN(), MaxLoss: math.NaN()}
	}
}

// ProbabilityOfProfit backtests the break-even level against history: the
// fraction of readings that would have settled the position profitably
// (above break-even for calls, below for puts). Returns 0.5 — a coin
// flip, not an error — when fewer than 10 readings exist.
func ProbabilityOfProfit(typ option.Type, strike, premium float64, series []float64) float64 {
	if len(series) < minPointsForProbability {
		return 0.5
	}

	breakEven := BreakEven(typ, strike, premium)
	profitable := 0
	for _, v := range series {
		switch typ {
		case option.Call:
			if v > breakEven {
				profitable++
			}
		case option.Put:
			if v < breakEven {
				profitable++
			}
		}
	}
	return float64(profitable) / float64(len(series))
}
