package pricing

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"github.com/atmx/pricing-engine/internal/option"
)

// Config holds the tunable simulation parameters. Defaults are explicit
// here rather than hidden module-level constants, so every pricing call
// sees exactly the configuration it was given.
type Config struct {
	// RiskFreeRate (annualized) applies when the contract terms carry none.
	RiskFreeRate float64

	// Simulations is the number of independent Monte Carlo trials.
	Simulations int

	// Workers is the number of goroutines trials are split across.
	// Trials are order-independent, so the reduction is a plain sum.
	Workers int

	// Seed makes the simulation reproducible. Zero means draw a seed from
	// the clock, the production default; tests pass a fixed seed.
	Seed int64
}

// DefaultConfig returns the documented defaults: r=0.05, 10000 trials,
// one worker per CPU, clock-seeded randomness.
func DefaultConfig() Config {
	return Config{
		RiskFreeRate: option.DefaultRiskFreeRate,
		Simulations:  10000,
		Workers:      runtime.GOMAXPROCS(0),
	}
}

// withDefaults fills any zero field from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RiskFreeRate == 0 {
		c.RiskFreeRate = def.RiskFreeRate
	}
	if c.Simulations <= 0 {
		c.Simulations = def.Simulations
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	return c
}

// ctxCheckInterval is how many trials a worker runs between context
// checks. Coarse enough to stay off the hot path, fine enough that a
// request-path caller cancels within microseconds of work.
const ctxCheckInterval = 512

// boxMuller draws one standard normal from two uniforms:
// z = √(−2·ln u₁) · cos(2π·u₂).
func boxMuller(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	for u1 == 0 { // ln(0) is -Inf
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	return math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
}

// simulatePayoffs runs trials GBM paths of expiryDays unit steps
// (dt = 1/365) from underlying and returns the sum of terminal payoffs:
//
//	S_{t+1} = S_t · exp((r − 0.5σ²)·dt + σ·√dt·Z)
//
// The drift and diffusion terms are hoisted out of the loop; only the
// normal draw varies per step.
func simulatePayoffs(ctx context.Context, typ option.Type, strike float64, expiryDays int,
	underlying, volatility, riskFreeRate float64, trials int, rng *rand.Rand) (float64, error) {

	dt := 1.0 / DaysPerYear
	driftTerm := (riskFreeRate - 0.5*volatility*volatility) * dt
	volTerm := volatility * math.Sqrt(dt)

	var sum float64
	for i := 0; i < trials; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, fmt.Errorf("pricing: simulation interrupted: %w", err)
			}
		}

		s := underlying
		for d := 0; d < expiryDays; d++ {
			s *= math.Exp(driftTerm + volTerm*boxMuller(rng))
		}
		sum += intrinsic(typ, strike, s)
	}
	return sum, nil
}

// workerResult carries one worker's partial payoff sum.
type workerResult struct {
	sum float64
	err error
}

// monteCarloPremium estimates the option premium as the discounted mean
// terminal payoff across cfg.Simulations independent trials, split over
// cfg.Workers goroutines. Each worker owns a rand.Rand derived from the
// base seed, so a fixed Config.Seed reproduces the premium exactly.
func monteCarloPremium(ctx context.Context, typ option.Type, strike float64, expiryDays int,
	underlying, volatility, riskFreeRate float64, cfg Config, seed int64) (float64, error) {

	workers := cfg.Workers
	if workers > cfg.Simulations {
		workers = cfg.Simulations
	}

	perWorker := cfg.Simulations / workers
	remainder := cfg.Simulations % workers

	results := make(chan workerResult, workers)
	for w := 0; w < workers; w++ {
		trials := perWorker
		if w == workers-1 {
			trials += remainder
		}
		rng := rand.New(rand.NewSource(seed + int64(w)))
		go func(trials int, rng *rand.Rand) {
			sum, err := simulatePayoffs(ctx, typ, strike, expiryDays,
				underlying, volatility, riskFreeRate, trials, rng)
			results <- workerResult{sum: sum, err: err}
		}(trials, rng)
	}

	var total float64
	var firstErr error
	for w := 0; w < workers; w++ {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		total += res.sum
	}
	if firstErr != nil {
		return 0, firstErr
	}

	mean := total / float64(cfg.Simulations)
	discount := math.Exp(-riskFreeRate * float64(expiryDays) / DaysPerYear)
	premium := mean * discount

	if !finite(premium) {
		return 0, fmt.Errorf("%w: premium for %s strike=%g S=%g", ErrDomain, typ, strike, underlying)
	}
	// Payoffs are non-negative, so the discounted mean already is; the
	// clamp only guards float edge cases.
	return math.Max(premium, 0), nil
}
