package pricing

import (
	"context"
	"time"

	"github.com/atmx/pricing-engine/internal/option"
)

// PricedOption is the combined result of one pricing call. It has no
// identity or lifecycle beyond the call that produced it.
type PricedOption struct {
	// Premium is the Monte Carlo estimate of the option price, ≥ 0.
	// Stochastic between calls unless the engine is seeded.
	Premium float64 `json:"premium"`

	// Greeks come from finite differences over the closed form, so they
	// are deterministic even when Premium is not.
	Greeks Greeks `json:"greeks"`

	// FairValue equals Premium in this design.
	FairValue float64 `json:"fair_value"`

	// ImpliedVolatility is the (clamped) annualized volatility the
	// premium was priced with.
	ImpliedVolatility float64 `json:"implied_volatility"`
}

// Engine prices weather option contracts. It holds no mutable state —
// every call reads only its own inputs plus per-call random sources, so
// one Engine is safe for concurrent use.
type Engine struct {
	cfg Config
}

// New creates an Engine; zero Config fields take the documented defaults.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Price validates the terms, runs the Monte Carlo premium estimate, and
// attaches closed-form Greeks. The context cancels in-flight simulation
// work; a cancelled call returns the context error wrapped, never a
// partial result.
//
// The volatility in terms is clamped to [MinVolatility, MaxVolatility]
// before any pricing math runs. A zero RiskFreeRate in terms falls back
// to the engine configuration.
func (e *Engine) Price(ctx context.Context, terms option.Terms) (PricedOption, error) {
	if err := terms.Validate(); err != nil {
		return PricedOption{}, err
	}

	vol := option.ClampVolatility(terms.Volatility)
	rate := terms.RiskFreeRate
	if rate == 0 {
		rate = e.cfg.RiskFreeRate
	}

	seed := e.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	premium, err := monteCarloPremium(ctx, terms.Type, terms.Strike, terms.ExpiryDays,
		terms.UnderlyingLevel, vol, rate, e.cfg, seed)
	if err != nil {
		return PricedOption{}, err
	}

	greeks, err := ComputeGreeks(terms.Type, terms.Strike, terms.ExpiryDays,
		terms.UnderlyingLevel, vol, rate)
	if err != nil {
		return PricedOption{}, err
	}

	return PricedOption{
		Premium:           premium,
		Greeks:            greeks,
		FairValue:         premium,
		ImpliedVolatility: vol,
	}, nil
}
