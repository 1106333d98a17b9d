package pricing

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/atmx/pricing-engine/internal/option"
)

func atmTerms(typ option.Type, underlying float64) option.Terms {
	return option.Terms{
		Type:            typ,
		Strike:          100,
		ExpiryDays:      30,
		UnderlyingLevel: underlying,
		Volatility:      0.3,
		RiskFreeRate:    0.05,
	}
}

func TestEngine_Price_SeededIsDeterministic(t *testing.T) {
	eng := New(Config{Simulations: 5000, Workers: 4, Seed: 42})
	terms := atmTerms(option.Call, 100)

	first, err := eng.Price(context.Background(), terms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := eng.Price(context.Background(), terms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Premium != second.Premium {
		t.Errorf("seeded runs should match exactly: %g vs %g", first.Premium, second.Premium)
	}
	if first.Greeks != second.Greeks {
		t.Errorf("greeks should match: %+v vs %+v", first.Greeks, second.Greeks)
	}
}

func TestEngine_Price_ConvergenceTolerance(t *testing.T) {
	// Two independent 100k-trial runs on identical ATM terms must agree
	// within 5% — stochastic tolerance, not exact equality.
	terms := atmTerms(option.Call, 100)

	a, err := New(Config{Simulations: 100000, Seed: 1}).Price(context.Background(), terms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := New(Config{Simulations: 100000, Seed: 2}).Price(context.Background(), terms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diff := math.Abs(a.Premium-b.Premium) / a.Premium
	if diff > 0.05 {
		t.Errorf("runs differ by %.2f%%: %g vs %g", diff*100, a.Premium, b.Premium)
	}
}

func TestEngine_Price_AgreesWithClosedForm(t *testing.T) {
	// The GBM Monte Carlo estimate and the Black–Scholes value share the
	// same model, so at 100k trials they should sit within a few percent
	// for an at-the-money contract.
	terms := atmTerms(option.Call, 100)

	priced, err := New(Config{Simulations: 100000, Seed: 7}).Price(context.Background(), terms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	analytic := Approximate(option.Call, terms.Strike, float64(terms.ExpiryDays),
		terms.UnderlyingLevel, terms.Volatility, terms.RiskFreeRate)

	diff := math.Abs(priced.Premium-analytic) / analytic
	if diff > 0.05 {
		t.Errorf("MC premium %g deviates %.2f%% from closed form %g",
			priced.Premium, diff*100, analytic)
	}
}

func TestEngine_Price_MonotonicInUnderlying(t *testing.T) {
	// With a fixed seed every trial reuses the same normal draws, and a
	// GBM terminal value is monotone in its starting level, so call
	// premiums must be non-decreasing in S (puts non-increasing).
	eng := New(Config{Simulations: 5000, Workers: 2, Seed: 99})

	prevCall := -1.0
	prevPut := math.Inf(1)
	for _, s := range []float64{80, 90, 100, 110, 120} {
		call, err := eng.Price(context.Background(), atmTerms(option.Call, s))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		put, err := eng.Price(context.Background(), atmTerms(option.Put, s))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if call.Premium < prevCall {
			t.Errorf("call premium decreased at S=%g: %g < %g", s, call.Premium, prevCall)
		}
		if put.Premium > prevPut {
			t.Errorf("put premium increased at S=%g: %g > %g", s, put.Premium, prevPut)
		}
		prevCall = call.Premium
		prevPut = put.Premium
	}
}

func TestEngine_Price_RainfallScenario(t *testing.T) {
	// Call on 15mm cumulative rainfall, index at 12mm, 30 days out.
	eng := New(Config{Simulations: 10000, Seed: 5})
	priced, err := eng.Price(context.Background(), option.Terms{
		Type:            option.Call,
		Strike:          15,
		ExpiryDays:      30,
		UnderlyingLevel: 12,
		Volatility:      0.30,
		RiskFreeRate:    0.05,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if priced.Premium <= 0 {
		t.Errorf("out-of-the-money call with a month left should carry some premium, got %g", priced.Premium)
	}
	if priced.Premium >= 12 {
		t.Errorf("premium %g should be well below the underlying notional", priced.Premium)
	}
	if priced.FairValue != priced.Premium {
		t.Errorf("fair value should equal premium: %g vs %g", priced.FairValue, priced.Premium)
	}
	if priced.ImpliedVolatility != 0.30 {
		t.Errorf("implied volatility should echo the input, got %g", priced.ImpliedVolatility)
	}
}

func TestEngine_Price_PremiumNeverNegative(t *testing.T) {
	eng := New(Config{Simulations: 2000, Seed: 11})
	tests := []option.Terms{
		{Type: option.Call, Strike: 500, ExpiryDays: 5, UnderlyingLevel: 10, Volatility: 0.3}, // deep OTM call
		{Type: option.Put, Strike: 0.5, ExpiryDays: 5, UnderlyingLevel: 100, Volatility: 0.3}, // deep OTM put
	}
	for _, terms := range tests {
		priced, err := eng.Price(context.Background(), terms)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if priced.Premium < 0 {
			t.Errorf("premium must be non-negative, got %g for %+v", priced.Premium, terms)
		}
	}
}

func TestEngine_Price_ClampsVolatility(t *testing.T) {
	eng := New(Config{Simulations: 1000, Seed: 3})

	high, err := eng.Price(context.Background(), option.Terms{
		Type: option.Call, Strike: 100, ExpiryDays: 30, UnderlyingLevel: 100, Volatility: 5.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if high.ImpliedVolatility != option.MaxVolatility {
		t.Errorf("volatility should clamp to %g, got %g", option.MaxVolatility, high.ImpliedVolatility)
	}

	low, err := eng.Price(context.Background(), option.Terms{
		Type: option.Call, Strike: 100, ExpiryDays: 30, UnderlyingLevel: 100, Volatility: 0.01,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if low.ImpliedVolatility != option.MinVolatility {
		t.Errorf("volatility should clamp to %g, got %g", option.MinVolatility, low.ImpliedVolatility)
	}
}

func TestEngine_Price_InvalidTerms(t *testing.T) {
	eng := New(Config{Simulations: 100, Seed: 1})

	_, err := eng.Price(context.Background(), option.Terms{
		Type: option.Call, Strike: -5, ExpiryDays: 30, UnderlyingLevel: 12, Volatility: 0.3,
	})
	if !errors.Is(err, option.ErrInvalidTerms) {
		t.Errorf("expected ErrInvalidTerms, got %v", err)
	}
}

func TestEngine_Price_CancelledContext(t *testing.T) {
	eng := New(Config{Simulations: 100000, Seed: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Price(ctx, atmTerms(option.Call, 100))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEngine_Price_MoreWorkersThanTrials(t *testing.T) {
	// Worker count collapses to the trial count rather than spawning
	// idle goroutines or dividing by zero.
	eng := New(Config{Simulations: 3, Workers: 16, Seed: 1})
	if _, err := eng.Price(context.Background(), atmTerms(option.Call, 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RiskFreeRate != 0.05 {
		t.Errorf("default risk-free rate = %g, want 0.05", cfg.RiskFreeRate)
	}
	if cfg.Simulations != 10000 {
		t.Errorf("default simulations = %d, want 10000", cfg.Simulations)
	}
	if cfg.Workers < 1 {
		t.Errorf("default workers = %d, want ≥1", cfg.Workers)
	}
}

func TestBoxMuller_StandardMoments(t *testing.T) {
	// Sample mean ≈ 0 and variance ≈ 1 over a large draw.
	rng := rand.New(rand.NewSource(12345))
	n := 200000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		z := boxMuller(rng)
		sum += z
		sumSq += z * z
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	if math.Abs(mean) > 0.01 {
		t.Errorf("sample mean = %g, want ≈0", mean)
	}
	if math.Abs(variance-1) > 0.02 {
		t.Errorf("sample variance = %g, want ≈1", variance)
	}
}
