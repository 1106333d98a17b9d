// Command pricer prices a single weather option contract from the command
// line: contract terms from flags (or an ATMX ticker), historical index
// readings from a CSV file, quote printed as JSON on stdout.
//
// Usage:
//
//	pricer -type CALL -strike 15 -days 30 -underlying 12 -history rainfall.csv
//	pricer -ticker ATMX-872a1070b-CALL-15MM-20250815 -underlying 12 -vol 0.3
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/atmx/pricing-engine/internal/option"
	"github.com/atmx/pricing-engine/internal/pricing"
	"github.com/atmx/pricing-engine/internal/risk"
)

// reading is one row of the historical CSV: date,value
type reading struct {
	Date  string  `csv:"date"`
	Value float64 `csv:"value"`
}

// result is the CLI's JSON output.
type result struct {
	Type                string         `json:"type"`
	Strike              float64        `json:"strike"`
	ExpiryDays          int            `json:"expiry_days"`
	UnderlyingLevel     float64        `json:"underlying_level"`
	Premium             float64        `json:"premium"`
	FairValue           float64        `json:"fair_value"`
	ImpliedVolatility   float64        `json:"implied_volatility"`
	Greeks              pricing.Greeks `json:"greeks"`
	BreakEven           float64        `json:"break_even"`
	MaxProfit           string         `json:"max_profit"` // "unbounded" for calls
	MaxLoss             float64        `json:"max_loss"`
	ProbabilityOfProfit float64        `json:"probability_of_profit"`
}

func main() {
	var (
		ticker     = flag.String("ticker", "", "ATMX option ticker (overrides -type/-strike/-days)")
		typeFlag   = flag.String("type", "CALL", "option type: CALL or PUT")
		strike     = flag.Float64("strike", 0, "strike level (index units)")
		days       = flag.Int("days", 0, "days to expiry")
		underlying = flag.Float64("underlying", 0, "current underlying index level")
		vol        = flag.Float64("vol", 0, "annualized volatility (0 = estimate from history)")
		rate       = flag.Float64("r", 0.05, "annualized risk-free rate")
		sims       = flag.Int("sims", 10000, "Monte Carlo trials")
		seed       = flag.Int64("seed", 0, "random seed (0 = clock)")
		histFile   = flag.String("history", "", "CSV of historical readings (date,value)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	history, err := loadHistory(*histFile)
	if err != nil {
		slog.Error("failed to load history", "file", *histFile, "err", err)
		os.Exit(1)
	}

	terms := option.Terms{
		Strike:          *strike,
		ExpiryDays:      *days,
		UnderlyingLevel: *underlying,
		Volatility:      *vol,
		RiskFreeRate:    *rate,
	}

	if *ticker != "" {
		contract, err := option.ParseTicker(*ticker)
		if err != nil {
			slog.Error("invalid ticker", "ticker", *ticker, "err", err)
			os.Exit(1)
		}
		terms.Type = contract.Type
		terms.Strike = contract.Strike
		terms.ExpiryDays = contract.DaysToExpiry(time.Now().UTC())
	} else {
		typ, err := option.ParseType(*typeFlag)
		if err != nil {
			slog.Error("invalid option type", "type", *typeFlag, "err", err)
			os.Exit(1)
		}
		terms.Type = typ
	}

	if terms.Volatility == 0 {
		terms.Volatility = risk.ImpliedVolatility(history)
		slog.Info("volatility estimated from history",
			"volatility", terms.Volatility, "readings", len(history))
	}

	engine := pricing.New(pricing.Config{
		RiskFreeRate: *rate,
		Simulations:  *sims,
		Seed:         *seed,
	})

	priced, err := engine.Price(context.Background(), terms)
	if err != nil {
		slog.Error("pricing failed", "err", err)
		os.Exit(1)
	}

	breakEven := risk.BreakEven(terms.Type, terms.Strike, priced.Premium)
	bounds := risk.MaxProfitLoss(terms.Type, terms.Strike, priced.Premium)

	maxProfit := "unbounded"
	if terms.Type == option.Put {
		maxProfit = fmt.Sprintf("%.4f", bounds.MaxProfit)
	}

	out := result{
		Type:                terms.Type.String(),
		Strike:              terms.Strike,
		ExpiryDays:          terms.ExpiryDays,
		UnderlyingLevel:     terms.UnderlyingLevel,
		Premium:             priced.Premium,
		FairValue:           priced.FairValue,
		ImpliedVolatility:   priced.ImpliedVolatility,
		Greeks:              priced.Greeks,
		BreakEven:           breakEven,
		MaxProfit:           maxProfit,
		MaxLoss:             bounds.MaxLoss,
		ProbabilityOfProfit: risk.ProbabilityOfProfit(terms.Type, terms.Strike, priced.Premium, history),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("failed to encode result", "err", err)
		os.Exit(1)
	}
}

// loadHistory reads historical readings from a CSV file with a
// date,value header. An empty path returns no history.
func loadHistory(path string) ([]float64, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []reading
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, err
	}

	series := make([]float64, len(rows))
	for i, row := range rows {
		series[i] = row.Value
	}
	return series, nil
}
