// Package quote provides the HTTP handlers and JSON encoding for the
// option pricing API. Premiums and profit/loss bounds are rendered as
// shopspring/decimal at this boundary — never raw float64 for money.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/pricing-engine/internal/metrics"
	"github.com/atmx/pricing-engine/internal/option"
	"github.com/atmx/pricing-engine/internal/pricing"
	"github.com/atmx/pricing-engine/internal/risk"
)

// PriceScale is the number of decimal places for rendered premiums and
// profit/loss bounds.
const PriceScale int32 = 8

// Service handles pricing requests. It is stateless: each request builds
// its own engine configuration from the service defaults plus per-request
// overrides, so concurrent requests never share mutable state.
type Service struct {
	cfg pricing.Config
}

// NewService creates a quote service with the given default simulation
// configuration.
func NewService(cfg pricing.Config) *Service {
	return &Service{cfg: cfg}
}

// --- Request/Response types ---

// PriceRequest is the JSON body for POST /api/v1/price.
//
// Either Ticker or the explicit Type/Strike/ExpiryDays triple identifies
// the contract. Volatility may be omitted when History carries enough
// readings to estimate it.
type PriceRequest struct {
	Ticker          string  `json:"ticker,omitempty"`
	Type            string  `json:"type,omitempty"`
	Strike          float64 `json:"strike,omitempty"`
	ExpiryDays      int     `json:"expiry_days,omitempty"`
	UnderlyingLevel float64 `json:"underlying_level"`
	Volatility      float64 `json:"volatility,omitempty"`
	RiskFreeRate    float64 `json:"risk_free_rate,omitempty"`
	Simulations     int     `json:"simulations,omitempty"`

	// History holds recent index readings (oldest first), used to
	// estimate volatility when none is supplied and to backtest the
	// probability of profit.
	History []float64 `json:"history,omitempty"`
}

// PriceResponse is the full priced quote returned from POST /api/v1/price.
type PriceResponse struct {
	QuoteID             string           `json:"quote_id"`
	Ticker              string           `json:"ticker,omitempty"`
	Type                option.Type      `json:"type"`
	Premium             decimal.Decimal  `json:"premium"`
	FairValue           decimal.Decimal  `json:"fair_value"`
	ImpliedVolatility   float64          `json:"implied_volatility"`
	Greeks              pricing.Greeks   `json:"greeks"`
	BreakEven           decimal.Decimal  `json:"break_even"`
	MaxProfit           *decimal.Decimal `json:"max_profit"` // null when unbounded
	MaxProfitUnbounded  bool             `json:"max_profit_unbounded"`
	MaxLoss             decimal.Decimal  `json:"max_loss"`
	ProbabilityOfProfit float64          `json:"probability_of_profit"`
	Simulations         int              `json:"simulations"`
}

// VolatilityRequest is the JSON body for POST /api/v1/risk/volatility.
type VolatilityRequest struct {
	Series []float64 `json:"series"`
}

// VolatilityResponse carries the annualized volatility estimate.
type VolatilityResponse struct {
	ImpliedVolatility float64 `json:"implied_volatility"`
	ReturnsUsed       int     `json:"returns_used"`
}

// RiskRequest is the shared JSON body for the break-even, profit/loss,
// and probability endpoints.
type RiskRequest struct {
	Type    string    `json:"type"`
	Strike  float64   `json:"strike"`
	Premium float64   `json:"premium"`
	Series  []float64 `json:"series,omitempty"`
}

// BreakEvenResponse carries the break-even underlying level.
type BreakEvenResponse struct {
	BreakEven decimal.Decimal `json:"break_even"`
}

// ProfitLossResponse carries the position bounds.
type ProfitLossResponse struct {
	MaxProfit          *decimal.Decimal `json:"max_profit"` // null when unbounded
	MaxProfitUnbounded bool             `json:"max_profit_unbounded"`
	MaxLoss            decimal.Decimal  `json:"max_loss"`
}

// ProbabilityResponse carries the historical probability of profit.
type ProbabilityResponse struct {
	ProbabilityOfProfit float64 `json:"probability_of_profit"`
	PointsUsed          int     `json:"points_used"`
}

// --- HTTP Handlers ---

// PriceOption handles POST /api/v1/price.
// Combines the Monte Carlo premium, closed-form Greeks, and risk
// statistics into one quote.
func (s *Service) PriceOption(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	terms, err := s.buildTerms(&req)
	if err != nil {
		metrics.PricingRequests.WithLabelValues(req.Type, "invalid_terms").Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg := s.cfg
	if req.Simulations > 0 {
		cfg.Simulations = req.Simulations
	}
	if req.RiskFreeRate != 0 {
		cfg.RiskFreeRate = req.RiskFreeRate
	}
	engine := pricing.New(cfg)

	start := time.Now()
	priced, err := engine.Price(r.Context(), terms)
	elapsed := time.Since(start)
	if err != nil {
		s.writePricingError(w, terms.Type, err)
		return
	}

	metrics.PricingRequests.WithLabelValues(terms.Type.String(), "ok").Inc()
	metrics.PricingLatency.WithLabelValues(terms.Type.String()).Observe(elapsed.Seconds())
	metrics.SimulationsTotal.Add(float64(engine.Config().Simulations))

	breakEven := risk.BreakEven(terms.Type, terms.Strike, priced.Premium)
	bounds := risk.MaxProfitLoss(terms.Type, terms.Strike, priced.Premium)
	probability := risk.ProbabilityOfProfit(terms.Type, terms.Strike, priced.Premium, req.History)

	maxProfit, unbounded := renderProfit(bounds.MaxProfit)
	resp := PriceResponse{
		QuoteID:             uuid.New().String(),
		Ticker:              req.Ticker,
		Type:                terms.Type,
		Premium:             money(priced.Premium),
		FairValue:           money(priced.FairValue),
		ImpliedVolatility:   priced.ImpliedVolatility,
		Greeks:              priced.Greeks,
		BreakEven:           money(breakEven),
		MaxProfit:           maxProfit,
		MaxProfitUnbounded:  unbounded,
		MaxLoss:             money(bounds.MaxLoss),
		ProbabilityOfProfit: probability,
		Simulations:         engine.Config().Simulations,
	}

	slog.Info("option priced",
		"quote_id", resp.QuoteID,
		"type", terms.Type.String(),
		"strike", terms.Strike,
		"expiry_days", terms.ExpiryDays,
		"underlying", terms.UnderlyingLevel,
		"volatility", priced.ImpliedVolatility,
		"premium", resp.Premium.String(),
		"simulations", resp.Simulations,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	writeJSON(w, http.StatusOK, resp)
}

// buildTerms assembles contract terms from the request: ticker fields when
// a ticker is given, explicit fields otherwise, volatility from history
// when not supplied.
func (s *Service) buildTerms(req *PriceRequest) (option.Terms, error) {
	var terms option.Terms

	if req.Ticker != "" {
		contract, err := option.ParseTicker(req.Ticker)
		if err != nil {
			return terms, err
		}
		terms.Type = contract.Type
		terms.Strike = contract.Strike
		terms.ExpiryDays = contract.DaysToExpiry(time.Now().UTC())
	} else {
		typ, err := option.ParseType(req.Type)
		if err != nil {
			return terms, err
		}
		terms.Type = typ
		terms.Strike = req.Strike
		terms.ExpiryDays = req.ExpiryDays
	}

	terms.UnderlyingLevel = req.UnderlyingLevel
	terms.RiskFreeRate = req.RiskFreeRate

	terms.Volatility = req.Volatility
	if terms.Volatility == 0 {
		terms.Volatility = risk.ImpliedVolatility(req.History)
	}

	return terms, terms.Validate()
}

// writePricingError maps engine errors onto HTTP statuses. A failed
// pricing call degrades to "price unavailable" for its single request —
// nothing is retried and nothing is fatal.
func (s *Service) writePricingError(w http.ResponseWriter, typ option.Type, err error) {
	switch {
	case errors.Is(err, option.ErrInvalidTerms) || errors.Is(err, option.ErrInvalidType):
		metrics.PricingRequests.WithLabelValues(typ.String(), "invalid_terms").Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, pricing.ErrDomain):
		metrics.PricingRequests.WithLabelValues(typ.String(), "domain_error").Inc()
		metrics.DomainErrors.Inc()
		slog.Error("pricing domain error", "type", typ.String(), "err", err)
		writeError(w, "price unavailable: "+err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		metrics.PricingRequests.WithLabelValues(typ.String(), "cancelled").Inc()
		writeError(w, "price unavailable: simulation interrupted", http.StatusServiceUnavailable)
	default:
		metrics.PricingRequests.WithLabelValues(typ.String(), "error").Inc()
		slog.Error("pricing failed", "type", typ.String(), "err", err)
		writeError(w, "price unavailable", http.StatusInternalServerError)
	}
}

// Volatility handles POST /api/v1/risk/volatility.
func (s *Service) Volatility(w http.ResponseWriter, r *http.Request) {
	var req VolatilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, VolatilityResponse{
		ImpliedVolatility: risk.ImpliedVolatility(req.Series),
		ReturnsUsed:       len(req.Series),
	})
}

// BreakEven handles POST /api/v1/risk/breakeven.
func (s *Service) BreakEven(w http.ResponseWriter, r *http.Request) {
	req, typ, ok := s.decodeRiskRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, BreakEvenResponse{
		BreakEven: money(risk.BreakEven(typ, req.Strike, req.Premium)),
	})
}

// ProfitLoss handles POST /api/v1/risk/profitloss.
func (s *Service) ProfitLoss(w http.ResponseWriter, r *http.Request) {
	req, typ, ok := s.decodeRiskRequest(w, r)
	if !ok {
		return
	}

	bounds := risk.MaxProfitLoss(typ, req.Strike, req.Premium)
	maxProfit, unbounded := renderProfit(bounds.MaxProfit)
	writeJSON(w, http.StatusOK, ProfitLossResponse{
		MaxProfit:          maxProfit,
		MaxProfitUnbounded: unbounded,
		MaxLoss:            money(bounds.MaxLoss),
	})
}

// Probability handles POST /api/v1/risk/probability.
func (s *Service) Probability(w http.ResponseWriter, r *http.Request) {
	req, typ, ok := s.decodeRiskRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, ProbabilityResponse{
		ProbabilityOfProfit: risk.ProbabilityOfProfit(typ, req.Strike, req.Premium, req.Series),
		PointsUsed:          len(req.Series),
	})
}

// GetContract handles GET /api/v1/contracts/{ticker}.
// Parses and echoes an option ticker without pricing it.
func (s *Service) GetContract(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	contract, err := option.ParseTicker(ticker)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, contract)
}

// decodeRiskRequest decodes the shared risk request body and validates
// the option type and strike.
func (s *Service) decodeRiskRequest(w http.ResponseWriter, r *http.Request) (RiskRequest, option.Type, bool) {
	var req RiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return req, 0, false
	}

	typ, err := option.ParseType(req.Type)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return req, 0, false
	}
	if req.Strike <= 0 {
		writeError(w, "strike must be positive", http.StatusBadRequest)
		return req, 0, false
	}
	if req.Premium < 0 {
		writeError(w, "premium must be non-negative", http.StatusBadRequest)
		return req, 0, false
	}

	return req, typ, true
}

// money converts an index-denominated float into a decimal rounded to
// PriceScale for stable JSON rendering.
func money(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(PriceScale)
}

// renderProfit maps +Inf (a call's unbounded upside) to a null decimal
// plus an explicit flag; JSON has no Infinity.
func renderProfit(maxProfit float64) (*decimal.Decimal, bool) {
	if math.IsInf(maxProfit, 1) {
		return nil, true
	}
	d := money(maxProfit)
	return &d, false
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
