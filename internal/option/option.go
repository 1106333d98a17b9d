// Package option defines the contract vocabulary shared across the pricing
// engine: the call/put type enum, per-call contract terms with boundary
// validation, and ATMX option-ticker parsing.
package option

import (
	"errors"
	"fmt"
)

// Volatility bounds for pricing. Every volatility that reaches a pricing
// routine is clamped into this range, whether supplied by the caller or
// estimated from historical readings.
const (
	MinVolatility = 0.10
	MaxVolatility = 2.00

	// DefaultVolatility is used when too little historical data exists to
	// estimate volatility (fewer than 2 usable log returns).
	DefaultVolatility = 0.30

	// DefaultRiskFreeRate is the annualized rate applied when the caller
	// does not supply one.
	DefaultRiskFreeRate = 0.05
)

var (
	// ErrInvalidTerms is returned when contract terms fail boundary
	// validation (non-positive strike or expiry, negative underlying,
	// non-positive volatility).
	ErrInvalidTerms = errors.New("option: invalid contract terms")

	// ErrInvalidType is returned when an option type string is neither
	// CALL nor PUT.
	ErrInvalidType = errors.New("option: unknown option type")
)

// Type is the two-variant option kind. Every payoff formula switches
// exhaustively on this tag; there is no string discriminant inside the
// engine.
type Type int

const (
	Call Type = iota
	Put
)

// ParseType parses "CALL" or "PUT" (case-insensitive at the boundary).
func ParseType(s string) (Type, error) {
	switch s {
	case "CALL", "call", "Call":
		return Call, nil
	case "PUT", "put", "Put":
		return Put, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// String returns the canonical uppercase name.
func (t Type) String() string {
	switch t {
	case Call:
		return "CALL"
	case Put:
		return "PUT"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler so Type renders as
// "CALL"/"PUT" in JSON.
func (t Type) MarshalText() ([]byte, error) {
	switch t {
	case Call, Put:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, int(t))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Terms holds the parameters of one pricing call. Terms are immutable per
// call and never persisted by the engine — ownership stays with the caller.
//
// Strike and UnderlyingLevel are weather-index levels (e.g., cumulative
// rainfall in mm, wind speed in mph). Volatility is annualized.
type Terms struct {
	Type            Type    `json:"type"`
	Strike          float64 `json:"strike"`
	ExpiryDays      int     `json:"expiry_days"`
	UnderlyingLevel float64 `json:"underlying_level"`
	Volatility      float64 `json:"volatility"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
}

// Validate checks the terms at the engine boundary. The upstream platform
// code this engine replaced skipped validation and silently produced
// NaN/Infinity; here bad terms fail before any math runs.
func (t Terms) Validate() error {
	switch t.Type {
	case Call, Put:
	default:
		return fmt.Errorf("%w: type %d", ErrInvalidType, int(t.Type))
	}
	if t.Strike <= 0 {
		return fmt.Errorf("%w: strike must be positive, got %g", ErrInvalidTerms, t.Strike)
	}
	if t.ExpiryDays <= 0 {
		return fmt.Errorf("%w: expiry_days must be positive, got %d", ErrInvalidTerms, t.ExpiryDays)
	}
	if t.UnderlyingLevel < 0 {
		return fmt.Errorf("%w: underlying_level must be non-negative, got %g", ErrInvalidTerms, t.UnderlyingLevel)
	}
	if t.Volatility <= 0 {
		return fmt.Errorf("%w: volatility must be positive, got %g", ErrInvalidTerms, t.Volatility)
	}
	return nil
}

// ClampVolatility clamps an annualized volatility into
// [MinVolatility, MaxVolatility].
func ClampVolatility(v float64) float64 {
	if v < MinVolatility {
		return MinVolatility
	}
	if v > MaxVolatility {
		return MaxVolatility
	}
	return v
}
