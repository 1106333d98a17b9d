package option

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// tickerRegex matches: ATMX-{h3CellID}-{CALL|PUT}-{strike}{unit}-{YYYYMMDD}
// Example: ATMX-872a1070b-CALL-15MM-20250815
var tickerRegex = regexp.MustCompile(
	`^ATMX-([0-9a-f]+)-(CALL|PUT)-([0-9]+(?:\.[0-9]+)?)([A-Z]+)-(\d{8})$`,
)

// ErrInvalidTicker is returned when an option ticker does not match the
// ATMX grammar.
var ErrInvalidTicker = errors.New("option: invalid ticker format")

// Contract is a parsed weather option ticker. It carries the terms that
// live on-chain (type, strike, expiry); the underlying level and volatility
// come from the caller at pricing time.
type Contract struct {
	Ticker     string    `json:"ticker"`
	H3CellID   string    `json:"h3_cell_id"`
	Type       Type      `json:"type"`
	Strike     float64   `json:"strike"`
	Unit       string    `json:"unit"` // MM, MPH, F, ...
	ExpiryDate time.Time `json:"expiry_date"`
}

// ParseTicker parses and validates an option ticker string.
// Format: ATMX-{h3CellID}-{CALL|PUT}-{strike}{unit}-{YYYYMMDD}
func ParseTicker(ticker string) (*Contract, error) {
	matches := tickerRegex.FindStringSubmatch(ticker)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected ATMX-{h3cell}-{CALL|PUT}-{strike}{unit}-{YYYYMMDD})",
			ErrInvalidTicker, ticker)
	}

	typ, err := ParseType(matches[2])
	if err != nil {
		return nil, err
	}

	strike, err := strconv.ParseFloat(matches[3], 64)
	if err != nil || strike <= 0 {
		return nil, fmt.Errorf("%w: invalid strike %s", ErrInvalidTicker, matches[3])
	}

	expiry, err := time.Parse("20060102", matches[5])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %s", ErrInvalidTicker, matches[5])
	}

	return &Contract{
		Ticker:     ticker,
		H3CellID:   matches[1],
		Type:       typ,
		Strike:     strike,
		Unit:       matches[4],
		ExpiryDate: expiry,
	}, nil
}

// DaysToExpiry returns the whole days remaining until the contract expires,
// rounded up so a contract expiring later today still counts one day.
// Returns 0 for expired contracts.
func (c *Contract) DaysToExpiry(now time.Time) int {
	remaining := c.ExpiryDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}
