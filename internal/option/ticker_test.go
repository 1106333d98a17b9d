package option

import (
	"errors"
	"testing"
	"time"
)

func TestParseTicker_Valid(t *testing.T) {
	c, err := ParseTicker("ATMX-872a1070b-CALL-15MM-20250815")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.H3CellID != "872a1070b" {
		t.Errorf("expected h3_cell_id=872a1070b, got %s", c.H3CellID)
	}
	if c.Type != Call {
		t.Errorf("expected type=CALL, got %s", c.Type)
	}
	if c.Strike != 15 {
		t.Errorf("expected strike=15, got %g", c.Strike)
	}
	if c.Unit != "MM" {
		t.Errorf("expected unit=MM, got %s", c.Unit)
	}
	expected := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	if !c.ExpiryDate.Equal(expected) {
		t.Errorf("expected expiry=%v, got %v", expected, c.ExpiryDate)
	}
}

func TestParseTicker_FractionalStrike(t *testing.T) {
	c, err := ParseTicker("ATMX-872a1070b-PUT-12.5MPH-20250815")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Type != Put {
		t.Errorf("expected type=PUT, got %s", c.Type)
	}
	if c.Strike != 12.5 {
		t.Errorf("expected strike=12.5, got %g", c.Strike)
	}
	if c.Unit != "MPH" {
		t.Errorf("expected unit=MPH, got %s", c.Unit)
	}
}

func TestParseTicker_InvalidFormat(t *testing.T) {
	tests := []string{
		"",
		"INVALID",
		"ATMX-872a1070b",
		"ATMX-872a1070b-CALL",
		"ATMX-872a1070b-CALL-15MM",
		"ATMX-872a1070b-CALL-15MM-notadate",
		"BTC-872a1070b-CALL-15MM-20250815",    // wrong prefix
		"ATMX-ZZZZ-CALL-15MM-20250815",        // non-hex H3 cell
		"ATMX-872a1070b-PRECIP-15MM-20250815", // binary-market type, not an option
	}
	for _, ticker := range tests {
		_, err := ParseTicker(ticker)
		if err == nil {
			t.Errorf("expected error for ticker %q", ticker)
		}
		if err != nil && !errors.Is(err, ErrInvalidTicker) {
			t.Errorf("expected ErrInvalidTicker for %q, got %v", ticker, err)
		}
	}
}

func TestContract_DaysToExpiry(t *testing.T) {
	c, err := ParseTicker("ATMX-872a1070b-CALL-15MM-20250815")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"30 days out", time.Date(2025, 7, 16, 0, 0, 0, 0, time.UTC), 30},
		{"same day morning", time.Date(2025, 8, 14, 6, 0, 0, 0, time.UTC), 1},
		{"expiry moment", time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC), 0},
		{"after expiry", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.DaysToExpiry(tt.now); got != tt.want {
				t.Errorf("DaysToExpiry(%v) = %d, want %d", tt.now, got, tt.want)
			}
		})
	}
}
