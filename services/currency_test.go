package services

import "testing"

func TestMinorUnitAmount(t *testing.T) {
	tests := []struct {
		name     string
		cost     float64
		currency string
		want     int64
	}{
		{"USD two-decimal", 9.99, "USD", 999},
		{"USD whole", 25.00, "USD", 2500},
		{"USD rounding artifact", 0.29, "USD", 29},
		{"EUR lowercase", 12.50, "eur", 1250},
		{"JPY zero-decimal", 1000, "JPY", 1000},
		{"JPY lowercase", 500, "jpy", 500},
		{"KRW zero-decimal", 15000, "KRW", 15000},
		{"VND zero-decimal", 200000, "VND", 200000},
		{"zero cost", 0, "USD", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinorUnitAmount(tt.cost, tt.currency)
			if got != tt.want {
				t.Errorf("MinorUnitAmount(%v, %q) = %d, want %d", tt.cost, tt.currency, got, tt.want)
			}
		})
	}
}

func TestIsZeroDecimalCurrency(t *testing.T) {
	tests := []struct {
		currency string
		want     bool
	}{
		{"JPY", true},
		{"jpy", true},
		{"KRW", true},
		{"XOF", true},
		{"USD", false},
		{"EUR", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsZeroDecimalCurrency(tt.currency); got != tt.want {
			t.Errorf("IsZeroDecimalCurrency(%q) = %v, want %v", tt.currency, got, tt.want)
		}
	}
}
