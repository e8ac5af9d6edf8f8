package services

import (
	"math"
	"strings"
)

// zeroDecimalCurrencies are the ISO codes Stripe charges in whole units.
// The set is hard-coded on purpose: the gateway's minor-unit convention is a
// contract, not something to infer per request.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {},
	"KRW": {}, "MGA": {}, "PYG": {}, "RWF": {}, "UGX": {}, "VND": {},
	"VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// IsZeroDecimalCurrency reports whether the currency has no minor unit.
func IsZeroDecimalCurrency(currency string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToUpper(currency)]
	return ok
}

// MinorUnitAmount converts a class cost into the amount the gateway expects:
// cents for two-decimal currencies (9.99 USD -> 999), the integer value
// unchanged for zero-decimal ones (1000 JPY -> 1000). Creation, comparison
// and webhook verification all go through this one function so the
// convention can never drift between call sites.
func MinorUnitAmount(cost float64, currency string) int64 {
	if IsZeroDecimalCurrency(currency) {
		return int64(math.Round(cost))
	}
	return int64(math.Round(cost * 100))
}
