// Package currency converts heterogeneous per-campaign amounts into a
// single display currency using a static exchange-rate table.
package currency

import "adpulse/internal/domain"

// Units of each currency per one USD. Static table; treat the exact
// rates as configuration, not a contract.
var ratePerUSD = map[string]float64{
	"USD": 1,
	"EUR": 0.92,
	"GBP": 0.79,
	"CAD": 1.36,
	"AUD": 1.52,
	"JPY": 149.50,
	"INR": 83.10,
	"BRL": 4.97,
	"MXN": 17.05,
	"SEK": 10.45,
	"CHF": 0.88,
	"SGD": 1.34,
	"NZD": 1.64,
	"ZAR": 18.70,
	"PLN": 3.98,
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"CAD": "C$",
	"AUD": "A$",
	"JPY": "¥",
	"INR": "₹",
	"BRL": "R$",
	"MXN": "MX$",
	"SEK": "kr",
	"CHF": "CHF ",
	"SGD": "S$",
	"NZD": "NZ$",
	"ZAR": "R",
	"PLN": "zł",
}

// ToUSD converts an amount from the given currency into USD. Unknown
// currencies pass through unchanged.
func ToUSD(amount float64, from string) float64 {
	if from == "" || from == "USD" {
		return amount
	}
	rate, ok := ratePerUSD[from]
	if !ok || rate == 0 {
		return amount
	}
	return amount / rate
}

// ToNative converts a USD amount into the given currency. Inverse of
// ToUSD for every currency in the table.
func ToNative(amount float64, to string) float64 {
	if to == "" || to == "USD" {
		return amount
	}
	rate, ok := ratePerUSD[to]
	if !ok || rate == 0 {
		return amount
	}
	return amount * rate
}

// Known reports whether the currency appears in the rate table.
func Known(code string) bool {
	_, ok := ratePerUSD[code]
	return ok
}

// Symbol returns the display symbol for an ISO code, falling back to $.
func Symbol(code string) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return "$"
}

// DisplayCurrency selects the currency aggregates are rendered in:
// USD when all campaigns are in focus, the campaign's native currency
// when a single one is.
func DisplayCurrency(focused *domain.Campaign) string {
	if focused == nil {
		return "USD"
	}
	return focused.CurrencyOrDefault()
}

// Converter normalizes monetary amounts for aggregation. Mixed-currency
// sums must convert each campaign's amounts before summing, never the
// sum itself.
type Converter interface {
	ToDisplay(amount float64, fromCurrency string) float64
}

// USDConverter normalizes every amount to USD (the "all campaigns"
// focus rule).
type USDConverter struct{}

func (USDConverter) ToDisplay(amount float64, fromCurrency string) float64 {
	return ToUSD(amount, fromCurrency)
}

// NativeConverter passes amounts through untouched (single-campaign
// focus: everything is already in that campaign's currency).
type NativeConverter struct{}

func (NativeConverter) ToDisplay(amount float64, _ string) float64 {
	return amount
}

// ConverterFor returns the converter matching the display-currency rule.
func ConverterFor(focused *domain.Campaign) Converter {
	if focused == nil {
		return USDConverter{}
	}
	return NativeConverter{}
}
