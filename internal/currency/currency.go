// Package currency holds the fixed catalog of supported currencies.
// It is consulted only to reject unsupported codes at write time; the
// settlement calculator never looks at it.
package currency

// Currency describes one supported currency.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Supported is the full catalog, in display order.
var Supported = []Currency{
	{Code: "USD", Symbol: "$", Name: "US Dollar"},
	{Code: "EUR", Symbol: "€", Name: "Euro"},
	{Code: "GBP", Symbol: "£", Name: "British Pound"},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen"},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar"},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar"},
	{Code: "CHF", Symbol: "CHF", Name: "Swiss Franc"},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan"},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee"},
	{Code: "KRW", Symbol: "₩", Name: "South Korean Won"},
	{Code: "SEK", Symbol: "kr", Name: "Swedish Krona"},
	{Code: "NOK", Symbol: "kr", Name: "Norwegian Krone"},
	{Code: "DKK", Symbol: "kr", Name: "Danish Krone"},
	{Code: "SGD", Symbol: "S$", Name: "Singapore Dollar"},
	{Code: "HKD", Symbol: "HK$", Name: "Hong Kong Dollar"},
}

// Default is used when neither the channel nor the user specifies a currency.
const Default = "USD"

// Get returns the currency for code, or false if code is not supported.
func Get(code string) (Currency, bool) {
	for _, c := range Supported {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// IsSupported reports whether code is in the catalog.
func IsSupported(code string) bool {
	_, ok := Get(code)
	return ok
}
