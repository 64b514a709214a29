package valueobject

// Currency is an ISO 4217 currency code. The store operates with exactly
// two: prices and register cash live in UZS, margin and bonus math settle
// in USD.
type Currency string

const (
	UZS Currency = "UZS" // Uzbek som (store prices, register cash)
	USD Currency = "USD" // US dollar (settlement currency for bonuses)
)

// DefaultCurrency is the currency assumed for untagged monetary values
const DefaultCurrency = UZS

// IsValid reports whether the code is one the store operates with.
// The empty string is deliberately not valid: it marks an untagged value.
func (c Currency) IsValid() bool {
	return c == UZS || c == USD
}
