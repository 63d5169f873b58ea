package enums

// Currency represents the denominations the gateway is asked to charge in.
type Currency string

const CurrencyINR Currency = "INR"

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}
