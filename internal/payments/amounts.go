package payments

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
)

// DefaultFee is charged for registration types without an explicit entry.
var DefaultFee = decimal.NewFromInt(1531)

// FeeTable pins the charge for each registration type.
type FeeTable map[enums.RegistrationType]decimal.Decimal

// DefaultFeeTable charges DefaultFee for every known registration type.
func DefaultFeeTable() FeeTable {
	types := enums.RegistrationTypes()
	table := make(FeeTable, len(types))
	for _, rt := range types {
		table[rt] = DefaultFee
	}
	return table
}

// Expected returns the fee for the type, falling back to DefaultFee.
func (f FeeTable) Expected(registrationType enums.RegistrationType) decimal.Decimal {
	if fee, ok := f[registrationType]; ok {
		return fee
	}
	return DefaultFee
}
