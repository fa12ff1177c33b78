package export

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the reporting currency. Every amount is held in it.
const Currency = money.USD

// FormatMoney renders d as a display string such as "$1,234.56".
// Amounts are rounded half away from zero to the currency's minor unit.
func FormatMoney(d decimal.Decimal) string {
	return toMoney(d).Display()
}

// FormatSignedMoney is FormatMoney with an explicit "+" on positive amounts.
func FormatSignedMoney(d decimal.Decimal) string {
	m := toMoney(d)
	if m.IsPositive() {
		return "+" + m.Display()
	}
	return m.Display()
}

func toMoney(d decimal.Decimal) *money.Money {
	fraction := int32(money.GetCurrency(Currency).Fraction)
	return money.New(d.Round(fraction).Shift(fraction).IntPart(), Currency)
}
