package shared

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places kept for currency amounts (BRL)
const MoneyScale = 2

// RoundMoney rounds an amount half-up to cents
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// SplitAmount divides total into n parts rounded to cents. The rounding
// remainder is added to the first part so the parts always sum to total.
func SplitAmount(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	total = RoundMoney(total)
	part := total.Div(decimal.NewFromInt(int64(n))).RoundDown(MoneyScale)
	parts := make([]decimal.Decimal, n)
	for i := range parts {
		parts[i] = part
	}
	remainder := total.Sub(part.Mul(decimal.NewFromInt(int64(n))))
	parts[0] = parts[0].Add(remainder)
	return parts
}

// Cents returns the amount rounded to cents as an integer number of cents
func Cents(d decimal.Decimal) int64 {
	return RoundMoney(d).Shift(MoneyScale).IntPart()
}
