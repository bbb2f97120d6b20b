package currency

import (
	"strings"

	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	"github.com/shopspring/decimal"
)

// FormatAmount renders amount with the currency's symbol and exactly its
// decimal digits, grouping thousands with commas. The amount itself is not
// modified; rounding is half away from zero.
func FormatAmount(amount decimal.Decimal, c currencydomain.Currency) string {
	digits := c.DecimalDigits
	if digits < 0 {
		digits = 0
	}

	fixed := amount.Abs().StringFixed(int32(digits))
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if amount.Round(int32(digits)).IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(c.Symbol)
	b.WriteString(groupThousands(intPart))
	if digits > 0 {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ResolveCurrencySymbol looks code up in currencies, preferring org-scoped rows.
// Unknown codes render as the code itself.
func ResolveCurrencySymbol(currencies []currencydomain.Currency, code string) string {
	code = currencydomain.NormalizeCode(code)
	if code == "" {
		return ""
	}
	symbol := ""
	for _, c := range currencies {
		if c.Code != code {
			continue
		}
		if c.Scope == currencydomain.ScopeOrganization {
			return c.Symbol
		}
		if symbol == "" {
			symbol = c.Symbol
		}
	}
	if symbol == "" {
		return code
	}
	return symbol
}
