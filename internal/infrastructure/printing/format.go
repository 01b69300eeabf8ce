package printing

import (
	"strings"

	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FormatBRL formats an amount as "R$ 1.234,56"
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + FormatDecimal(d, 2)
}

// FormatDecimal formats d with Brazilian separators and fixed places
func FormatDecimal(d decimal.Decimal, places int32) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	parts := strings.SplitN(d.StringFixed(places), ".", 2)
	intPart := parts[0]

	var sb strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(c)
	}
	if len(parts) == 2 {
		sb.WriteByte(',')
		sb.WriteString(parts[1])
	}
	return sign + sb.String()
}

// FormatQuantity prints whole quantities without decimals and fractional
// ones with three places ("2", "0,350").
func FormatQuantity(q decimal.Decimal) string {
	if q.Equal(q.Truncate(0)) {
		return FormatDecimal(q, 0)
	}
	return FormatDecimal(q, 3)
}

// FormatDocument masks a CPF or CNPJ; other values are returned as is
func FormatDocument(doc string) string {
	d := shared.OnlyDigits(doc)
	switch len(d) {
	case 11:
		return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
	case 14:
		return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
	}
	return doc
}

// GroupDigits splits a long number into blocks of four, as printed for access keys
func GroupDigits(s string) string {
	var parts []string
	for len(s) > 4 {
		parts = append(parts, s[:4])
		s = s[4:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
