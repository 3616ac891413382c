package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
}

// Format renders an amount with two decimals, "." thousands and "," decimal
// separators, e.g. "1.234,50 €". Unknown currencies get the ISO code.
func Format(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	negative := amount.IsNegative()
	fixed := amount.Abs().StringFixed(2)

	intPart, fracPart := fixed, "00"
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	result := addThousandsSeparator(intPart, ".") + "," + fracPart
	if negative {
		result = "-" + result
	}

	symbol, ok := symbols[code]
	if !ok {
		symbol = code
	}
	if symbol == "" {
		return result
	}
	return result + " " + symbol
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep[0]
			j--
		}
	}

	return string(result)
}
