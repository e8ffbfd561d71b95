package table

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeNumber converts display-formatted numbers to plain decimals.
//   - Parentheses mean negative: (1,234) -> -1234
//   - Thousand separators, currency symbols and % are removed
//   - Anything that is not numeric after cleanup is returned unchanged
func NormalizeNumber(text string) string {
	original := text
	text = strings.TrimSpace(text)

	hasDigit := false
	for _, r := range text {
		if r >= '0' && r <= '9' {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return original
	}

	negative := false
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		negative = true
		text = text[1 : len(text)-1]
	}

	for _, sym := range []string{"₹", "$", "€", "£", "¥", ",", "%"} {
		text = strings.ReplaceAll(text, sym, "")
	}
	text = strings.TrimSpace(text)

	for _, r := range text {
		if !((r >= '0' && r <= '9') || r == '.' || r == '-') {
			return original
		}
	}

	if negative && !strings.HasPrefix(text, "-") {
		text = "-" + text
	}
	return text
}

// Decimal parses a cell as a decimal after normalization.
func Decimal(text string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(NormalizeNumber(text))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
