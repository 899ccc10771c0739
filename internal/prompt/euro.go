package prompt

import (
	"fmt"
	"strings"
)

// FormatEuro renders an amount in the Italian convention: dot as
// thousands separator, comma as decimal separator, two decimal digits,
// euro sign after the number with one space. 1234.5 -> "1.234,50 €".
func FormatEuro(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, decPart, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}

	out := b.String() + "," + decPart + " €"
	if neg {
		out = "-" + out
	}
	return out
}
