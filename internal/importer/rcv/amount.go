package rcv

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parsePesos parses a Chilean peso amount. Examples: "1.234.567" -> 1234567,
// "119000" -> 119000, "1.234,6" -> 1235.
func parsePesos(s string) (int64, error) {
	clean := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, err
	}

	return d.Round(0).IntPart(), nil
}
