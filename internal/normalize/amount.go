package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	unitRe   = regexp.MustCompile(`\(?\s*단위\s*:\s*([^)]+)\)?`)
)

// ParseAmount reads a statement cell. Parenthesised and △-prefixed amounts
// are negative; dashes and blanks are absent.
func ParseAmount(cell string) (decimal.Decimal, bool) {
	t := Space(cell)
	switch t {
	case "", "-", "—", "–":
		return decimal.Zero, false
	}

	neg := false
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		neg = true
		t = t[1 : len(t)-1]
	}
	if strings.HasPrefix(t, "△") || strings.HasPrefix(t, "▲") {
		neg = true
		t = strings.TrimLeft(t, "△▲ ")
	}
	t = strings.ReplaceAll(t, ",", "")
	t = strings.ReplaceAll(t, " ", "")
	if !amountRe.MatchString(t) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// UnitMultiplier reads a "(단위 : 백만원)" style unit label. It returns the
// inner unit text and the multiplier to won; unknown units map to 1.
func UnitMultiplier(text string) (string, int64) {
	inner := strings.TrimSpace(text)
	if m := unitRe.FindStringSubmatch(text); m != nil {
		inner = strings.TrimSpace(m[1])
	}
	switch {
	case strings.Contains(inner, "백만"):
		return inner, 1_000_000
	case strings.Contains(inner, "천"):
		return inner, 1_000
	default:
		return inner, 1
	}
}
