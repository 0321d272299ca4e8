// Package format holds the pure presentation adapters consumed by the
// render layer.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"adpulse/internal/currency"
)

// Compact renders a number the way the dashboard headline cards do:
// millions as "1.2M", thousands as "3.4K", anything smaller as an
// integer with thousands separators. The thresholds compare the signed
// value, so negatives always take the separated-integer form.
func Compact(n float64) string {
	switch {
	case n >= 1e6:
		return fmt.Sprintf("%.1fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.1fK", n/1e3)
	default:
		return groupThousands(int64(math.Round(n)))
	}
}

// Currency renders an amount with the symbol for its ISO code, falling
// back to $ for unknown codes.
func Currency(amount float64, code string) string {
	return currency.Symbol(code) + Compact(amount)
}

// Percent renders "{n:.1f}%". NaN or zero-denominator inputs render as
// "0%".
func Percent(n float64) string {
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", n)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
