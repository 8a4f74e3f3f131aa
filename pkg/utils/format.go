// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatUSD formats a dollar amount with thousands separators.
func FormatUSD(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := groupThousands(parts[0])

	result := "$" + intPart + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var sb strings.Builder
	lead := n % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}

// FormatPercent formats a percentage with an explicit sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatVolume formats a share volume compactly (K/M/B).
func FormatVolume(volume int64) string {
	v := float64(volume)
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%d", volume)
	}
}
