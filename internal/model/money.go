package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money format placeholders recognized in shop-configured patterns.
// A pattern is a display template such as "${{amount}}" or
// "€{{amount_with_comma_separator}} EUR".
const (
	placeholderAmount         = "{{amount}}"
	placeholderNoDecimals     = "{{amount_no_decimals}}"
	placeholderCommaSeparator = "{{amount_with_comma_separator}}"
)

// FormatCents renders minor units with the fallback format: "$12.34".
// Used whenever the shop provides no money format pattern.
// Examples: 4500 → "$45.00", 5 → "$0.05", -1250 → "-$12.50"
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// FormatMoney renders minor units through a shop-configured pattern,
// substituting every recognized placeholder. A pattern without any
// recognized placeholder (or an empty one) falls back to FormatCents.
// Examples with pattern "${{amount}}": 4500 → "$45.00"
// Examples with pattern "{{amount_with_comma_separator}} kr": 123456789 → "1.234.567,89 kr"
func FormatMoney(cents int64, pattern string) string {
	if pattern == "" {
		return FormatCents(cents)
	}

	out := pattern
	replaced := false
	if strings.Contains(out, placeholderAmount) {
		out = strings.ReplaceAll(out, placeholderAmount, formatAmount(cents, ".", ""))
		replaced = true
	}
	if strings.Contains(out, placeholderNoDecimals) {
		out = strings.ReplaceAll(out, placeholderNoDecimals, formatNoDecimals(cents))
		replaced = true
	}
	if strings.Contains(out, placeholderCommaSeparator) {
		out = strings.ReplaceAll(out, placeholderCommaSeparator, formatAmount(cents, ",", "."))
		replaced = true
	}

	if !replaced {
		return FormatCents(cents)
	}
	return out
}

// Formatter curries a pattern into a formatting function. An empty
// pattern yields FormatCents, the no-op default for sessions whose host
// declared no money integration.
func Formatter(pattern string) func(int64) string {
	if pattern == "" {
		return FormatCents
	}
	return func(cents int64) string {
		return FormatMoney(cents, pattern)
	}
}

// formatAmount renders cents as major units with two decimals.
// decimalSep separates the decimals; thousandsSep (optional) groups the
// major digits in threes.
func formatAmount(cents int64, decimalSep, thousandsSep string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	major := strconv.FormatInt(cents/100, 10)
	if thousandsSep != "" {
		major = groupThousands(major, thousandsSep)
	}
	return fmt.Sprintf("%s%s%s%02d", sign, major, decimalSep, cents%100)
}

// formatNoDecimals rounds cents to whole major units, half away from zero.
func formatNoDecimals(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt((cents+50)/100, 10)
}

// groupThousands inserts sep between every group of three digits,
// counting from the right. Input must be bare digits.
func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ParseCents converts decimal string amounts (dollars) to cents (int64).
// Use for payloads that carry amounts in major currency units (e.g., "99.00" = $99.00).
// Handles edge cases: empty strings, missing decimals, large values.
// Examples: "99.00" → 9900, "1234.56" → 123456, "" → 0
func ParseCents(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// math.Round handles both positive and negative numbers correctly
	return int64(math.Round(f * 100))
}

// ParseMinorUnits converts string amounts already in minor units to int64.
// Use for payloads that carry amounts in minor currency units (e.g., "8900" = 8900 cents = $89.00).
// Examples: "8900" → 8900, "123456" → 123456, "" → 0
func ParseMinorUnits(s string) int64 {
	if s == "" {
		return 0
	}
	// Parse as float to handle potential decimal values, then truncate
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}
