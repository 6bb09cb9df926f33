// Package placeholder implements the template placeholder engine:
// locale-aware formatting, context resolution, and content processing.
package placeholder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// German month names, indexed by time.Month - 1.
var monthNames = [12]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// FormatDate renders the short German date form, e.g. "09.02.2024".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%02d.%02d.%04d", t.Day(), int(t.Month()), t.Year())
}

// FormatDateLong renders the long German date form, e.g. "09. Februar 2024".
func FormatDateLong(t time.Time) string {
	return fmt.Sprintf("%02d. %s %04d", t.Day(), MonthName(t), t.Year())
}

// MonthName returns the German name of the month, e.g. "Februar".
func MonthName(t time.Time) string {
	return monthNames[int(t.Month())-1]
}

// FormatCurrency renders an amount with two decimal places, decimal comma,
// period thousands grouping, and a euro suffix, e.g. "1.200,00 €".
func FormatCurrency(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	out := groupThousands(intPart) + "," + fracPart + " €"
	if neg {
		out = "-" + out
	}
	return out
}

// FormatNumber renders a plain numeric value with period thousands grouping
// and a decimal comma. Trailing zero fractions are dropped, so 56.0 renders
// as "56" and 56.5 as "56,5".
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	out := groupThousands(intPart)
	if hasFrac {
		out += "," + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// groupThousands inserts period separators into a digit string, e.g.
// "1234567" → "1.234.567".
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
