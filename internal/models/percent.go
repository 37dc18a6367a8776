// Package models defines data structures and domain types.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PercentScale is the number of Percent units in one whole percent point.
// Percent values carry four fractional digits.
const PercentScale = 10000

// Percent is a fixed-point percentage with four fractional digits, stored as
// an integer count of 1/10000 units. 96.5 is Percent(965000).
type Percent int64

// ErrInvalidPercent is returned when a string is not a plain decimal number.
var ErrInvalidPercent = errors.New("invalid percent value")

// ParsePercent parses a plain decimal number such as "97", "96.5" or "95.125".
// Digits past the fourth fractional place are rounded half away from zero.
func ParsePercent(s string) (Percent, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPercent
	}

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" || !isDigits(intPart) || !isDigits(fracPart) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPercent, s)
	}
	// Keeps intPart*PercentScale well inside int64.
	if len(intPart) > 14 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidPercent, s)
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPercent, s)
	}

	var frac int64
	for i := range 4 {
		frac *= 10
		if i < len(fracPart) {
			frac += int64(fracPart[i] - '0')
		}
	}

	v := whole*PercentScale + frac
	if len(fracPart) > 4 && fracPart[4] >= '5' {
		v++
	}
	if negative {
		v = -v
	}
	return Percent(v), nil
}

// MustParsePercent is like ParsePercent but panics on error. Intended for
// constants and tests.
func MustParsePercent(s string) Percent {
	p, err := ParsePercent(s)
	if err != nil {
		panic(err)
	}
	return p
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// StringFixed formats the value with the given number of decimals (0-4),
// rounding half away from zero.
func (p Percent) StringFixed(decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if decimals > 4 {
		decimals = 4
	}

	v := int64(p)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	div := int64(1)
	for range 4 - decimals {
		div *= 10
	}
	v = (v + div/2) / div

	if decimals == 0 {
		return fmt.Sprintf("%s%d", sign, v)
	}

	unit := int64(1)
	for range decimals {
		unit *= 10
	}
	return fmt.Sprintf("%s%d.%0*d", sign, v/unit, decimals, v%unit)
}

// String returns the full four-decimal representation.
func (p Percent) String() string {
	return p.StringFixed(4)
}

// Float64 returns the value as a float, for charts and display only.
func (p Percent) Float64() float64 {
	return float64(p) / PercentScale
}
