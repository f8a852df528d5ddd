package payslip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reSpaces    = regexp.MustCompile(`\s+`)
	reCanonical = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)
)

// NormalizeAmount converts a pt-BR money cell ("R$ 1.234,56") to a float.
// Cells already in canonical form ("1234.56") are parsed as-is. An empty
// cell is zero.
func NormalizeAmount(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, " ", " "))
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(s[1:])
	}
	s = reSpaces.ReplaceAllString(s, "")

	if s == "" || s == "-" {
		return 0, nil
	}

	if !reCanonical.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		v = -v
	}
	return v, nil
}
