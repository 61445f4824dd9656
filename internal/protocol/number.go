// Package protocol reads and writes the brace-delimited text form used to
// hand an evaluation request to a direct analysis and to receive its result.
//
// The format has no escaping. Structure is recovered by splitting the whole
// message on '{' and '}' and reading fragments at fixed positions, so any
// extra brace (for example inside client data) shifts every later field.
package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// FormatFloat writes v with the shortest digits that read back to the same
// value. Decimal exponents from -5 down and from 15 up use E notation with a
// signed two-digit exponent ("1E+20", "2.5E-07").
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		if math.Signbit(v) {
			return "-0"
		}
		return "0"
	}

	mant, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
	e, _ := strconv.Atoi(exp)
	if e >= 15 || e < -4 {
		sign := '+'
		if e < 0 {
			sign, e = '-', -e
		}
		return fmt.Sprintf("%sE%c%02d", mant, sign, e)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFloat reads a number written by FormatFloat. Surrounding whitespace is
// ignored.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, analysis.Wrap(analysis.ParseFailure, "ParseFloat", err)
	}
	return v, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool accepts the usual spellings of true and false in any case, and
// any number, which is true when nonzero.
func ParseBool(s string) (bool, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(v) {
		return false, analysis.Errorf(analysis.ParseFailure, "ParseBool", "not a boolean: %q", s)
	}
	return v != 0, nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, analysis.Wrap(analysis.ParseFailure, "ParseInt", err)
	}
	return v, nil
}
