package table

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// nullTokens are the cell spellings read as missing values. They match the
// default missing-value markers of common dataframe CSV readers.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"null": {},
	"NULL": {},
	"None": {},
	"#N/A": {},
	"<NA>": {},
	"#NA":  {},
	"-nan": {},
}

// dateLayouts are tried in order when reading a date cell.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"20060102",
}

// IsNullToken reports whether a raw cell is a missing value.
func IsNullToken(raw string) bool {
	_, ok := nullTokens[strings.TrimSpace(raw)]
	return ok
}

// cleanNumber strips currency decoration: "$1,234.50" -> "1234.50", "(12)" -> "-12".
func cleanNumber(raw string) string {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Replace(s, "$", "", 1)
	s = strings.TrimSpace(s)
	if negative && s != "" && !strings.HasPrefix(s, "-") {
		s = "-" + s
	}
	return s
}

// ParseNumber reads a numeric cell, tolerating currency decoration.
// Null tokens, unparseable text, and non-finite values return ok == false.
func ParseNumber(raw string) (float64, bool) {
	if IsNullToken(raw) {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleanNumber(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDecimal reads a numeric cell as an exact decimal.
func ParseDecimal(raw string) (decimal.Decimal, bool) {
	if IsNullToken(raw) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleanNumber(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseInteger reads an integer count. Integral float spellings ("12.0") are accepted.
func ParseInteger(raw string) (int64, bool) {
	if IsNullToken(raw) {
		return 0, false
	}
	s := cleanNumber(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// ParseDate reads a date cell using the supported layouts.
func ParseDate(raw string) (time.Time, bool) {
	if IsNullToken(raw) {
		return time.Time{}, false
	}
	s := strings.TrimSpace(raw)
	// SEC filing dates are often read back as floats ("20240131.0").
	s = strings.TrimSuffix(s, ".0")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeKey maps an identifier cell to the representation used for
// semi-join membership, so that the same EIN read as text or as a number
// compares equal:
//
//	" 012-345678 " -> "12345678"
//	"12345678.0"   -> "12345678"
//
// Non-numeric identifiers are only trimmed. Null cells return ok == false.
func NormalizeKey(raw string) (string, bool) {
	if IsNullToken(raw) {
		return "", false
	}
	s := strings.TrimSpace(raw)

	digits := strings.ReplaceAll(s, "-", "")
	if intPart, frac, found := strings.Cut(digits, "."); found && allDigits(intPart) && strings.Trim(frac, "0") == "" {
		digits = intPart
	}
	if digits == "" || !allDigits(digits) {
		return s, true
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}
	return digits, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
