// Package normalizer converts heterogeneous scraped price, currency, and
// area representations into canonical numeric units.
package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	// currencySymbols matches symbols stripped before numeric parsing.
	currencySymbols = regexp.MustCompile(`[€$£¥₹₽₴₪₩₦₡₨]`)
	// nonNumeric removes everything but digits, separators, and signs.
	nonNumeric = regexp.MustCompile(`[^\d.,\-]`)
	// numberPattern captures the first numeric token in free text.
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	// kSuffix matches shorthand like "500k".
	kSuffix = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*k\b`)
)

// currencyMap maps symbols and locale spellings to 3-letter codes.
// Longer keys are checked first so "EUROS" wins over "EUR" substrings.
var currencyMap = map[string]string{
	"€":       "EUR",
	"EUR":     "EUR",
	"EURO":    "EUR",
	"EUROS":   "EUR",
	"$":       "USD",
	"US$":     "USD",
	"USD":     "USD",
	"DOLLAR":  "USD",
	"DOLLARS": "USD",
	"£":       "GBP",
	"GBP":     "GBP",
	"POUND":   "GBP",
	"POUNDS":  "GBP",
	"CHF":     "CHF",
	"FRANC":   "CHF",
	"FRANCS":  "CHF",
	"C$":      "CAD",
	"CA$":     "CAD",
	"CAD":     "CAD",
}

// areaFactors are conversion factors to square meters, keyed by unit
// spellings found in scraped text.
var areaFactors = []struct {
	unit   string
	factor float64
}{
	{"square meters", 1.0},
	{"square metres", 1.0},
	{"square feet", 0.092903},
	{"square foot", 0.092903},
	{"hectares", 10000.0},
	{"hectare", 10000.0},
	{"acres", 4046.86},
	{"acre", 4046.86},
	{"sq ft", 0.092903},
	{"sqft", 0.092903},
	{"ft²", 0.092903},
	{"ft2", 0.092903},
	{"sqm", 1.0},
	{"m²", 1.0},
	{"m2", 1.0},
	{"ha", 10000.0},
}

// ParsePrice extracts a numeric price from a free-text price string.
// It handles currency symbols, thousand separators in both US and
// European conventions, embedded spaces, and "500k" shorthand. A string
// with no parseable number yields nil, never an error.
func ParsePrice(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	// Expand shorthand before separators are stripped.
	s = kSuffix.ReplaceAllStringFunc(s, func(m string) string {
		sub := kSuffix.FindStringSubmatch(m)

		n, err := strconv.ParseFloat(sub[1], 64)
		if err != nil {
			return m
		}

		return strconv.FormatFloat(n*1000, 'f', -1, 64)
	})

	s = currencySymbols.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = nonNumeric.ReplaceAllString(s, "")

	if s == "" || s == "-" {
		return nil
	}

	s = resolveSeparators(s)

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}

	return &val
}

// resolveSeparators rewrites a digit string with mixed comma/dot
// separators into strconv-parseable form.
func resolveSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// European format: 1.234.567,89
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// US format: 1,234,567.89
			s = thousandsCommaReplace(s)
		}
	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			// Decimal separator: 1234,56
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// Thousands separator: 1,234,567
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasDot:
		parts := strings.Split(s, ".")
		if len(parts) > 2 || (len(parts) == 2 && len(parts[1]) > 2) {
			// European thousands: 1.234.567 or 1.234
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	return s
}

// thousandsCommaReplace removes commas followed by exactly three digits.
// Go regexp has no lookahead, so this walks the string directly.
func thousandsCommaReplace(s string) string {
	var sb strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			digits := 0
			for j := i + 1; j < len(s) && s[j] >= '0' && s[j] <= '9'; j++ {
				digits++
			}

			if digits >= 3 {
				continue
			}
		}

		sb.WriteByte(s[i])
	}

	return sb.String()
}

// NormalizeCurrency maps a raw currency string to a 3-letter code.
// Unrecognized input defaults to fallback.
func NormalizeCurrency(raw, fallback string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return strings.ToUpper(fallback)
	}

	if code, ok := currencyMap[s]; ok {
		return code
	}

	// Longest-key substring match so "EUROS" is not shadowed by "EUR".
	best := ""
	bestLen := 0

	for key, code := range currencyMap {
		if strings.Contains(s, key) && len(key) > bestLen {
			best = code
			bestLen = len(key)
		}
	}

	if best != "" {
		return best
	}

	return strings.ToUpper(fallback)
}

// ToSquareMeters converts an area value in the given unit to square
// meters, rounded to two decimals. An empty or unrecognized unit is
// assumed to already be square meters.
func ToSquareMeters(value float64, unit string) float64 {
	u := strings.ToLower(strings.TrimSpace(unit))

	for _, conv := range areaFactors {
		if strings.Contains(u, conv.unit) {
			return round2(value * conv.factor)
		}
	}

	return round2(value)
}

// ParseArea extracts a numeric area from free text like "900 sq ft" and
// converts it to square meters. The unit argument takes precedence over
// any unit embedded in the text. Unparseable input yields nil.
func ParseArea(raw, unit string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	match := numberPattern.FindString(s)
	if match == "" {
		return nil
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return nil
	}

	if unit == "" {
		// Whatever follows the number may carry the unit.
		unit = s
	}

	sqm := ToSquareMeters(value, unit)

	return &sqm
}

// NormalizeText strips leading/trailing whitespace and collapses
// internal whitespace runs to single spaces.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TitleCase capitalizes the first letter of each word, used for
// address normalization.
func TitleCase(s string) string {
	var sb strings.Builder

	prev := ' '

	for _, r := range s {
		if unicode.IsSpace(prev) || prev == '-' {
			sb.WriteRune(unicode.ToUpper(r))
		} else {
			sb.WriteRune(unicode.ToLower(r))
		}

		prev = r
	}

	return sb.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
