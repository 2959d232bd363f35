// Package numparse turns the human formatted counters that social platforms render
// ("1.5M", "12,3K", "1.234.567", "2,1 mil") into integers.
package numparse

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberRegex = regexp.MustCompile(`\d[\d.,]*`)

// suffix words seen after a number, both the short english forms and the long
// forms used by portuguese/spanish locales.
var suffixWords = map[string]float64{
	"k":        1e3,
	"mil":      1e3,
	"thousand": 1e3,
	"m":        1e6,
	"mi":       1e6,
	"mn":       1e6,
	"mln":      1e6,
	"million":  1e6,
	"millones": 1e6,
	"milhões":  1e6,
	"b":        1e9,
	"bi":       1e9,
	"bn":       1e9,
	"billion":  1e9,
}

// suffixPriority is applied when the word after the number is a run of bare
// suffix letters like "MK", the first letter found in this order wins.
var suffixPriority = []struct {
	letter rune
	mult   float64
}{
	{'b', 1e9},
	{'m', 1e6},
	{'k', 1e3},
}

// ParseCount extracts the first number in s and scales it by its magnitude suffix.
// It returns false when s contains no digits. It never panics.
func ParseCount(s string) (int64, bool) {
	loc := numberRegex.FindStringIndex(s)
	if loc == nil {
		return 0, false
	}
	numeric := strings.TrimRight(s[loc[0]:loc[1]], ".,")
	mult, hasSuffix := readSuffix(s[loc[1]:])

	value, ok := parseDecimal(numeric, hasSuffix)
	if !ok {
		return 0, false
	}
	return toCount(value * mult)
}

// toCount rounds f to a count, rejecting values no count can take.
func toCount(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	rounded := math.Round(f)
	// float64(math.MaxInt64) is 2^63, which int64 cannot hold
	if rounded >= float64(math.MaxInt64) {
		return 0, false
	}
	return int64(rounded), true
}

func readSuffix(rest string) (float64, bool) {
	rest = strings.TrimLeft(rest, " \t\u00a0")
	end := 0
	for i, r := range rest {
		if !isLetter(r) {
			break
		}
		end = i + len(string(r))
	}
	word := strings.ToLower(rest[:end])
	if word == "" {
		return 1, false
	}
	if mult, ok := suffixWords[word]; ok {
		return mult, true
	}
	if strings.Trim(word, "kmb") != "" {
		return 1, false
	}
	for _, p := range suffixPriority {
		if strings.ContainsRune(word, p.letter) {
			return p.mult, true
		}
	}
	return 1, false
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		r == 'õ' || r == 'Õ'
}

// parseDecimal decides which separator (if any) is the decimal point.
//   - both '.' and ',' present: the last one is decimal, the other groups thousands
//   - one kind repeated: thousands grouping
//   - one separator once: decimal when a magnitude suffix follows, otherwise
//     thousands grouping iff exactly three digits follow it
func parseDecimal(numeric string, hasSuffix bool) (float64, bool) {
	dots := strings.Count(numeric, ".")
	commas := strings.Count(numeric, ",")

	var normalized string
	switch {
	case dots > 0 && commas > 0:
		lastDot := strings.LastIndex(numeric, ".")
		lastComma := strings.LastIndex(numeric, ",")
		if lastDot > lastComma {
			normalized = strings.ReplaceAll(numeric, ",", "")
		} else {
			normalized = strings.ReplaceAll(numeric, ".", "")
			normalized = strings.ReplaceAll(normalized, ",", ".")
		}
		if strings.Count(normalized, ".") > 1 {
			return 0, false
		}
	case dots+commas == 0:
		normalized = numeric
	case dots > 1 || commas > 1:
		normalized = strings.NewReplacer(".", "", ",", "").Replace(numeric)
	default:
		sep := ","
		if dots == 1 {
			sep = "."
		}
		idx := strings.Index(numeric, sep)
		fraction := numeric[idx+1:]
		if !hasSuffix && len(fraction) == 3 {
			normalized = strings.Replace(numeric, sep, "", 1)
		} else {
			normalized = strings.Replace(numeric, sep, ".", 1)
		}
	}

	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseAny accepts the shapes vendor JSON uses for counters: numbers, numeric
// strings, and formatted strings.
func ParseAny(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return toCount(t)
	case float32:
		return ParseAny(float64(t))
	case int:
		return ParseAny(int64(t))
	case int64:
		if t < 0 {
			return 0, false
		}
		return t, true
	case string:
		return ParseCount(t)
	case json.Number:
		return ParseCount(t.String())
	case bool:
		return 0, false
	default:
		return 0, false
	}
}
