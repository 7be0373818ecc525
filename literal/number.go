package literal

import (
	"strconv"
	"strings"
)

// ParseInt parses an integer literal into a signed value of bitSize bits.
func ParseInt(span []byte, flavor Flavor, bitSize int) (int64, error) {
	s := string(span)

	body, neg, base, err := splitInt(s, flavor)
	if err != nil {
		return 0, err
	}

	if neg {
		body = "-" + body
	}

	value, err := strconv.ParseInt(body, base, bitSize)
	if err != nil {
		// syntax was validated above, this can only be out of range
		return 0, numError("ParseInt", s, err)
	}

	return value, nil
}

// ParseUint parses an integer literal into an unsigned value of bitSize
// bits. A negative literal other than -0 is out of range, not a syntax
// error: it is valid integer text that no unsigned width can represent.
func ParseUint(span []byte, flavor Flavor, bitSize int) (uint64, error) {
	s := string(span)

	body, neg, base, err := splitInt(s, flavor)
	if err != nil {
		return 0, err
	}

	value, err := strconv.ParseUint(body, base, bitSize)
	if err != nil {
		return 0, numError("ParseUint", s, err)
	}

	if neg && value != 0 {
		return 0, rangeError("ParseUint", s)
	}

	return value, nil
}

// ParseFloat parses a real literal to bitSize (32 or 64) precision,
// rounding to the nearest representable value.
func ParseFloat(span []byte, flavor Flavor, bitSize int) (float64, error) {
	s := string(span)

	if err := checkFloatSyntax(s, flavor); err != nil {
		return 0, err
	}

	// strconv accepts a superset of both grammars (it is case-insensitive
	// about Infinity and NaN, for example), so syntax is checked first and
	// strconv only supplies the value and the range check.
	value, err := strconv.ParseFloat(s, bitSize)
	if err != nil {
		return 0, numError("ParseFloat", s, err)
	}

	return value, nil
}

// splitInt validates integer literal syntax and splits it into the digit
// body, the sign and the numeric base.
func splitInt(s string, flavor Flavor) (body string, neg bool, base int, err error) {
	rest := s

	switch {
	case strings.HasPrefix(rest, "-"):
		neg = true
		rest = rest[1:]
	case strings.HasPrefix(rest, "+") && flavor == JSON5:
		rest = rest[1:]
	}

	if flavor == JSON5 && (strings.HasPrefix(rest, "0x") || strings.HasPrefix(rest, "0X")) {
		digits := rest[2:]
		if !isHexDigits(digits) {
			return "", false, 0, syntaxError("ParseInt", s)
		}

		return digits, neg, 16, nil
	}

	if !isCanonicalDigits(rest) {
		return "", false, 0, syntaxError("ParseInt", s)
	}

	return rest, neg, 10, nil
}

// isCanonicalDigits accepts a non-empty run of decimal digits without a
// redundant leading zero. Both grammars forbid leading zeros.
func isCanonicalDigits(s string) bool {
	if s == "" {
		return false
	}

	for idx := 0; idx < len(s); idx++ {
		if s[idx] < '0' || s[idx] > '9' {
			return false
		}
	}

	return len(s) == 1 || s[0] != '0'
}

func isHexDigits(s string) bool {
	if s == "" {
		return false
	}

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		isHex := c >= '0' && c <= '9' ||
			c >= 'a' && c <= 'f' ||
			c >= 'A' && c <= 'F'
		if !isHex {
			return false
		}
	}

	return true
}

func checkFloatSyntax(s string, flavor Flavor) error {
	rest := s

	switch {
	case strings.HasPrefix(rest, "-"):
		rest = rest[1:]
	case strings.HasPrefix(rest, "+") && flavor == JSON5:
		rest = rest[1:]
	}

	if flavor == JSON5 && (rest == "Infinity" || rest == "NaN") {
		return nil
	}

	idx := 0

	intDigits := countDigits(rest, idx)
	idx += intDigits

	// leading zeros are forbidden in both grammars
	if intDigits > 1 && rest[0] == '0' {
		return syntaxError("ParseFloat", s)
	}

	fracDigits := 0
	hasDot := idx < len(rest) && rest[idx] == '.'
	if hasDot {
		idx++
		fracDigits = countDigits(rest, idx)
		idx += fracDigits
	}

	if intDigits == 0 && (flavor != JSON5 || fracDigits == 0) {
		// strict JSON requires an integer part, JSON5 allows ".5" but
		// not a bare dot
		return syntaxError("ParseFloat", s)
	}

	if hasDot && fracDigits == 0 && flavor != JSON5 {
		// "5." is JSON5 only
		return syntaxError("ParseFloat", s)
	}

	if idx < len(rest) && (rest[idx] == 'e' || rest[idx] == 'E') {
		idx++
		if idx < len(rest) && (rest[idx] == '+' || rest[idx] == '-') {
			idx++
		}

		expDigits := countDigits(rest, idx)
		if expDigits == 0 {
			return syntaxError("ParseFloat", s)
		}
		idx += expDigits
	}

	if idx != len(rest) {
		return syntaxError("ParseFloat", s)
	}

	return nil
}

func countDigits(s string, idx int) int {
	n := 0
	for idx+n < len(s) && s[idx+n] >= '0' && s[idx+n] <= '9' {
		n++
	}

	return n
}

func syntaxError(fn, num string) error {
	return &strconv.NumError{Func: fn, Num: num, Err: strconv.ErrSyntax}
}

func rangeError(fn, num string) error {
	return &strconv.NumError{Func: fn, Num: num, Err: strconv.ErrRange}
}

// numError rewrites a strconv error to carry the original literal text.
func numError(fn, num string, err error) error {
	if ne, ok := err.(*strconv.NumError); ok {
		return &strconv.NumError{Func: fn, Num: num, Err: ne.Err}
	}

	return err
}
