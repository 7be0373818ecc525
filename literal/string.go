package literal

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// Unescape decodes a string body (the content between the quotes, without
// the quotes themselves) into its value. The flavor selects the accepted
// escape set:
//
//   - JSON: the standard escapes \" \\ \/ \b \f \n \r \t and \uXXXX; raw
//     control characters are rejected.
//   - JSONLenient: as JSON, but raw control characters pass through.
//   - JSON5: additionally \' \v \0 \xHH, escaped line terminators (line
//     continuations) and identity escapes for other characters.
//
// An unpaired \uXXXX surrogate half decodes to U+FFFD, the same way
// encoding/json handles it.
func Unescape(span []byte, flavor Flavor) (string, error) {
	if bytes.IndexByte(span, '\\') == -1 {
		// common case: nothing to unescape
		if err := checkBody(span, flavor); err != nil {
			return "", err
		}

		return string(span), nil
	}

	var sb strings.Builder
	sb.Grow(len(span))

	idx := 0
	for idx < len(span) {
		c := span[idx]
		if c != '\\' {
			if c < 0x20 && flavor == JSON {
				return "", bodyError("raw control character 0x%02x in string body", c)
			}

			sb.WriteByte(c)
			idx++
			continue
		}

		idx++
		if idx >= len(span) {
			return "", bodyError("string body ends on a bare backslash")
		}

		e := span[idx]
		idx++

		switch e {
		case '"', '\\', '/':
			sb.WriteByte(e)
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'u':
			next, err := appendUnicodeEscape(&sb, span, idx)
			if err != nil {
				return "", err
			}
			idx = next

		default:
			if flavor != JSON5 {
				return "", bodyError("invalid escape \\%c in string body", e)
			}

			next, err := appendJSON5Escape(&sb, span, idx-1)
			if err != nil {
				return "", err
			}
			idx = next
		}
	}

	out := sb.String()
	if !utf8.ValidString(out) {
		return "", bodyError("string body is not valid utf-8")
	}

	return out, nil
}

// appendUnicodeEscape handles the four hex digits after "\u", combining
// surrogate pairs with a directly following second \uXXXX escape.
func appendUnicodeEscape(sb *strings.Builder, span []byte, idx int) (int, error) {
	r, ok := hex4(span[idx:])
	if !ok {
		return 0, bodyError("incomplete \\u escape in string body")
	}
	idx += 4

	if !utf16.IsSurrogate(r) {
		sb.WriteRune(r)
		return idx, nil
	}

	if idx+6 <= len(span) && span[idx] == '\\' && span[idx+1] == 'u' {
		if r2, ok := hex4(span[idx+2:]); ok {
			if combined := utf16.DecodeRune(r, r2); combined != unicode.ReplacementChar {
				sb.WriteRune(combined)
				return idx + 6, nil
			}
		}
	}

	sb.WriteRune(unicode.ReplacementChar)
	return idx, nil
}

// appendJSON5Escape handles the escapes beyond the JSON set. idx points at
// the escaped character, directly behind the backslash.
func appendJSON5Escape(sb *strings.Builder, span []byte, idx int) (int, error) {
	e := span[idx]
	idx++

	switch {
	case e == '\'':
		sb.WriteByte('\'')

	case e == 'v':
		sb.WriteByte('\v')

	case e == '0':
		if idx < len(span) && span[idx] >= '0' && span[idx] <= '9' {
			return 0, bodyError("\\0 followed by a digit in string body")
		}
		sb.WriteByte(0)

	case e == 'x':
		if idx+2 > len(span) {
			return 0, bodyError("incomplete \\x escape in string body")
		}
		hi, okHi := hexDigit(span[idx])
		lo, okLo := hexDigit(span[idx+1])
		if !okHi || !okLo {
			return 0, bodyError("incomplete \\x escape in string body")
		}
		sb.WriteRune(rune(hi<<4 | lo))
		idx += 2

	case e == '\n':
		// line continuation, contributes nothing

	case e == '\r':
		// \r\n counts as a single line terminator
		if idx < len(span) && span[idx] == '\n' {
			idx++
		}

	case e == 0xe2 && idx+2 <= len(span) && span[idx] == 0x80 && (span[idx+1] == 0xa8 || span[idx+1] == 0xa9):
		// U+2028 and U+2029 are line terminators as well
		idx += 2

	case e >= '1' && e <= '9':
		return 0, bodyError("invalid escape \\%c in string body", e)

	default:
		// identity escape: the character stands for itself. Multi-byte
		// characters work out because their continuation bytes are copied
		// verbatim by the main loop.
		sb.WriteByte(e)
	}

	return idx, nil
}

// checkBody validates an escape-free string body.
func checkBody(span []byte, flavor Flavor) error {
	if flavor == JSON {
		for _, c := range span {
			if c < 0x20 {
				return bodyError("raw control character 0x%02x in string body", c)
			}
		}
	}

	if !utf8.Valid(span) {
		return bodyError("string body is not valid utf-8")
	}

	return nil
}

func hex4(span []byte) (rune, bool) {
	if len(span) < 4 {
		return 0, false
	}

	var r rune
	for _, c := range span[:4] {
		d, ok := hexDigit(c)
		if !ok {
			return 0, false
		}
		r = r<<4 | rune(d)
	}

	return r, true
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// bodyError reports malformed string body text as a syntax error, in line
// with the numeric parsers.
func bodyError(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, strconv.ErrSyntax)...)
}
