// Package literal parses JSON and JSON5 scalar literals out of bounded
// byte spans. It backs the jsonb element decoder: JSONB stores numbers and
// string bodies as literal text, so decoding a scalar element means parsing
// exactly the payload span in the grammar the element type announces.
//
// Malformed literal text reports [strconv.ErrSyntax], numeric values that
// do not fit the requested bit size report [strconv.ErrRange]. The numeric
// parsers wrap both in a [strconv.NumError] carrying the offending text.
package literal

// Flavor selects the literal grammar.
type Flavor int

const (
	// JSON is the strict grammar of RFC 8259. String bodies permit only
	// the standard escape sequences and no raw control characters.
	JSON Flavor = iota

	// JSONLenient uses the JSON grammar but tolerates raw control
	// characters inside string bodies.
	JSONLenient

	// JSON5 is the JSON5 superset: hexadecimal integers, a leading '+',
	// Infinity and NaN, numbers starting or ending on a decimal point,
	// and the extended escape forms in string bodies.
	JSON5
)
