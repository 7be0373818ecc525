// Package jsonb decodes SQLite's binary JSON storage format ("JSONB") into
// Go values. JSONB is a tag-length-value encoding: every element starts with
// a header naming its type and the exact byte length of its payload. Scalar
// payloads hold JSON or JSON5 literal *text* (numbers and strings are stored
// as literals, not as binary words); array and object payloads are flat
// concatenations of complete child elements with no separators or counts.
//
// The decoder is split into two layers. A [Value] is a single JSONB element
// positioned on a byte source; it implements the [Source] contract and
// decodes its payload on demand. The reflection [Decoder] walks a target Go
// type and pulls data out of any [Source], without ever touching the wire
// format itself.
// Basic use goes through [Unmarshal] or [UnmarshalNew]:
//
//	type Point struct {
//	    X int `json:"x"`
//	    Y int `json:"y"`
//	}
//
//	var p Point
//	err := jsonb.Unmarshal(raw, &p)
//
// Input may be an in-memory slice ([FromBytes]) or any io.Reader
// ([FromReader]). Decoding is a single left-to-right pass; after the one
// top-level element the input must be exhausted or decoding fails with
// [ErrTrailingData]. The encoder direction is out of scope.
package jsonb
