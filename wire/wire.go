package wire

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Envelope keys.
const (
	// TypeKey holds the behind name of a record or union.
	TypeKey = "_type"
	// TagKey holds the behind name of a union variant.
	TagKey = "_tag"
)

// ContentType is the media type of every request and response body.
const ContentType = "application/json"

// Number is a JSON number kept in its textual form.
type Number = json.Number

// Marshal returns the JSON text of a wire tree.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal parses JSON text into a wire tree. Numbers are returned as
// [Number], so that integers beyond float64 precision survive. The text
// must hold exactly one JSON value, optionally surrounded by
// whitespace.
func Unmarshal(bs []byte) (any, error) {
	// json.Unmarshal rejects data after the top-level value, which the
	// streaming decoder below would silently leave unread.
	var discard any
	if err := json.Unmarshal(bs, &discard); err != nil {
		return nil, fmt.Errorf("invalid JSON text: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(bs))
	dec.UseNumber()
	var ret any
	if err := dec.Decode(&ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// KindOf returns the JSON kind of a wire value: "null", "bool",
// "number", "string", "array" or "object".
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case Number, float64, float32, int, int64, int32:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "unknown"
}
