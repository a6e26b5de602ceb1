// Package wire provides the JSON text layer of the nirum wire format.
//
// Wire trees are the values produced by [encoding/json]-style
// decoding into any: nil, bool, string, [json.Number], []any and
// map[string]any. Package nirum converts between typed values and wire
// trees; this package converts between wire trees and bytes, and
// defines the fixed parts of the protocol: envelope keys and the error
// envelope.
package wire
