// Package nirum is the runtime for code generated from nirum schemas.
//
// It converts between typed values and the nirum JSON wire format,
// validates values against their declared types, and carries typed
// remote procedure calls over HTTP.
//
// # Types and values
//
// Every value has a statically known [Type]. Primitive and container
// values use plain Go representations:
//
//	bool                  bool
//	int64                 int64 (int, int32 and smaller are accepted)
//	float64               float64 (float32 is accepted)
//	decimal               decimal.Decimal
//	text                  string
//	uuid                  uuid.UUID
//	date                  civil.Date
//	datetime              time.Time
//	[T], (T1, ..., Tn)    []any
//	{T}                   mapset.Set[any]
//	{K: V}                map[any]any
//	T?                    nil, or a value of T
//
// Set elements and map keys must be comparable Go values.
//
// Records, unions, boxed types and enumerations are generated Go types
// implementing [Record], [Variant], [Boxed] and [Enum]
// respectively. Their descriptors ([RecordType], [UnionType] and
// [VariantType], [BoxedType], [EnumType]) carry the wire names of the
// type and its fields, and a constructor used by [Deserialize].
//
// # Names
//
// Types, fields, variants, methods and parameters have a facial name,
// used in code, and a behind name, used on the wire. [NameMap]
// translates between the two.
//
// # Wire format
//
// Records encode as JSON objects with a "_type" key holding the
// record's behind name, and one key per field. Union values add a
// "_tag" key holding the variant's behind name. Boxed values encode
// as their inner value. Mappings encode as arrays of {"key", "value"}
// objects, since keys need not be strings. See [Serialize] and
// [Deserialize] for the full rules.
//
// # RPC
//
// A [Service] describes a set of methods. [Server] dispatches HTTP
// requests of the form
//
//	POST /?method=<behind name>
//	{"<param behind name>": <serialized arg>, ...}
//
// to handlers registered with [Server.Handle], and [Client] issues
// them. Failures are reported as JSON error envelopes:
//
//	{"_type": "error", "_tag": "bad_request", "message": "..."}
//
// except for a method's declared errors, which are sent as serialized
// values of the method's error union and reconstructed by the client.
package nirum
