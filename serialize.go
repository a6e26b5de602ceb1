package nirum

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/creachadair/mds/mapset"
	"github.com/danderson/nirum/wire"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// timestampLayout is RFC 3339 with a numeric offset, never "Z".
const timestampLayout = "2006-01-02T15:04:05.999999999-07:00"

// Serialize returns the wire tree of v.
//
// Serialize traverses v recursively, using the following encodings:
//
// [Record] values encode as a JSON object holding the record's behind
// name under "_type", and each field under its behind name.
//
// [Variant] values encode like records, plus the variant's behind
// name under "_tag".
//
// [Boxed] values encode as their inner value, with no envelope.
//
// [Enum] values encode as the member's behind name.
//
// bool, integer, float and string values are returned unchanged.
//
// decimal.Decimal, uuid.UUID, civil.Date and time.Time values encode
// as JSON strings: canonical decimal text, lower-case hyphenated UUID,
// YYYY-MM-DD and RFC 3339 with an explicit offset respectively.
//
// []any values encode as JSON arrays. mapset.Set[any] values encode
// as JSON arrays whose elements are sorted by their JSON text, with
// duplicate texts written once.
//
// map[any]any values encode as a JSON array of {"key": K, "value": V}
// objects, sorted by the JSON text of the keys.
//
// Any other value is returned unchanged.
func Serialize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Record:
		rt := x.RecordType()
		return serializeFields(rt.Name, "", rt.Fields(), x.Field)
	case Variant:
		vt := x.VariantType()
		if vt.Union() == nil {
			return nil, fmt.Errorf("variant %s does not belong to a union", vt.Name)
		}
		return serializeFields(vt.Union().Name, vt.Tag, vt.Fields(), x.Field)
	case Boxed:
		return Serialize(x.Unbox())
	case Enum:
		et := x.EnumType()
		if !et.Members().HasFacial(x.Member()) {
			return nil, fmt.Errorf("enum %s has no member %q", et.Name, x.Member())
		}
		return et.Members().Behind(x.Member()), nil
	case decimal.Decimal:
		return x.String(), nil
	case uuid.UUID:
		return x.String(), nil
	case civil.Date:
		return x.String(), nil
	case time.Time:
		return x.Format(timestampLayout), nil
	case []any:
		ret := make([]any, 0, len(x))
		for _, e := range x {
			ev, err := Serialize(e)
			if err != nil {
				return nil, err
			}
			ret = append(ret, ev)
		}
		return ret, nil
	case mapset.Set[any]:
		return serializeSet(x)
	case map[any]any:
		return serializeMap(x)
	}
	return v, nil
}

func serializeFields(name, tag string, fields []Field, get func(string) any) (map[string]any, error) {
	ret := make(map[string]any, len(fields)+2)
	ret[wire.TypeKey] = name
	if tag != "" {
		ret[wire.TagKey] = tag
	}
	for _, f := range fields {
		fv, err := Serialize(get(f.Name))
		if err != nil {
			return nil, fmt.Errorf("serializing %s.%s: %w", name, f.Name, err)
		}
		ret[f.Behind] = fv
	}
	return ret, nil
}

// sortable is a serialized element along with its JSON text, which
// determines output order.
type sortable struct {
	key []byte
	val any
}

func sortByKey(es []sortable) {
	slices.SortStableFunc(es, func(a, b sortable) int {
		return bytes.Compare(a.key, b.key)
	})
}

func serializeSet(s mapset.Set[any]) ([]any, error) {
	es := make([]sortable, 0, len(s))
	for e := range s {
		ev, err := Serialize(e)
		if err != nil {
			return nil, err
		}
		key, err := wire.Marshal(ev)
		if err != nil {
			return nil, err
		}
		es = append(es, sortable{key, ev})
	}
	sortByKey(es)
	// Elements equal on the wire but not under Go equality, such as
	// decimals, are written once.
	es = slices.CompactFunc(es, func(a, b sortable) bool { return bytes.Equal(a.key, b.key) })
	ret := make([]any, 0, len(es))
	for _, e := range es {
		ret = append(ret, e.val)
	}
	return ret, nil
}

func serializeMap(m map[any]any) ([]any, error) {
	es := make([]sortable, 0, len(m))
	for k, v := range m {
		kv, err := Serialize(k)
		if err != nil {
			return nil, err
		}
		vv, err := Serialize(v)
		if err != nil {
			return nil, err
		}
		key, err := wire.Marshal(kv)
		if err != nil {
			return nil, err
		}
		es = append(es, sortable{key, map[string]any{"key": kv, "value": vv}})
	}
	sortByKey(es)
	ret := make([]any, 0, len(es))
	for _, e := range es {
		ret = append(ret, e.val)
	}
	return ret, nil
}

// Marshal returns the JSON text of v's wire tree.
func Marshal(v any) ([]byte, error) {
	tree, err := Serialize(v)
	if err != nil {
		return nil, err
	}
	return wire.Marshal(tree)
}
