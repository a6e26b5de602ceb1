package nirum

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/creachadair/mds/mapset"
	"github.com/danderson/nirum/wire"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deserialize converts the wire tree w into a value of type t.
//
// Generally, Deserialize applies the inverse of the rules used by
// [Serialize]. Records and unions must carry a "_type" equal to the
// declared behind name, and unions a "_tag" naming one of their
// variants. Declared fields missing from the wire are an error unless
// they are optional. Undeclared keys are passed to the record's
// constructor under their wire names, except those that collide with
// a declared field's facial name, which are dropped: the value decoded
// from the field's behind name always wins.
//
// Text values must be JSON strings; no other kind is coerced.
// Integers must be JSON numbers without a fraction. Timestamps are
// parsed as RFC 3339, or as ISO 8601 without an offset, in which case
// they are taken to be in UTC. Dates are parsed from YYYY-MM-DD, or
// from a timestamp whose time of day is discarded.
//
// Malformed wire values cause Deserialize to return a [WireError].
func Deserialize(t Type, w any) (any, error) {
	switch tt := t.(type) {
	case primitive:
		return deserializePrimitive(tt, w)
	case *OptionalType:
		return deserializeOptional(tt, w)
	case *ListType:
		vs, err := wireArray(t, w)
		if err != nil {
			return nil, err
		}
		if tt.Elem == Any {
			return vs, nil
		}
		ret := make([]any, 0, len(vs))
		for i, e := range vs {
			ev, err := Deserialize(tt.Elem, e)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", t, i, err)
			}
			ret = append(ret, ev)
		}
		return ret, nil
	case *SetType:
		vs, err := wireArray(t, w)
		if err != nil {
			return nil, err
		}
		ret := mapset.New[any]()
		seen := make(map[string]bool, len(vs))
		for i, e := range vs {
			ev, err := Deserialize(tt.Elem, e)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", t, i, err)
			}
			if !hashable(ev) {
				return nil, typeErr("", tt.Elem, ev)
			}
			key, err := identity(ev)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", t, i, err)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			ret.Add(ev)
		}
		return ret, nil
	case *MapType:
		return deserializeMap(tt, w)
	case *TupleType:
		vs, err := wireArray(t, w)
		if err != nil {
			return nil, err
		}
		if tt.Elems == nil {
			return vs, nil
		}
		if len(vs) != len(tt.Elems) {
			return nil, wireErr(t, "expected %d elements, got %d", len(tt.Elems), len(vs))
		}
		ret := make([]any, len(vs))
		for i, e := range vs {
			ev, err := Deserialize(tt.Elems[i], e)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", t, i, err)
			}
			ret[i] = ev
		}
		return ret, nil
	case *BoxedType:
		inner, err := Deserialize(tt.Inner, w)
		if err != nil {
			return nil, err
		}
		return tt.New(inner)
	case *RecordType:
		obj, err := wireEnvelope(t, w, tt.Name, "")
		if err != nil {
			return nil, err
		}
		fields, err := deserializeFields(t, &tt.fieldSet, obj)
		if err != nil {
			return nil, err
		}
		return tt.New(fields)
	case *UnionType:
		obj, ok := w.(map[string]any)
		if !ok {
			return nil, wireErr(t, "expected object, got %s", wire.KindOf(w))
		}
		tw, hasTag := obj[wire.TagKey]
		if !hasTag {
			if _, typeOK := obj[wire.TypeKey]; !typeOK {
				return nil, wireErr(t, `"_type" and "_tag" fields are missing`)
			}
			return nil, wireErr(t, `"_tag" field is missing`)
		}
		tag, ok := tw.(string)
		if !ok {
			return nil, wireErr(t, `expected "_tag" to be a string, got %s`, wire.KindOf(tw))
		}
		vt, ok := tt.Variant(tag)
		if !ok {
			return nil, wireErr(t, "%q is not a known tag", tag)
		}
		return deserializeVariant(vt, obj)
	case *VariantType:
		if tt.Union() == nil {
			return nil, fmt.Errorf("variant %s does not belong to a union", tt.Name)
		}
		return deserializeVariant(tt, w)
	case *EnumType:
		s, ok := w.(string)
		if !ok {
			return nil, wireErr(t, "expected string, got %s", wire.KindOf(w))
		}
		if !tt.Members().HasBehind(s) {
			return nil, wireErr(t, "%q is not a member", s)
		}
		return tt.New(tt.Members().Facial(s))
	}

	ts := "<nil>"
	if t != nil {
		ts = t.String()
	}
	return nil, TypeError{Expected: ts, Actual: fmt.Sprintf("%T value %v", w, w)}
}

// Unmarshal parses JSON text and deserializes it as type t.
func Unmarshal(t Type, bs []byte) (any, error) {
	w, err := wire.Unmarshal(bs)
	if err != nil {
		return nil, WireError{t.String(), err}
	}
	return Deserialize(t, w)
}

// DeserializeAs is like [Deserialize], but returns the value as a T.
// A null value returns the zero T.
func DeserializeAs[T any](t Type, w any) (T, error) {
	var zero T
	v, err := Deserialize(t, w)
	if err != nil || v == nil {
		return zero, err
	}
	ret, ok := v.(T)
	if !ok {
		return zero, TypeError{Expected: fmt.Sprintf("%T", zero), Actual: valueName(v)}
	}
	return ret, nil
}

func wireArray(t Type, w any) ([]any, error) {
	vs, ok := w.([]any)
	if !ok {
		return nil, wireErr(t, "expected array, got %s", wire.KindOf(w))
	}
	return vs, nil
}

// wireEnvelope checks that w is an object carrying the given "_type"
// and, if tag is not empty, "_tag".
func wireEnvelope(t Type, w any, name, tag string) (map[string]any, error) {
	obj, ok := w.(map[string]any)
	if !ok {
		return nil, wireErr(t, "expected object, got %s", wire.KindOf(w))
	}
	gotName, hasName := obj[wire.TypeKey]
	gotTag, hasTag := obj[wire.TagKey]
	switch {
	case tag != "" && !hasName && !hasTag:
		return nil, wireErr(t, `"_type" and "_tag" fields are missing`)
	case !hasName:
		return nil, wireErr(t, `"_type" field is missing`)
	case tag != "" && !hasTag:
		return nil, wireErr(t, `"_tag" field is missing`)
	}
	if gotName != name {
		return nil, wireErr(t, `expected "_type" of %q, got %#v`, name, gotName)
	}
	if tag != "" && gotTag != tag {
		return nil, wireErr(t, `expected "_tag" of %q, got %#v`, tag, gotTag)
	}
	return obj, nil
}

func deserializeVariant(vt *VariantType, w any) (any, error) {
	obj, err := wireEnvelope(vt, w, vt.Union().Name, vt.Tag)
	if err != nil {
		return nil, err
	}
	fields, err := deserializeFields(vt, &vt.fieldSet, obj)
	if err != nil {
		return nil, err
	}
	return vt.New(fields)
}

// deserializeFields maps the behind-named keys of obj to facial
// names, deserializing declared fields according to their types.
func deserializeFields(t Type, fs *fieldSet, obj map[string]any) (map[string]any, error) {
	ret := make(map[string]any, len(obj))
	for _, f := range fs.Fields() {
		fw, ok := obj[f.Behind]
		if !ok {
			if _, optional := f.Type.(*OptionalType); optional {
				ret[f.Name] = nil
				continue
			}
			return nil, wireErr(t, "field %q is missing", f.Behind)
		}
		fv, err := Deserialize(f.Type, fw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t, f.Behind, err)
		}
		ret[f.Name] = fv
	}
	names := fs.FieldNames()
	for k, v := range obj {
		if k == wire.TypeKey || k == wire.TagKey || names.HasBehind(k) || names.HasFacial(k) {
			continue
		}
		ret[k] = v
	}
	return ret, nil
}

func deserializeOptional(t *OptionalType, w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	var errs []error
	for _, alt := range t.Alts {
		v, err := Deserialize(alt, w)
		if err == nil {
			return v, nil
		}
		var we WireError
		if !errors.As(err, &we) {
			return nil, err
		}
		errs = append(errs, err)
	}
	return nil, WireError{t.String(), errors.Join(errs...)}
}

func deserializeMap(t *MapType, w any) (any, error) {
	vs, err := wireArray(t, w)
	if err != nil {
		return nil, err
	}
	ret := make(map[any]any, len(vs))
	keys := make(map[string]any, len(vs))
	for i, e := range vs {
		pair, ok := e.(map[string]any)
		if !ok {
			return nil, wireErr(t, `entry %d: expected {"key", "value"} object, got %s`, i, wire.KindOf(e))
		}
		kw, hasKey := pair["key"]
		vw, hasVal := pair["value"]
		if !hasKey || !hasVal || len(pair) != 2 {
			return nil, wireErr(t, `entry %d: expected exactly "key" and "value" fields`, i)
		}
		k, err := Deserialize(t.Key, kw)
		if err != nil {
			return nil, fmt.Errorf("%s key %d: %w", t, i, err)
		}
		if !hashable(k) {
			return nil, typeErr("", t.Key, k)
		}
		v, err := Deserialize(t.Value, vw)
		if err != nil {
			return nil, fmt.Errorf("%s value %d: %w", t, i, err)
		}
		id, err := identity(k)
		if err != nil {
			return nil, fmt.Errorf("%s key %d: %w", t, i, err)
		}
		if prev, dup := keys[id]; dup {
			k = prev
		}
		keys[id] = k
		ret[k] = v
	}
	return ret, nil
}

// identity returns the JSON text of v's serialized form. Set elements
// and map keys with the same identity are the same element, even when
// Go equality says otherwise, as for decimals.
func identity(v any) (string, error) {
	bs, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

func deserializePrimitive(t primitive, w any) (any, error) {
	switch Kind(t) {
	case KindAny:
		return w, nil
	case KindBool:
		if b, ok := w.(bool); ok {
			return b, nil
		}
	case KindInt:
		return wireInt(t, w)
	case KindFloat:
		return wireFloat(t, w)
	case KindText:
		if s, ok := w.(string); ok {
			return s, nil
		}
	case KindDecimal:
		var (
			d   decimal.Decimal
			err error
		)
		switch x := w.(type) {
		case string:
			d, err = decimal.NewFromString(x)
		case wire.Number:
			d, err = decimal.NewFromString(x.String())
		case float64:
			d = decimal.NewFromFloat(x)
		default:
			i, ok := toInt64(w)
			if !ok {
				return nil, wireErr(t, "expected string or number, got %s", wire.KindOf(w))
			}
			d = decimal.NewFromInt(i)
		}
		if err != nil {
			return nil, WireError{t.String(), err}
		}
		return d, nil
	case KindUUID:
		if s, ok := w.(string); ok {
			u, err := uuid.Parse(s)
			if err != nil {
				return nil, WireError{t.String(), err}
			}
			return u, nil
		}
	case KindDate:
		if s, ok := w.(string); ok {
			return parseDate(t, s)
		}
	case KindTimestamp:
		if s, ok := w.(string); ok {
			return parseTimestamp(t, s)
		}
	}
	return nil, wireErr(t, "unexpected %s", wire.KindOf(w))
}

func wireInt(t Type, w any) (int64, error) {
	switch x := w.(type) {
	case wire.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, wireErr(t, "%s is not an integer", x)
		}
		return i, nil
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, wireErr(t, "%v is not an integer", x)
		}
		return int64(x), nil
	}
	if i, ok := toInt64(w); ok {
		return i, nil
	}
	return 0, wireErr(t, "expected number, got %s", wire.KindOf(w))
}

func wireFloat(t Type, w any) (float64, error) {
	switch x := w.(type) {
	case wire.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, WireError{t.String(), err}
		}
		return f, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	}
	if i, ok := toInt64(w); ok {
		return float64(i), nil
	}
	return 0, wireErr(t, "expected number, got %s", wire.KindOf(w))
}

// naiveLayouts are ISO 8601 timestamps without an offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(t Type, s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, wireErr(t, "%q is not an ISO 8601 timestamp", s)
}

func parseDate(t Type, s string) (civil.Date, error) {
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	if strings.ContainsAny(s, "T ") {
		if ts, err := parseTimestamp(t, s); err == nil {
			return civil.DateOf(ts), nil
		}
	}
	return civil.Date{}, wireErr(t, "%q is not an ISO 8601 date", s)
}
