package nirum

import (
	"errors"
	"math"
	"reflect"
	"time"

	"cloud.google.com/go/civil"
	"github.com/creachadair/mds/mapset"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validate checks that a record, union variant or boxed value holds
// values of its declared field types.
//
// Descriptor constructors check their inputs the same way, so
// values built through them are always valid. Validate is for values
// built directly as Go literals. It returns a [TypeError] naming the
// first offending field.
func Validate(v any) error {
	switch x := v.(type) {
	case Record:
		return validateFields(x.RecordType().Fields(), x.Field)
	case Variant:
		vt := x.VariantType()
		if vt.Union() == nil {
			return errors.New("variant " + vt.Name + " does not belong to a union")
		}
		return validateFields(vt.Fields(), x.Field)
	case Boxed:
		bt := x.BoxedType()
		if inner := x.Unbox(); !conforms(bt.Inner, inner) {
			return typeErr("value", bt.Inner, inner)
		}
		return nil
	case Enum:
		et := x.EnumType()
		if !et.Members().HasFacial(x.Member()) {
			return TypeError{Expected: et.String(), Actual: "member " + x.Member()}
		}
		return nil
	}
	return TypeError{Expected: "record, union or boxed value", Actual: valueName(v)}
}

func validateFields(fields []Field, get func(string) any) error {
	for _, f := range fields {
		if fv := get(f.Name); !conforms(f.Type, fv) {
			return typeErr(f.Name, f.Type, fv)
		}
	}
	return nil
}

// Check returns a [TypeError] if v is not a value of type t.
func Check(t Type, v any) error {
	if !conforms(t, v) {
		return typeErr("", t, v)
	}
	return nil
}

// conforms reports whether v is a value of type t. Compound values
// are checked by descriptor identity only, since their contents were
// checked when they were constructed.
func conforms(t Type, v any) bool {
	switch tt := t.(type) {
	case primitive:
		return conformsPrimitive(Kind(tt), v)
	case *OptionalType:
		if v == nil {
			return true
		}
		for _, alt := range tt.Alts {
			if conforms(alt, v) {
				return true
			}
		}
		return false
	case *ListType:
		vs, ok := v.([]any)
		if !ok {
			return false
		}
		for _, e := range vs {
			if !conforms(tt.Elem, e) {
				return false
			}
		}
		return true
	case *SetType:
		vs, ok := v.(mapset.Set[any])
		if !ok {
			return false
		}
		for e := range vs {
			if !conforms(tt.Elem, e) {
				return false
			}
		}
		return true
	case *MapType:
		vs, ok := v.(map[any]any)
		if !ok {
			return false
		}
		for k, e := range vs {
			if !conforms(tt.Key, k) || !conforms(tt.Value, e) {
				return false
			}
		}
		return true
	case *TupleType:
		vs, ok := v.([]any)
		if !ok {
			return false
		}
		if tt.Elems == nil {
			return true
		}
		if len(vs) != len(tt.Elems) {
			return false
		}
		for i, e := range vs {
			if !conforms(tt.Elems[i], e) {
				return false
			}
		}
		return true
	case *BoxedType:
		b, ok := v.(Boxed)
		return ok && b.BoxedType() == tt
	case *RecordType:
		r, ok := v.(Record)
		return ok && r.RecordType() == tt
	case *UnionType:
		u, ok := v.(Variant)
		return ok && u.VariantType().Union() == tt
	case *VariantType:
		u, ok := v.(Variant)
		return ok && u.VariantType() == tt
	case *EnumType:
		e, ok := v.(Enum)
		return ok && e.EnumType() == tt
	}
	return false
}

func conformsPrimitive(k Kind, v any) bool {
	switch k {
	case KindAny:
		return true
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindInt:
		_, ok := toInt64(v)
		return ok
	case KindFloat:
		switch v.(type) {
		case float64, float32:
			return true
		}
		return false
	case KindDecimal:
		_, ok := v.(decimal.Decimal)
		return ok
	case KindText:
		_, ok := v.(string)
		return ok
	case KindUUID:
		_, ok := v.(uuid.UUID)
		return ok
	case KindDate:
		d, ok := v.(civil.Date)
		return ok && d.IsValid()
	case KindTimestamp:
		_, ok := v.(time.Time)
		return ok
	}
	return false
}

// toInt64 returns v as an int64 if v is a Go integer that fits.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

// hashable reports whether v can be a set element or map key.
func hashable(v any) bool {
	return v == nil || reflect.ValueOf(v).Comparable()
}

// CheckFields checks values, keyed by facial field name, against the
// declared fields. Missing fields are checked as null.
func (s *fieldSet) CheckFields(values map[string]any) error {
	return validateFields(s.fields, func(name string) any { return values[name] })
}
