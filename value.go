package nirum

import (
	"fmt"

	"github.com/creachadair/mds/mapset"
)

// Record is the interface implemented by values of record types.
type Record interface {
	// RecordType returns the value's descriptor. It must return the
	// same pointer for every value of the type.
	RecordType() *RecordType
	// Field returns the value of the field with the given facial
	// name.
	Field(name string) any
}

// Variant is the interface implemented by values of union types. A
// Variant value is always of one concrete variant of the union.
//
// Variants declared as service errors should also implement error,
// so that handlers can return them and clients can receive them
// directly.
type Variant interface {
	// VariantType returns the value's descriptor. It must return the
	// same pointer for every value of the variant.
	VariantType() *VariantType
	// Field returns the value of the field with the given facial
	// name.
	Field(name string) any
}

// Boxed is the interface implemented by values of boxed types.
type Boxed interface {
	BoxedType() *BoxedType
	// Unbox returns the wrapped value.
	Unbox() any
}

// Enum is the interface implemented by values of enumeration types.
type Enum interface {
	EnumType() *EnumType
	// Member returns the facial name of the value.
	Member() string
}

// NewSet returns a set value holding elems.
func NewSet(elems ...any) mapset.Set[any] {
	return mapset.New(elems...)
}

// valueName describes the type of v for error messages.
func valueName(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case Record:
		return x.RecordType().String()
	case Variant:
		return x.VariantType().String()
	case Boxed:
		return x.BoxedType().String()
	case Enum:
		return x.EnumType().String()
	}
	return fmt.Sprintf("%T", v)
}
