package nirum

import (
	"fmt"
	"strings"
)

// Kind is the category of a [Type].
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindText
	KindUUID
	KindDate
	KindTimestamp
	KindAny
	KindOptional
	KindList
	KindSet
	KindMap
	KindTuple
	KindBoxed
	KindRecord
	KindUnion
	KindVariant
	KindEnum
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindBool:      "bool",
	KindInt:       "int64",
	KindFloat:     "float64",
	KindDecimal:   "decimal",
	KindText:      "text",
	KindUUID:      "uuid",
	KindDate:      "date",
	KindTimestamp: "datetime",
	KindAny:       "any",
	KindOptional:  "optional",
	KindList:      "list",
	KindSet:       "set",
	KindMap:       "map",
	KindTuple:     "tuple",
	KindBoxed:     "boxed",
	KindRecord:    "record",
	KindUnion:     "union",
	KindVariant:   "variant",
	KindEnum:      "enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Type is a type descriptor.
//
// The set of Type implementations is closed: primitives are the
// package-level values [Bool], [Int], [Float], [Decimal], [Text],
// [UUID], [Date], [Timestamp] and [Any], containers are built with
// [Optional], [List], [Set], [Map] and [Tuple], and named types are
// built with [NewBoxedType], [NewRecordType], [NewUnionType],
// [NewVariantType] and [NewEnumType].
//
// Descriptors are immutable once constructed, and safe for
// concurrent use.
type Type interface {
	Kind() Kind
	// String returns the type in schema notation, for example
	// "[text]" or "{uuid: point}".
	String() string

	isType()
}

type primitive Kind

func (p primitive) Kind() Kind     { return Kind(p) }
func (p primitive) String() string { return Kind(p).String() }
func (primitive) isType()          {}

// Primitive types.
var (
	Bool      Type = primitive(KindBool)
	Int       Type = primitive(KindInt)
	Float     Type = primitive(KindFloat)
	Decimal   Type = primitive(KindDecimal)
	Text      Type = primitive(KindText)
	UUID      Type = primitive(KindUUID)
	Date      Type = primitive(KindDate)
	Timestamp Type = primitive(KindTimestamp)

	// Any is an unresolved element type. Values of type Any are
	// passed through serialization and deserialization unchanged.
	Any Type = primitive(KindAny)
)

// OptionalType is a nullable value of one of several alternative
// types.
type OptionalType struct {
	// Alts are the non-null alternatives, in the order they are tried
	// during deserialization.
	Alts []Type
}

// Optional returns the nullable type of t, or of any of t and more.
func Optional(t Type, more ...Type) *OptionalType {
	return &OptionalType{Alts: append([]Type{t}, more...)}
}

func (t *OptionalType) Kind() Kind { return KindOptional }
func (t *OptionalType) String() string {
	if len(t.Alts) == 1 {
		return t.Alts[0].String() + "?"
	}
	return "(" + joinTypes(t.Alts, " | ") + ")?"
}
func (*OptionalType) isType() {}

// ListType is an ordered sequence of values.
type ListType struct{ Elem Type }

// List returns the sequence type of elem.
func List(elem Type) *ListType { return &ListType{elem} }

func (t *ListType) Kind() Kind     { return KindList }
func (t *ListType) String() string { return "[" + t.Elem.String() + "]" }
func (*ListType) isType()          {}

// SetType is an unordered collection of distinct values.
type SetType struct{ Elem Type }

// Set returns the set type of elem.
func Set(elem Type) *SetType { return &SetType{elem} }

func (t *SetType) Kind() Kind     { return KindSet }
func (t *SetType) String() string { return "{" + t.Elem.String() + "}" }
func (*SetType) isType()          {}

// MapType is a mapping of keys to values. Keys need not be text.
type MapType struct{ Key, Value Type }

// Map returns the mapping type from key to value.
func Map(key, value Type) *MapType { return &MapType{key, value} }

func (t *MapType) Kind() Kind { return KindMap }
func (t *MapType) String() string {
	return "{" + t.Key.String() + ": " + t.Value.String() + "}"
}
func (*MapType) isType() {}

// TupleType is a fixed-arity sequence of positionally typed values.
//
// A TupleType with nil Elems has no fixed arity, and its values are
// passed through unconverted.
type TupleType struct{ Elems []Type }

// Tuple returns the tuple type with the given positional types.
func Tuple(elems ...Type) *TupleType { return &TupleType{elems} }

func (t *TupleType) Kind() Kind { return KindTuple }
func (t *TupleType) String() string {
	if t.Elems == nil {
		return "(...)"
	}
	return "(" + joinTypes(t.Elems, ", ") + ")"
}
func (*TupleType) isType() {}

// Field is a named, typed member of a record or union variant.
type Field struct {
	// Name is the facial name of the field.
	Name string
	// Behind is the wire name of the field. If empty, it defaults to
	// Name.
	Behind string
	Type   Type
}

type fieldSet struct {
	fields []Field
	names  *NameMap
	byName map[string]int
}

func newFieldSet(owner string, fields []Field) fieldSet {
	ret := fieldSet{
		fields: make([]Field, len(fields)),
		byName: make(map[string]int, len(fields)),
	}
	pairs := make([]NamePair, 0, len(fields))
	for i, f := range fields {
		if f.Behind == "" {
			f.Behind = f.Name
		}
		if f.Type == nil {
			panic(fmt.Errorf("field %s.%s has no type", owner, f.Name))
		}
		ret.fields[i] = f
		ret.byName[f.Name] = i
		pairs = append(pairs, NamePair{f.Name, f.Behind})
	}
	names, err := NewNameMap(pairs...)
	if err != nil {
		panic(fmt.Errorf("invalid fields for %s: %w", owner, err))
	}
	ret.names = names
	return ret
}

// Fields returns the declared fields, in declaration order. The
// returned slice must not be modified.
func (s *fieldSet) Fields() []Field { return s.fields }

// FieldNames returns the facial/behind name mapping of the fields.
func (s *fieldSet) FieldNames() *NameMap { return s.names }

// FieldByName returns the field with the given facial name.
func (s *fieldSet) FieldByName(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// RecordType describes a named product type.
type RecordType struct {
	// Name is the behind name of the record, emitted as "_type".
	Name string
	fieldSet
	newFn func(map[string]any) (Record, error)
}

// NewRecordType returns a record descriptor.
//
// newFn constructs a record value from facial field names to
// values, which have already been checked against the field types.
//
// NewRecordType panics if fields contain duplicate names.
func NewRecordType(name string, fields []Field, newFn func(map[string]any) (Record, error)) *RecordType {
	if newFn == nil {
		panic(fmt.Errorf("record type %s has no constructor", name))
	}
	return &RecordType{
		Name:     name,
		fieldSet: newFieldSet(name, fields),
		newFn:    newFn,
	}
}

// New constructs a record value from facial field names to
// values. The values are checked with CheckFields before they are
// given to the constructor.
func (t *RecordType) New(fields map[string]any) (Record, error) {
	if err := t.CheckFields(fields); err != nil {
		return nil, err
	}
	return t.newFn(fields)
}

func (t *RecordType) Kind() Kind     { return KindRecord }
func (t *RecordType) String() string { return t.Name }
func (*RecordType) isType()          {}

// UnionType describes a named sum type. The union itself is
// abstract: only its variants have values.
type UnionType struct {
	// Name is the behind name of the union, emitted as "_type".
	Name     string
	variants []*VariantType
	tags     *NameMap
	byTag    map[string]*VariantType
}

// NewUnionType returns a union descriptor over variants, and
// attaches each variant to the union.
//
// NewUnionType panics if variants have duplicate names or tags, or if
// a variant already belongs to another union.
func NewUnionType(name string, variants ...*VariantType) *UnionType {
	ret := &UnionType{
		Name:     name,
		variants: variants,
		byTag:    make(map[string]*VariantType, len(variants)),
	}
	pairs := make([]NamePair, 0, len(variants))
	for _, v := range variants {
		if v.union != nil {
			panic(fmt.Errorf("variant %s already belongs to union %s", v.Name, v.union.Name))
		}
		v.union = ret
		ret.byTag[v.Tag] = v
		pairs = append(pairs, NamePair{v.Name, v.Tag})
	}
	tags, err := NewNameMap(pairs...)
	if err != nil {
		panic(fmt.Errorf("invalid variants for union %s: %w", name, err))
	}
	ret.tags = tags
	return ret
}

// Variants returns the union's variants in declaration order. The
// returned slice must not be modified.
func (t *UnionType) Variants() []*VariantType { return t.variants }

// Tags returns the facial/behind name mapping of the variants.
func (t *UnionType) Tags() *NameMap { return t.tags }

// Variant returns the variant whose behind tag is tag.
func (t *UnionType) Variant(tag string) (*VariantType, bool) {
	v, ok := t.byTag[tag]
	return v, ok
}

func (t *UnionType) Kind() Kind     { return KindUnion }
func (t *UnionType) String() string { return t.Name }
func (*UnionType) isType()          {}

// VariantType describes one tagged alternative of a [UnionType].
type VariantType struct {
	// Name is the facial name of the variant.
	Name string
	// Tag is the behind name of the variant, emitted as "_tag".
	Tag string
	fieldSet
	newFn func(map[string]any) (Variant, error)
	union *UnionType
}

// NewVariantType returns a variant descriptor. The variant is
// unusable until attached to a union with [NewUnionType].
//
// NewVariantType panics if fields contain duplicate names.
func NewVariantType(name, tag string, fields []Field, newFn func(map[string]any) (Variant, error)) *VariantType {
	if newFn == nil {
		panic(fmt.Errorf("variant type %s has no constructor", name))
	}
	if tag == "" {
		tag = name
	}
	return &VariantType{
		Name:     name,
		Tag:      tag,
		fieldSet: newFieldSet(name, fields),
		newFn:    newFn,
	}
}

// New constructs a variant value from facial field names to
// values. The values are checked with CheckFields before they are
// given to the constructor.
func (t *VariantType) New(fields map[string]any) (Variant, error) {
	if err := t.CheckFields(fields); err != nil {
		return nil, err
	}
	return t.newFn(fields)
}

// Union returns the union the variant belongs to.
func (t *VariantType) Union() *UnionType { return t.union }

func (t *VariantType) Kind() Kind { return KindVariant }
func (t *VariantType) String() string {
	if t.union == nil {
		return t.Tag
	}
	return t.union.Name + "." + t.Tag
}
func (*VariantType) isType() {}

// BoxedType describes a named wrapper around a single value of
// another type. Boxed values are transparent on the wire.
type BoxedType struct {
	// Name is the behind name of the boxed type.
	Name  string
	Inner Type
	newFn func(any) (Boxed, error)
}

// NewBoxedType returns a boxed descriptor wrapping inner. newFn
// wraps a value already checked against inner.
func NewBoxedType(name string, inner Type, newFn func(any) (Boxed, error)) *BoxedType {
	if inner == nil {
		panic(fmt.Errorf("boxed type %s has no inner type", name))
	}
	if newFn == nil {
		panic(fmt.Errorf("boxed type %s has no constructor", name))
	}
	return &BoxedType{name, inner, newFn}
}

// New wraps an inner value, after checking it against the inner
// type.
func (t *BoxedType) New(inner any) (Boxed, error) {
	if !conforms(t.Inner, inner) {
		return nil, typeErr("value", t.Inner, inner)
	}
	return t.newFn(inner)
}

func (t *BoxedType) Kind() Kind     { return KindBoxed }
func (t *BoxedType) String() string { return t.Name }
func (*BoxedType) isType()          {}

// EnumType describes a closed set of named members. Members appear
// on the wire as their behind names.
type EnumType struct {
	// Name is the behind name of the enumeration.
	Name    string
	members *NameMap
	newFn   func(member string) (Enum, error)
}

// NewEnumType returns an enumeration descriptor. newFn constructs a
// value from a member's facial name.
//
// NewEnumType panics if members contain duplicate names.
func NewEnumType(name string, members []NamePair, newFn func(string) (Enum, error)) *EnumType {
	if newFn == nil {
		panic(fmt.Errorf("enum type %s has no constructor", name))
	}
	m, err := NewNameMap(members...)
	if err != nil {
		panic(fmt.Errorf("invalid members for enum %s: %w", name, err))
	}
	return &EnumType{name, m, newFn}
}

// Members returns the facial/behind name mapping of the members.
func (t *EnumType) Members() *NameMap { return t.members }

// New returns the member with the given facial name.
func (t *EnumType) New(member string) (Enum, error) {
	if !t.members.HasFacial(member) {
		return nil, TypeError{Expected: t.Name, Actual: "member " + member}
	}
	return t.newFn(member)
}

func (t *EnumType) Kind() Kind     { return KindEnum }
func (t *EnumType) String() string { return t.Name }
func (*EnumType) isType()          {}

func joinTypes(ts []Type, sep string) string {
	var b strings.Builder
	for i, t := range ts {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(t.String())
	}
	return b.String()
}
