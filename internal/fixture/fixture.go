// Package fixture is a small nirum schema, written the way generated
// code uses the runtime. It backs tests and the demo server.
package fixture

import (
	"github.com/danderson/nirum"
	"github.com/shopspring/decimal"
)

// Offset is a boxed float64.
type Offset float64

var OffsetType = nirum.NewBoxedType("offset", nirum.Float, func(v any) (nirum.Boxed, error) {
	return Offset(v.(float64)), nil
})

func (Offset) BoxedType() *nirum.BoxedType { return OffsetType }
func (o Offset) Unbox() any                { return float64(o) }

// Point is a record whose "left" field is named "x" on the wire.
type Point struct {
	Left Offset
	Top  Offset
}

var PointType = nirum.NewRecordType("point", []nirum.Field{
	{Name: "left", Behind: "x", Type: OffsetType},
	{Name: "top", Type: OffsetType},
}, func(f map[string]any) (nirum.Record, error) {
	return Point{f["left"].(Offset), f["top"].(Offset)}, nil
})

func (Point) RecordType() *nirum.RecordType { return PointType }

func (p Point) Field(name string) any {
	switch name {
	case "left":
		return p.Left
	case "top":
		return p.Top
	}
	return nil
}

// Location is a record with an optional field and decimal fields.
type Location struct {
	Name *string
	Lat  decimal.Decimal
	Lng  decimal.Decimal
}

var LocationType = nirum.NewRecordType("location", []nirum.Field{
	{Name: "name", Type: nirum.Optional(nirum.Text)},
	{Name: "lat", Type: nirum.Decimal},
	{Name: "lng", Type: nirum.Decimal},
}, func(f map[string]any) (nirum.Record, error) {
	ret := &Location{
		Lat: f["lat"].(decimal.Decimal),
		Lng: f["lng"].(decimal.Decimal),
	}
	if name, ok := f["name"].(string); ok {
		ret.Name = &name
	}
	return ret, nil
})

func (*Location) RecordType() *nirum.RecordType { return LocationType }

func (l *Location) Field(name string) any {
	switch name {
	case "name":
		if l.Name == nil {
			return nil
		}
		return *l.Name
	case "lat":
		return l.Lat
	case "lng":
		return l.Lng
	}
	return nil
}

// A, B and C are boxed types layered on top of each other.
type (
	A string
	B struct{ Value A }
	C struct{ Value B }
)

var (
	AType = nirum.NewBoxedType("a", nirum.Text, func(v any) (nirum.Boxed, error) {
		return A(v.(string)), nil
	})
	BType = nirum.NewBoxedType("b", AType, func(v any) (nirum.Boxed, error) {
		return B{v.(A)}, nil
	})
	CType = nirum.NewBoxedType("c", BType, func(v any) (nirum.Boxed, error) {
		return C{v.(B)}, nil
	})
)

func (A) BoxedType() *nirum.BoxedType { return AType }
func (a A) Unbox() any                { return string(a) }
func (B) BoxedType() *nirum.BoxedType { return BType }
func (b B) Unbox() any                { return b.Value }
func (C) BoxedType() *nirum.BoxedType { return CType }
func (c C) Unbox() any                { return c.Value }

// Color is an enumeration whose "dark_green" member is named "green"
// on the wire.
type Color string

const (
	Red       Color = "red"
	DarkGreen Color = "dark_green"
)

var ColorType = nirum.NewEnumType("color", []nirum.NamePair{
	{Facial: "red"},
	{Facial: "dark_green", Behind: "green"},
}, func(m string) (nirum.Enum, error) {
	return Color(m), nil
})

func (Color) EnumType() *nirum.EnumType { return ColorType }
func (c Color) Member() string          { return string(c) }
