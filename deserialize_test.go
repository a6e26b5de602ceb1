package nirum_test

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/danderson/nirum"
	"github.com/danderson/nirum/internal/fixture"
	"github.com/danderson/nirum/wire"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var equateDecimal = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

// bag is a record that keeps every field it is constructed with,
// including undeclared ones.
type bag map[string]any

var bagType = nirum.NewRecordType("bag", []nirum.Field{
	{Name: "label", Behind: "l", Type: nirum.Text},
}, func(f map[string]any) (nirum.Record, error) { return bag(f), nil })

func (bag) RecordType() *nirum.RecordType { return bagType }
func (b bag) Field(name string) any      { return b[name] }

func TestUnmarshal(t *testing.T) {
	seoul := "Seoul"
	id := uuid.MustParse("3a4de9e9-2d3f-4a8b-9f6b-1a2b3c4d5e6f")

	tests := []struct {
		name string
		t    nirum.Type
		in   string
		want any
	}{
		{"bool", nirum.Bool, `true`, true},
		{"int", nirum.Int, `42`, int64(42)},
		{"big int", nirum.Int, `9007199254740993`, int64(9007199254740993)},
		{"float", nirum.Float, `1.5`, 1.5},
		{"float from integer", nirum.Float, `2`, 2.0},
		{"decimal string", nirum.Decimal, `"3.14"`, decimal.RequireFromString("3.14")},
		{"decimal number", nirum.Decimal, `3.14`, decimal.RequireFromString("3.14")},
		{"text", nirum.Text, `"foo"`, "foo"},
		{"uuid", nirum.UUID, `"3A4DE9E9-2D3F-4A8B-9F6B-1A2B3C4D5E6F"`, id},
		{"date", nirum.Date, `"2016-08-04"`, civil.Date{Year: 2016, Month: 8, Day: 4}},
		{"date from timestamp", nirum.Date, `"2016-08-04T23:42:43+09:00"`, civil.Date{Year: 2016, Month: 8, Day: 4}},
		{"timestamp", nirum.Timestamp, `"2016-08-04T01:42:43+00:00"`, time.Date(2016, 8, 4, 1, 42, 43, 0, time.UTC)},
		{"timestamp z", nirum.Timestamp, `"2016-08-04T01:42:43Z"`, time.Date(2016, 8, 4, 1, 42, 43, 0, time.UTC)},
		{"timestamp offset", nirum.Timestamp, `"2016-08-04T10:42:43+09:00"`, time.Date(2016, 8, 4, 1, 42, 43, 0, time.UTC)},
		{"naive timestamp", nirum.Timestamp, `"2016-08-04T01:42:43.25"`, time.Date(2016, 8, 4, 1, 42, 43, 250000000, time.UTC)},

		{"optional null", nirum.Optional(nirum.Text), `null`, nil},
		{"optional value", nirum.Optional(nirum.Text), `"foo"`, "foo"},
		{"optional second alternative", nirum.Optional(nirum.Int, nirum.Text), `"foo"`, "foo"},
		{"list", nirum.List(nirum.Text), `["a","b"]`, []any{"a", "b"}},
		{"list of any", nirum.List(nirum.Any), `[1,"a"]`, []any{wire.Number("1"), "a"}},
		{"set", nirum.Set(nirum.Int), `[3,1,2,1]`, nirum.NewSet(int64(1), int64(2), int64(3))},
		{"map", nirum.Map(nirum.UUID, nirum.Int), `[{"key":"3a4de9e9-2d3f-4a8b-9f6b-1a2b3c4d5e6f","value":1}]`, map[any]any{id: int64(1)}},
		{"empty map", nirum.Map(nirum.Text, nirum.Int), `[]`, map[any]any{}},
		{"tuple", nirum.Tuple(nirum.Text, nirum.Int), `["a",1]`, []any{"a", int64(1)}},
		{"open tuple", &nirum.TupleType{}, `["a",1,true]`, []any{"a", wire.Number("1"), true}},

		{"record", fixture.PointType, `{"_type":"point","x":1,"top":2}`, fixture.Point{Left: 1, Top: 2}},
		{"record with optional", fixture.LocationType, `{"_type":"location","name":"Seoul","lat":"37.5","lng":127}`, &fixture.Location{
			Name: &seoul,
			Lat:  decimal.New(375, -1),
			Lng:  decimal.New(127, 0),
		}},
		{"record with missing optional", fixture.LocationType, `{"_type":"location","lat":"0","lng":"0"}`, &fixture.Location{}},
		{"unknown keys", bagType, `{"_type":"bag","l":"x","extra":[1]}`, bag{
			"label": "x",
			"extra": []any{wire.Number("1")},
		}},
		{"facial key beside behind key", bagType, `{"_type":"bag","l":"wire-value","label":"smuggled"}`, bag{
			"label": "wire-value",
		}},
		{"facial key ignored", fixture.PointType, `{"_type":"point","x":1,"top":2,"left":5}`, fixture.Point{Left: 1, Top: 2}},
		{"variant", fixture.CircleType, `{"_type":"shape","_tag":"circle","origin":{"_type":"point","x":0,"top":0},"radius":3}`, fixture.Circle{Radius: 3}},
		{"union", fixture.ShapeType, `{"_type":"shape","_tag":"circle","origin":{"_type":"point","x":0,"top":0},"radius":3}`, fixture.Circle{Radius: 3}},
		{"boxed", fixture.OffsetType, `1.5`, fixture.Offset(1.5)},
		{"boxed three deep", fixture.CType, `"lorem"`, fixture.C{Value: fixture.B{Value: "lorem"}}},
		{"enum", fixture.ColorType, `"green"`, fixture.DarkGreen},
		{"set of enums", nirum.Set(fixture.ColorType), `["red","green"]`, nirum.NewSet(fixture.Red, fixture.DarkGreen)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := nirum.Unmarshal(tc.t, []byte(tc.in))
			if err != nil {
				t.Fatalf("Unmarshal(%s, %s) failed: %v", tc.t, tc.in, err)
			}
			if diff := cmp.Diff(got, tc.want, equateDecimal); diff != "" {
				t.Fatalf("Unmarshal(%s, %s) wrong value (-got+want):\n%s", tc.t, tc.in, diff)
			}
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		t    nirum.Type
		in   string
	}{
		{"invalid json", nirum.Text, `"foo`},
		{"trailing data", nirum.Text, `"a"}`},
		{"text from number", nirum.Text, `1`},
		{"text from bool", nirum.Text, `true`},
		{"int from fraction", nirum.Int, `1.5`},
		{"int from string", nirum.Int, `"1"`},
		{"bool from string", nirum.Bool, `"true"`},
		{"bad decimal", nirum.Decimal, `"pi"`},
		{"bad uuid", nirum.UUID, `"not-a-uuid"`},
		{"bad date", nirum.Date, `"2016-13-01"`},
		{"bad timestamp", nirum.Timestamp, `"yesterday"`},
		{"null for required", nirum.Text, `null`},
		{"no optional alternative", nirum.Optional(nirum.Int), `"foo"`},
		{"list from object", nirum.List(nirum.Text), `{}`},
		{"bad list element", nirum.List(nirum.Text), `["a",1]`},
		{"tuple too short", nirum.Tuple(nirum.Text, nirum.Int), `["a"]`},
		{"tuple too long", nirum.Tuple(nirum.Text), `["a",1]`},
		{"map from object", nirum.Map(nirum.Text, nirum.Int), `{"a":1}`},
		{"map entry not object", nirum.Map(nirum.Text, nirum.Int), `[["a",1]]`},
		{"map entry missing value", nirum.Map(nirum.Text, nirum.Int), `[{"key":"a"}]`},
		{"map entry extra key", nirum.Map(nirum.Text, nirum.Int), `[{"key":"a","value":1,"x":2}]`},

		{"record from array", fixture.PointType, `[]`},
		{"record missing _type", fixture.PointType, `{"x":1,"top":2}`},
		{"record wrong _type", fixture.PointType, `{"_type":"location","x":1,"top":2}`},
		{"record missing field", fixture.PointType, `{"_type":"point","x":1}`},
		{"record facial key", fixture.PointType, `{"_type":"point","left":1,"top":2}`},
		{"record bad field", fixture.PointType, `{"_type":"point","x":"1","top":2}`},
		{"union missing envelope", fixture.ShapeType, `{"radius":3}`},
		{"union missing _tag", fixture.ShapeType, `{"_type":"shape","radius":3}`},
		{"union non-string _tag", fixture.ShapeType, `{"_type":"shape","_tag":1}`},
		{"union unknown _tag", fixture.ShapeType, `{"_type":"shape","_tag":"triangle"}`},
		{"union wrong _type", fixture.ShapeType, `{"_type":"form","_tag":"circle","origin":{"_type":"point","x":0,"top":0},"radius":3}`},
		{"variant wrong _tag", fixture.CircleType, `{"_type":"shape","_tag":"rectangle","origin":{"_type":"point","x":0,"top":0},"radius":3}`},
		{"variant missing _tag", fixture.CircleType, `{"_type":"shape","origin":{"_type":"point","x":0,"top":0},"radius":3}`},
		{"enum facial name", fixture.ColorType, `"dark_green"`},
		{"enum unknown member", fixture.ColorType, `"blue"`},
		{"boxed bad inner", fixture.CType, `1`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := nirum.Unmarshal(tc.t, []byte(tc.in))
			if err == nil {
				t.Fatalf("Unmarshal(%s, %s) = %#v, want error", tc.t, tc.in, got)
			}
			var we nirum.WireError
			if !errors.As(err, &we) {
				t.Fatalf("Unmarshal(%s, %s) returned %T (%v), want WireError", tc.t, tc.in, err, err)
			}
		})
	}
}

func TestUnionDiscrimination(t *testing.T) {
	in := `{"_type":"shape","_tag":"rectangle","upper_left":{"_type":"point","x":0,"top":1},"lower_right":{"_type":"point","x":2,"top":3}}`
	viaUnion, err := nirum.Unmarshal(fixture.ShapeType, []byte(in))
	if err != nil {
		t.Fatalf("Unmarshal(shape) failed: %v", err)
	}
	viaVariant, err := nirum.Unmarshal(fixture.RectangleType, []byte(in))
	if err != nil {
		t.Fatalf("Unmarshal(shape.rectangle) failed: %v", err)
	}
	if diff := cmp.Diff(viaUnion, viaVariant); diff != "" {
		t.Fatalf("union and variant decode differ (-union+variant):\n%s", diff)
	}
	want := fixture.Rectangle{
		UpperLeft:  fixture.Point{Left: 0, Top: 1},
		LowerRight: fixture.Point{Left: 2, Top: 3},
	}
	if diff := cmp.Diff(viaUnion, any(want)); diff != "" {
		t.Fatalf("wrong rectangle (-got+want):\n%s", diff)
	}
}

func TestDecimalElements(t *testing.T) {
	tests := []struct {
		name string
		t    nirum.Type
		in   string
		want string
	}{
		{"set", nirum.Set(nirum.Decimal), `["1.5","2","1.5"]`, `["1.5","2"]`},
		{"map keys", nirum.Map(nirum.Decimal, nirum.Int), `[{"key":"1","value":1},{"key":"1","value":2}]`, `[{"key":"1","value":2}]`},
		{"set in map value", nirum.Map(nirum.Text, nirum.Set(nirum.Decimal)), `[{"key":"a","value":["0.1","0.1"]}]`, `[{"key":"a","value":["0.1"]}]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := nirum.Unmarshal(tc.t, []byte(tc.in))
			if err != nil {
				t.Fatalf("Unmarshal(%s, %s) failed: %v", tc.t, tc.in, err)
			}
			bs, err := nirum.Marshal(v)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if diff := diffJSON(t, bs, tc.want); diff != "" {
				t.Errorf("wrong round trip of %s (-got+want):\n%s", tc.in, diff)
			}
		})
	}

	s := nirum.NewSet(decimal.RequireFromString("1.5"), decimal.RequireFromString("1.5"))
	bs, err := nirum.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal(set) failed: %v", err)
	}
	if diff := diffJSON(t, bs, `["1.5"]`); diff != "" {
		t.Errorf("wrong set encoding (-got+want):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	seoul := "Seoul"
	kst := time.FixedZone("", 9*60*60)

	tests := []struct {
		t nirum.Type
		v any
	}{
		{nirum.Bool, false},
		{nirum.Int, int64(-7)},
		{nirum.Float, 0.25},
		{nirum.Decimal, decimal.RequireFromString("-12345678901234567890.0123456789")},
		{nirum.Text, "유니코드"},
		{nirum.UUID, uuid.MustParse("00000000-0000-4000-8000-000000000001")},
		{nirum.Date, civil.Date{Year: 1999, Month: 12, Day: 31}},
		{nirum.Timestamp, time.Date(2016, 8, 4, 10, 42, 43, 123456789, kst)},
		{nirum.Optional(nirum.Int), nil},
		{nirum.List(nirum.Optional(nirum.Text)), []any{"a", nil}},
		{nirum.Set(nirum.Text), nirum.NewSet("x", "y")},
		{nirum.Map(nirum.Int, nirum.List(nirum.Text)), map[any]any{int64(1): []any{"a"}, int64(2): []any{}}},
		{nirum.Tuple(nirum.Bool, nirum.Date), []any{true, civil.Date{Year: 2000, Month: 1, Day: 1}}},
		{fixture.PointType, fixture.Point{Left: -1.5, Top: 2}},
		{fixture.LocationType, &fixture.Location{Name: &seoul, Lat: decimal.New(375, -1), Lng: decimal.New(127, 0)}},
		{fixture.ShapeType, fixture.Circle{Origin: fixture.Point{Left: 1}, Radius: 2}},
		{fixture.ShapeType, fixture.Rectangle{LowerRight: fixture.Point{Top: 1}}},
		{fixture.HelloErrorType, fixture.Unknown{}},
		{fixture.CType, fixture.C{Value: fixture.B{Value: "lorem"}}},
		{fixture.ColorType, fixture.DarkGreen},
		{nirum.Map(fixture.ColorType, fixture.PointType), map[any]any{fixture.Red: fixture.Point{}}},
	}

	for _, tc := range tests {
		t.Run(tc.t.String(), func(t *testing.T) {
			bs, err := nirum.Marshal(tc.v)
			if err != nil {
				t.Fatalf("Marshal(%#v) failed: %v", tc.v, err)
			}
			got, err := nirum.Unmarshal(tc.t, bs)
			if err != nil {
				t.Fatalf("Unmarshal(%s, %s) failed: %v", tc.t, bs, err)
			}
			if diff := cmp.Diff(got, tc.v, equateDecimal); diff != "" {
				t.Fatalf("round trip through %s changed value (-got+want):\n%s", bs, diff)
			}
		})
	}
}

func TestDeserializeAs(t *testing.T) {
	w, err := wire.Unmarshal([]byte(`{"_type":"point","x":1,"top":2}`))
	if err != nil {
		t.Fatal(err)
	}
	p, err := nirum.DeserializeAs[fixture.Point](fixture.PointType, w)
	if err != nil {
		t.Fatalf("DeserializeAs failed: %v", err)
	}
	if want := (fixture.Point{Left: 1, Top: 2}); p != want {
		t.Fatalf("DeserializeAs = %#v, want %#v", p, want)
	}

	if _, err := nirum.DeserializeAs[*fixture.Location](fixture.PointType, w); err == nil {
		t.Fatal("DeserializeAs to the wrong Go type succeeded")
	}

	s, err := nirum.DeserializeAs[string](nirum.Optional(nirum.Text), nil)
	if err != nil || s != "" {
		t.Fatalf("DeserializeAs(null) = %q, %v, want zero value", s, err)
	}
}

func TestDeserializeUnknownType(t *testing.T) {
	_, err := nirum.Deserialize(nil, "foo")
	var te nirum.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("Deserialize(nil type) returned %v, want TypeError", err)
	}
}
