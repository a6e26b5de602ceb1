package nirum_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/danderson/nirum"
	"github.com/danderson/nirum/internal/fixture"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		t     nirum.Type
		v     any
		valid bool
	}{
		{nirum.Bool, true, true},
		{nirum.Bool, "true", false},
		{nirum.Int, int64(1), true},
		{nirum.Int, 1, true},
		{nirum.Int, int32(1), true},
		{nirum.Int, uint64(1 << 63), false},
		{nirum.Int, 1.0, false},
		{nirum.Float, 1.5, true},
		{nirum.Float, int64(1), false},
		{nirum.Decimal, decimal.RequireFromString("1.5"), true},
		{nirum.Decimal, "1.5", false},
		{nirum.Text, "foo", true},
		{nirum.Text, []byte("foo"), false},
		{nirum.UUID, uuid.Nil, true},
		{nirum.UUID, uuid.Nil.String(), false},
		{nirum.Date, civil.Date{Year: 2024, Month: 2, Day: 29}, true},
		{nirum.Date, civil.Date{Year: 2023, Month: 2, Day: 29}, false},
		{nirum.Timestamp, time.Now(), true},
		{nirum.Timestamp, civil.Date{Year: 2024, Month: 1, Day: 1}, false},
		{nirum.Any, struct{}{}, true},

		{nirum.Optional(nirum.Text), nil, true},
		{nirum.Optional(nirum.Text), "foo", true},
		{nirum.Optional(nirum.Text), int64(1), false},
		{nirum.Optional(nirum.Int, nirum.Text), "foo", true},
		{nirum.Text, nil, false},

		{nirum.List(nirum.Text), []any{"a", "b"}, true},
		{nirum.List(nirum.Text), []any{"a", int64(1)}, false},
		{nirum.List(nirum.Text), []string{"a"}, false},
		{nirum.Set(nirum.Int), nirum.NewSet(int64(1), int64(2)), true},
		{nirum.Set(nirum.Int), nirum.NewSet("a"), false},
		{nirum.Map(nirum.Text, nirum.Int), map[any]any{"a": int64(1)}, true},
		{nirum.Map(nirum.Text, nirum.Int), map[any]any{int64(1): int64(1)}, false},
		{nirum.Tuple(nirum.Text, nirum.Int), []any{"a", int64(1)}, true},
		{nirum.Tuple(nirum.Text, nirum.Int), []any{"a"}, false},
		{&nirum.TupleType{}, []any{"a", 1.5}, true},

		{fixture.OffsetType, fixture.Offset(1), true},
		{fixture.OffsetType, 1.0, false},
		{fixture.PointType, fixture.Point{}, true},
		{fixture.PointType, &fixture.Location{}, false},
		{fixture.ShapeType, fixture.Circle{}, true},
		{fixture.ShapeType, fixture.Point{}, false},
		{fixture.CircleType, fixture.Circle{}, true},
		{fixture.CircleType, fixture.Rectangle{}, false},
		{fixture.ColorType, fixture.Red, true},
		{fixture.ColorType, "red", false},
	}
	for _, tc := range tests {
		err := nirum.Check(tc.t, tc.v)
		if got := err == nil; got != tc.valid {
			t.Errorf("Check(%s, %#v) = %v, want valid=%v", tc.t, tc.v, err, tc.valid)
		}
	}
}

func TestValidate(t *testing.T) {
	name := "Seoul"
	tests := []struct {
		name string
		v    any
		want error
	}{
		{"record", fixture.Point{Left: 1, Top: 2}, nil},
		{"optional field", &fixture.Location{Lat: decimal.New(375, -1), Lng: decimal.New(1270, -1)}, nil},
		{"optional field set", &fixture.Location{Name: &name}, nil},
		{"variant", fixture.Circle{Radius: 3}, nil},
		{"boxed", fixture.C{Value: fixture.B{Value: "lorem"}}, nil},
		{"enum", fixture.DarkGreen, nil},
		{"bad enum", fixture.Color("blue"), nirum.TypeError{Expected: "color", Actual: "member blue"}},
		{"not a compound value", "foo", nirum.TypeError{Expected: "record, union or boxed value", Actual: "string"}},
		{"null", nil, nirum.TypeError{Expected: "record, union or boxed value", Actual: "null"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := nirum.Validate(tc.v); got != tc.want {
				t.Fatalf("Validate(%#v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestBoxedTypeNew(t *testing.T) {
	a, err := fixture.AType.New("lorem")
	if err != nil {
		t.Fatalf("AType.New failed: %v", err)
	}
	if a != fixture.A("lorem") {
		t.Fatalf("AType.New = %#v, want A(lorem)", a)
	}
	if _, err := fixture.BType.New("lorem"); err == nil {
		t.Fatal("BType.New accepted a string, want it to require an A")
	}
}

func TestEnumTypeNew(t *testing.T) {
	c, err := fixture.ColorType.New("dark_green")
	if err != nil {
		t.Fatalf("ColorType.New failed: %v", err)
	}
	if c != fixture.DarkGreen {
		t.Fatalf("ColorType.New = %#v, want DarkGreen", c)
	}
	if _, err := fixture.ColorType.New("green"); err == nil {
		t.Fatal("ColorType.New accepted a behind name")
	}
}
