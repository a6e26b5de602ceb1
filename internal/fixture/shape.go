package fixture

import "github.com/danderson/nirum"

// Rectangle is the "rectangle" variant of Shape.
type Rectangle struct {
	UpperLeft  Point
	LowerRight Point
}

// Circle is the "circle" variant of Shape.
type Circle struct {
	Origin Point
	Radius Offset
}

var (
	RectangleType = nirum.NewVariantType("rectangle", "", []nirum.Field{
		{Name: "upper_left", Type: PointType},
		{Name: "lower_right", Type: PointType},
	}, func(f map[string]any) (nirum.Variant, error) {
		return Rectangle{f["upper_left"].(Point), f["lower_right"].(Point)}, nil
	})
	CircleType = nirum.NewVariantType("circle", "", []nirum.Field{
		{Name: "origin", Type: PointType},
		{Name: "radius", Type: OffsetType},
	}, func(f map[string]any) (nirum.Variant, error) {
		return Circle{f["origin"].(Point), f["radius"].(Offset)}, nil
	})

	ShapeType = nirum.NewUnionType("shape", RectangleType, CircleType)
)

func (Rectangle) VariantType() *nirum.VariantType { return RectangleType }

func (r Rectangle) Field(name string) any {
	switch name {
	case "upper_left":
		return r.UpperLeft
	case "lower_right":
		return r.LowerRight
	}
	return nil
}

func (Circle) VariantType() *nirum.VariantType { return CircleType }

func (c Circle) Field(name string) any {
	switch name {
	case "origin":
		return c.Origin
	case "radius":
		return c.Radius
	}
	return nil
}
