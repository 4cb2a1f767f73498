package shape

import (
	"oss.terrastruct.com/sketchpad/lib/geo"
)

// kappa places cubic control points so that four quadrants approximate a circle.
const kappa = 0.5522847498

type shapeCircle struct {
	*baseShape
}

func NewCircle(box *geo.Box) Shape {
	return shapeCircle{
		baseShape: &baseShape{
			Type:    CIRCLE_TYPE,
			Box:     box,
			outline: circleOutline,
		},
	}
}

func circleOutline(r float64) *Path {
	k := kappa * r
	p := NewPath()
	p.MoveTo(0, -r)
	p.CubeTo(k, -r, r, -k, r, 0)
	p.CubeTo(r, k, k, r, 0, r)
	p.CubeTo(-k, r, -r, k, -r, 0)
	p.CubeTo(-r, -k, -k, -r, 0, -r)
	p.Close()
	return p
}

// Contains is exact for circles, the flattened outline would cut the edges slightly.
func (s shapeCircle) Contains(pt geo.Point) bool {
	c := s.Box.Center()
	r := s.halfSize()
	dx, dy := pt.X-c.X, pt.Y-c.Y
	return dx*dx+dy*dy <= r*r
}
