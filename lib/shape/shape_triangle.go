package shape

import (
	"oss.terrastruct.com/sketchpad/lib/geo"
)

type shapeTriangle struct {
	*baseShape
}

func NewTriangle(box *geo.Box) Shape {
	return shapeTriangle{
		baseShape: &baseShape{
			Type:    TRIANGLE_TYPE,
			Box:     box,
			outline: triangleOutline,
		},
	}
}

func triangleOutline(h float64) *Path {
	p := NewPath()
	p.MoveTo(0, -h)
	p.LineTo(-h, h)
	p.LineTo(h, h)
	p.Close()
	return p
}
