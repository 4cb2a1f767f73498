package shape

import (
	"oss.terrastruct.com/sketchpad/lib/geo"
)

type shapeRectangle struct {
	*baseShape
}

func NewRectangle(box *geo.Box) Shape {
	return shapeRectangle{
		baseShape: &baseShape{
			Type:    RECTANGLE_TYPE,
			Box:     box,
			outline: rectangleOutline,
		},
	}
}

func rectangleOutline(h float64) *Path {
	p := NewPath()
	p.MoveTo(-h, -h)
	p.LineTo(h, -h)
	p.LineTo(h, h)
	p.LineTo(-h, h)
	p.Close()
	return p
}
