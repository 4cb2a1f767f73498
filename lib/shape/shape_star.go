package shape

import (
	"math"

	"oss.terrastruct.com/sketchpad/lib/geo"
)

const (
	starSpikes = 5
	// inner radius relative to the outer one
	starInnerRatio = 0.5
)

type shapeStar struct {
	*baseShape
}

func NewStar(box *geo.Box) Shape {
	return shapeStar{
		baseShape: &baseShape{
			Type:    STAR_TYPE,
			Box:     box,
			outline: starOutline,
		},
	}
}

// starOutline alternates outer and inner vertices, starting on the positive x axis.
func starOutline(h float64) *Path {
	p := NewPath()
	for i := 0; i < starSpikes*2; i++ {
		r := h
		if i%2 == 1 {
			r = h * starInnerRatio
		}
		angle := float64(i) * math.Pi / starSpikes
		x, y := math.Cos(angle)*r, math.Sin(angle)*r
		if i == 0 {
			p.MoveTo(x, y)
		} else {
			p.LineTo(x, y)
		}
	}
	p.Close()
	return p
}
