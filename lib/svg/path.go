package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"oss.terrastruct.com/sketchpad/lib/geo"
)

type SvgPathContext struct {
	Commands []string
	Start    *geo.Point
	Current  *geo.Point
}

// TODO probably use math.Big
func chopPrecision(f float64) float64 {
	v := math.Round(f*10000) / 10000
	if v == 0 {
		// Avoid printing -0.
		return 0
	}
	return v
}

func NewSVGPathContext() *SvgPathContext {
	return &SvgPathContext{}
}

func (c *SvgPathContext) point(x, y float64) *geo.Point {
	return geo.NewPoint(chopPrecision(x), chopPrecision(y))
}

func (c *SvgPathContext) StartAt(x, y float64) {
	p := c.point(x, y)
	c.Start = p
	c.Commands = append(c.Commands, fmt.Sprintf("M %v %v", p.X, p.Y))
	c.Current = p.Copy()
}

func (c *SvgPathContext) Z() {
	c.Commands = append(c.Commands, "Z")
	if c.Start != nil {
		c.Current = c.Start.Copy()
	}
}

func (c *SvgPathContext) L(x, y float64) {
	endPoint := c.point(x, y)
	c.Commands = append(c.Commands, fmt.Sprintf("L %v %v", endPoint.X, endPoint.Y))
	c.Current = endPoint
}

func (c *SvgPathContext) C(x1, y1, x2, y2, x3, y3 float64) {
	p1, p2, p3 := c.point(x1, y1), c.point(x2, y2), c.point(x3, y3)
	c.Commands = append(c.Commands, fmt.Sprintf(
		"C %v %v %v %v %v %v",
		p1.X, p1.Y,
		p2.X, p2.Y,
		p3.X, p3.Y,
	))
	c.Current = p3
}

func (c *SvgPathContext) PathData() string {
	return strings.Join(c.Commands, " ")
}

func EscapeText(text string) string {
	buf := new(bytes.Buffer)
	_ = xml.EscapeText(buf, []byte(text))
	return buf.String()
}
