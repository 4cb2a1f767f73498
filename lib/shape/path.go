package shape

import (
	"oss.terrastruct.com/sketchpad/lib/geo"
	"oss.terrastruct.com/sketchpad/lib/svg"
)

type OpKind int

const (
	MoveTo OpKind = iota
	LineTo
	CubeTo
	Close
)

// curveSegments is the number of line segments a cubic is flattened into.
const curveSegments = 16

// Op is one path command. MoveTo and LineTo use Points[0], CubeTo uses all three
// (two control points then the end point), Close uses none.
type Op struct {
	Kind   OpKind
	Points [3]geo.Point
}

// Path is a single closed figure.
type Path struct {
	Ops []Op
}

func NewPath() *Path {
	return &Path{}
}

func (p *Path) MoveTo(x, y float64) {
	p.Ops = append(p.Ops, Op{Kind: MoveTo, Points: [3]geo.Point{{X: x, Y: y}}})
}

func (p *Path) LineTo(x, y float64) {
	p.Ops = append(p.Ops, Op{Kind: LineTo, Points: [3]geo.Point{{X: x, Y: y}}})
}

func (p *Path) CubeTo(x1, y1, x2, y2, x3, y3 float64) {
	p.Ops = append(p.Ops, Op{Kind: CubeTo, Points: [3]geo.Point{{X: x1, Y: y1}, {X: x2, Y: y2}, {X: x3, Y: y3}}})
}

func (p *Path) Close() {
	p.Ops = append(p.Ops, Op{Kind: Close})
}

// Transform returns a copy of p with every point mapped through m.
func (p *Path) Transform(m geo.Matrix) *Path {
	out := &Path{Ops: make([]Op, len(p.Ops))}
	for i, op := range p.Ops {
		out.Ops[i].Kind = op.Kind
		for j := range op.Points {
			out.Ops[i].Points[j] = m.Apply(op.Points[j])
		}
	}
	return out
}

// Flatten approximates the path as a polygon, cubics are sampled at fixed steps.
func (p *Path) Flatten() geo.Points {
	var pts geo.Points
	var cur geo.Point
	for _, op := range p.Ops {
		switch op.Kind {
		case MoveTo, LineTo:
			cur = op.Points[0]
			pts = append(pts, geo.NewPoint(cur.X, cur.Y))
		case CubeTo:
			for i := 1; i <= curveSegments; i++ {
				pt := cubicAt(cur, op.Points[0], op.Points[1], op.Points[2], float64(i)/curveSegments)
				pts = append(pts, &pt)
			}
			cur = op.Points[2]
		}
	}
	return pts
}

func cubicAt(p0, p1, p2, p3 geo.Point, t float64) geo.Point {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	c := 3 * mt * t * t
	d := t * t * t
	return geo.Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

func (p *Path) SVGData() string {
	pc := svg.NewSVGPathContext()
	for _, op := range p.Ops {
		switch op.Kind {
		case MoveTo:
			pc.StartAt(op.Points[0].X, op.Points[0].Y)
		case LineTo:
			pc.L(op.Points[0].X, op.Points[0].Y)
		case CubeTo:
			pc.C(op.Points[0].X, op.Points[0].Y, op.Points[1].X, op.Points[1].Y, op.Points[2].X, op.Points[2].Y)
		case Close:
			pc.Z()
		}
	}
	return pc.PathData()
}
