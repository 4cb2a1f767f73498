package geo

import "math"

// Matrix is a 2D affine transform in the same layout as a canvas transform:
//
//	| A C E |
//	| B D F |
//	| 0 0 1 |
type Matrix struct {
	A, B, C, D, E, F float64
}

func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Multiply returns m*n, i.e. n is applied first.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

// Translate appends a translation, like ctx.translate.
func (m Matrix) Translate(x, y float64) Matrix {
	return m.Multiply(Matrix{A: 1, D: 1, E: x, F: y})
}

// Rotate appends a clockwise rotation in y-down coordinates, like ctx.rotate.
func (m Matrix) Rotate(degrees float64) Matrix {
	if degrees == 0 {
		return m
	}
	sin, cos := math.Sincos(DegreesToRadians(degrees))
	return m.Multiply(Matrix{A: cos, B: sin, C: -sin, D: cos})
}

func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// Invert returns the inverse of m and false if m is singular.
func (m Matrix) Invert() (Matrix, bool) {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Matrix{}, false
	}
	return Matrix{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
		E: (m.C*m.F - m.D*m.E) / det,
		F: (m.B*m.E - m.A*m.F) / det,
	}, true
}
