// Package pdf writes shape lists as vector PDF pages.
package pdf

import (
	"bytes"
	"io"

	"github.com/jung-kurt/gofpdf"

	"oss.terrastruct.com/sketchpad/lib/color"
	"oss.terrastruct.com/sketchpad/lib/shape"
	"oss.terrastruct.com/sketchpad/sptarget"
)

type GoFPDF struct {
	pdf    *gofpdf.Fpdf
	canvas sptarget.Canvas
	pages  int
}

// Init returns a document whose pages are the size of canvas, in points.
func Init(canvas sptarget.Canvas) *GoFPDF {
	newGofPDF := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
	})
	newGofPDF.SetAutoPageBreak(false, 0)
	newGofPDF.SetMargins(0, 0, 0)
	newGofPDF.SetCreator("sketchpad", true)

	return &GoFPDF{
		pdf:    newGofPDF,
		canvas: canvas,
	}
}

func (g *GoFPDF) Pages() int {
	return g.pages
}

func (g *GoFPDF) setFill(c string, opacity float64) error {
	rgb, err := color.Parse(c)
	if err != nil {
		return err
	}
	g.pdf.SetFillColor(int(rgb.R), int(rgb.G), int(rgb.B))
	g.pdf.SetAlpha(opacity*float64(rgb.A)/255, "Normal")
	return nil
}

// AddPage draws the canvas background, the grid when showGrid is set, and
// shapes in order on a new page.
func (g *GoFPDF) AddPage(shapes []sptarget.Shape, showGrid bool) error {
	w, h := float64(g.canvas.Width), float64(g.canvas.Height)
	g.pdf.AddPageFormat("", gofpdf.SizeType{Wd: w, Ht: h})
	g.pages++

	err := g.setFill(g.canvas.Background, 1)
	if err != nil {
		return err
	}
	g.pdf.Rect(0, 0, w, h, "F")

	if showGrid {
		err = g.setFill(sptarget.GRID_COLOR, sptarget.GRID_OPACITY)
		if err != nil {
			return err
		}
		xs, ys := g.canvas.GridLines()
		for _, x := range xs {
			g.pdf.Rect(float64(x), 0, 1, h, "F")
		}
		for _, y := range ys {
			g.pdf.Rect(0, float64(y), w, 1, "F")
		}
	}

	for _, s := range shapes {
		err = g.setFill(s.Style.Color, s.Style.Opacity)
		if err != nil {
			return err
		}
		geom := s.Geometry()
		g.drawPath(geom.Outline().Transform(geom.Placement()))
	}
	g.pdf.SetAlpha(1, "Normal")

	if g.pdf.Err() {
		return g.pdf.Error()
	}
	return nil
}

func (g *GoFPDF) drawPath(p *shape.Path) {
	for _, op := range p.Ops {
		pts := op.Points
		switch op.Kind {
		case shape.MoveTo:
			g.pdf.MoveTo(pts[0].X, pts[0].Y)
		case shape.LineTo:
			g.pdf.LineTo(pts[0].X, pts[0].Y)
		case shape.CubeTo:
			g.pdf.CurveBezierCubicTo(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, pts[2].X, pts[2].Y)
		case shape.Close:
			g.pdf.ClosePath()
		}
	}
	g.pdf.DrawPath("F")
}

func (g *GoFPDF) Output(w io.Writer) error {
	return g.pdf.Output(w)
}

func (g *GoFPDF) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	err := g.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *GoFPDF) Export(outputPath string) error {
	return g.pdf.OutputFileAndClose(outputPath)
}
