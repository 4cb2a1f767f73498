// Package sppng rasterizes a shape list into a PNG.
//
// The output only depends on its inputs: the same shapes and options always
// produce the same bytes.
package sppng

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"cdr.dev/slog"
	"golang.org/x/image/vector"

	"oss.terrastruct.com/xdefer"

	spcolor "oss.terrastruct.com/sketchpad/lib/color"
	"oss.terrastruct.com/sketchpad/lib/log"
	"oss.terrastruct.com/sketchpad/lib/shape"
	"oss.terrastruct.com/sketchpad/sptarget"
)

type RenderOpts struct {
	Canvas   *sptarget.Canvas
	ShowGrid bool
}

func (o *RenderOpts) canvas() sptarget.Canvas {
	if o == nil || o.Canvas == nil {
		return sptarget.DefaultCanvas()
	}
	return *o.Canvas
}

func Render(shapes []sptarget.Shape, opts *RenderOpts) (_ *image.RGBA, err error) {
	defer xdefer.Errorf(&err, "failed to render png")

	canvas := opts.canvas()
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", canvas.Width, canvas.Height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))

	bg, err := spcolor.Parse(canvas.Background)
	if err != nil {
		return nil, err
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	if opts != nil && opts.ShowGrid {
		err = drawGrid(dst, canvas)
		if err != nil {
			return nil, err
		}
	}

	for _, s := range shapes {
		err = drawShape(dst, s)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", s.ID, err)
		}
	}
	return dst, nil
}

// drawGrid draws 1px lines, each composited on its own so crossings are
// covered twice.
func drawGrid(dst *image.RGBA, canvas sptarget.Canvas) error {
	c, err := spcolor.Parse(sptarget.GRID_COLOR)
	if err != nil {
		return err
	}
	c.A = alpha(sptarget.GRID_OPACITY)
	src := image.NewUniform(c)

	xs, ys := canvas.GridLines()
	for _, x := range xs {
		draw.Draw(dst, image.Rect(x, 0, x+1, canvas.Height), src, image.Point{}, draw.Over)
	}
	for _, y := range ys {
		draw.Draw(dst, image.Rect(0, y, canvas.Width, y+1), src, image.Point{}, draw.Over)
	}
	return nil
}

func drawShape(dst *image.RGBA, s sptarget.Shape) error {
	fill, err := spcolor.Parse(s.Style.Color)
	if err != nil {
		return err
	}
	fill.A = uint8(float64(fill.A) * float64(alpha(s.Style.Opacity)) / 255)
	if fill.A == 0 {
		return nil
	}

	g := s.Geometry()
	p := g.Outline().Transform(g.Placement())

	b := dst.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.DrawOp = draw.Over
	for _, op := range p.Ops {
		pts := op.Points
		switch op.Kind {
		case shape.MoveTo:
			r.MoveTo(float32(pts[0].X), float32(pts[0].Y))
		case shape.LineTo:
			r.LineTo(float32(pts[0].X), float32(pts[0].Y))
		case shape.CubeTo:
			r.CubeTo(
				float32(pts[0].X), float32(pts[0].Y),
				float32(pts[1].X), float32(pts[1].Y),
				float32(pts[2].X), float32(pts[2].Y),
			)
		case shape.Close:
			r.ClosePath()
		}
	}
	r.Draw(dst, b, image.NewUniform(fill), image.Point{})
	return nil
}

func alpha(opacity float64) uint8 {
	if opacity <= 0 {
		return 0
	}
	if opacity >= 1 {
		return 255
	}
	return uint8(opacity*255 + 0.5)
}

// Export renders shapes and encodes the result as a PNG.
func Export(ctx context.Context, shapes []sptarget.Shape, opts *RenderOpts) (_ []byte, err error) {
	defer xdefer.Errorf(&err, "failed to export png")

	img, err := Render(shapes, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	err = enc.Encode(&buf, img)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "exported png",
		slog.F("shapes", len(shapes)),
		slog.F("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

// At returns the color of the pixel at x, y as straight alpha, for callers that
// compare renders with CSS colors.
func At(img *image.RGBA, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}
