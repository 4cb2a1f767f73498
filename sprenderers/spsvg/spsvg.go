// Package spsvg renders a document as the SVG shown in the live editor.
package spsvg

import (
	"bytes"
	"fmt"
	"strconv"

	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/sketchpad/lib/color"
	"oss.terrastruct.com/sketchpad/lib/svg"
	"oss.terrastruct.com/sketchpad/sptarget"
)

const SELECTION_STROKE_WIDTH = 3

type RenderOpts struct {
	Canvas   *sptarget.Canvas
	ShowGrid bool
}

func Render(doc *sptarget.Document, opts *RenderOpts) (_ []byte, err error) {
	defer xdefer.Errorf(&err, "failed to render svg")

	canvas := sptarget.DefaultCanvas()
	showGrid := false
	if opts != nil {
		if opts.Canvas != nil {
			canvas = *opts.Canvas
		}
		showGrid = opts.ShowGrid
	}
	if doc == nil {
		doc = sptarget.NewDocument()
	}

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		canvas.Width, canvas.Height, canvas.Width, canvas.Height)
	fmt.Fprintf(buf, `<rect class="background" x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		canvas.Width, canvas.Height, svg.EscapeText(canvas.Background))

	if showGrid {
		renderGrid(buf, canvas)
	}

	for _, s := range doc.Shapes {
		err = renderShape(buf, s, s.ID == doc.SelectedID)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", s.ID, err)
		}
	}

	buf.WriteString(`</svg>`)
	return buf.Bytes(), nil
}

func renderGrid(buf *bytes.Buffer, canvas sptarget.Canvas) {
	fmt.Fprintf(buf, `<g class="grid" fill="%s" fill-opacity="%s">`,
		sptarget.GRID_COLOR, formatFloat(sptarget.GRID_OPACITY))
	xs, ys := canvas.GridLines()
	for _, x := range xs {
		fmt.Fprintf(buf, `<rect x="%d" y="0" width="1" height="%d"/>`, x, canvas.Height)
	}
	for _, y := range ys {
		fmt.Fprintf(buf, `<rect x="0" y="%d" width="%d" height="1"/>`, y, canvas.Width)
	}
	buf.WriteString(`</g>`)
}

func renderShape(buf *bytes.Buffer, s sptarget.Shape, selected bool) error {
	if !color.IsValid(s.Style.Color) {
		return fmt.Errorf("invalid color %q", s.Style.Color)
	}
	g := s.Geometry()
	c := s.Center()

	transform := fmt.Sprintf("translate(%s %s)", formatFloat(c.X), formatFloat(c.Y))
	if s.Style.Rotation != 0 {
		transform += fmt.Sprintf(" rotate(%d)", s.Style.Rotation)
	}

	stroke := ""
	if selected {
		highlight, err := color.Highlight(s.Style.Color)
		if err != nil {
			return err
		}
		stroke = fmt.Sprintf(` stroke="%s" stroke-width="%d"`, highlight, SELECTION_STROKE_WIDTH)
	}

	fmt.Fprintf(buf, `<path class="shape %s%s" data-id="%s" transform="%s" d="%s" fill="%s" fill-opacity="%s"%s/>`,
		s.Kind,
		selectedClass(selected),
		svg.EscapeText(s.ID),
		transform,
		g.Outline().SVGData(),
		svg.EscapeText(s.Style.Color),
		formatFloat(s.Style.Opacity),
		stroke,
	)
	return nil
}

func selectedClass(selected bool) string {
	if selected {
		return " selected"
	}
	return ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
