package spcli

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"oss.terrastruct.com/sketchpad/lib/background"
	"oss.terrastruct.com/sketchpad/lib/pdf"
	"oss.terrastruct.com/sketchpad/lib/xgif"
	"oss.terrastruct.com/sketchpad/lib/xmain"
	"oss.terrastruct.com/sketchpad/sprenderers/sppng"
	"oss.terrastruct.com/sketchpad/sprenderers/spsvg"
	"oss.terrastruct.com/sketchpad/spstate"
)

type exportExtension string

const GIF exportExtension = ".gif"
const PNG exportExtension = ".png"
const PDF exportExtension = ".pdf"
const SVG exportExtension = ".svg"

var SUPPORTED_EXTENSIONS = []exportExtension{PNG, SVG, PDF, GIF}

var STDOUT_FORMAT_MAP = map[string]exportExtension{
	"png": PNG,
	"svg": SVG,
	"pdf": PDF,
	"gif": GIF,
}

var SUPPORTED_STDOUT_FORMATS = []string{"png", "svg", "pdf", "gif"}

func getOutputFormat(stdoutFormatFlag *string, outputPath string) (exportExtension, error) {
	if stdoutFormatFlag != nil && *stdoutFormatFlag != "" {
		format := strings.ToLower(*stdoutFormatFlag)
		if ext, ok := STDOUT_FORMAT_MAP[format]; ok {
			return ext, nil
		}
		return "", fmt.Errorf("%s is not a supported format. Supported formats are: %s", *stdoutFormatFlag, SUPPORTED_STDOUT_FORMATS)
	}
	return getExportExtension(outputPath), nil
}

func getExportExtension(outputPath string) exportExtension {
	ext := strings.ToLower(filepath.Ext(outputPath))
	for _, kext := range SUPPORTED_EXTENSIONS {
		if kext == exportExtension(ext) {
			return kext
		}
	}
	// default is png
	return PNG
}

func (ex exportExtension) supportsAnimation() bool {
	return ex == GIF
}

// export encodes the session in the given format. GIFs animate every history
// entry, every other format renders the current document without selection.
func export(ctx context.Context, ms *xmain.State, s *spstate.Session, ext exportExtension, animateInterval int64) ([]byte, error) {
	canvas := s.Canvas()
	switch ext {
	case SVG:
		doc := s.Document()
		doc.SelectedID = ""
		return spsvg.Render(doc, &spsvg.RenderOpts{
			Canvas:   &canvas,
			ShowGrid: s.ShowGrid(),
		})
	case PDF:
		doc := pdf.Init(canvas)
		err := doc.AddPage(s.Shapes(), s.ShowGrid())
		if err != nil {
			return nil, err
		}
		return doc.Bytes()
	case GIF:
		return exportHistory(ctx, ms, s, animateInterval)
	default:
		return sppng.Export(ctx, s.Shapes(), &sppng.RenderOpts{
			Canvas:   &canvas,
			ShowGrid: s.ShowGrid(),
		})
	}
}

func exportHistory(ctx context.Context, ms *xmain.State, s *spstate.Session, animateInterval int64) ([]byte, error) {
	cancel := background.Repeat(ctx, func() {
		ms.Log.Info.Printf("generating GIF...")
	}, time.Second*5)
	defer cancel()

	canvas := s.Canvas()
	opts := &sppng.RenderOpts{
		Canvas:   &canvas,
		ShowGrid: s.ShowGrid(),
	}
	entries := s.History().Entries()
	frames := make([]image.Image, 0, len(entries))
	for i, shapes := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := sppng.Render(shapes, opts)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i, err)
		}
		frames = append(frames, img)
	}
	return xgif.Animate(frames, int(animateInterval))
}
