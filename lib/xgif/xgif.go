// xgif is a helper package to create GIF animations from rendered frames.
// All frames must have the same size. Each frame is quantized on its own
// (colors are aggregated in median buckets) so that it fits a 256 color palette.
package xgif

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"

	"github.com/ericpauley/go-quantize/quantize"
)

const INFINITE_LOOP = 0

func Animate(frames []image.Image, animIntervalMs int) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to animate")
	}
	bounds := frames[0].Bounds()

	interval := animIntervalMs / 10 // gif animation interval is in 100ths of a second
	anim := &gif.GIF{
		LoopCount: INFINITE_LOOP,
		Config: image.Config{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		},
	}
	if len(frames) == 1 {
		anim.LoopCount = -1
	}

	for i, img := range frames {
		if img.Bounds().Size() != bounds.Size() {
			return nil, fmt.Errorf("frame %d is %v, expected %v", i, img.Bounds().Size(), bounds.Size())
		}
		anim.Image = append(anim.Image, quantizeFrame(img))
		anim.Delay = append(anim.Delay, interval)
	}

	buf := bytes.NewBuffer(nil)
	err := gif.EncodeAll(buf, anim)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func quantizeFrame(img image.Image) *image.Paletted {
	b := img.Bounds()
	palette := quantize.MedianCutQuantizer{}.Quantize(make(color.Palette, 0, 256), img)
	frame := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette)
	draw.Draw(frame, frame.Bounds(), img, b.Min, draw.Src)
	return frame
}

func Validate(gifBytes []byte, nFrames int, intervalMS int) error {
	anim, err := gif.DecodeAll(bytes.NewBuffer(gifBytes))
	if err != nil {
		return err
	}

	if nFrames > 1 && anim.LoopCount != INFINITE_LOOP {
		return fmt.Errorf("expected infinite loop, got=%d", anim.LoopCount)
	} else if nFrames == 1 && anim.LoopCount != -1 {
		return fmt.Errorf("wrong loop count for single frame gif, got=%d", anim.LoopCount)
	}

	if len(anim.Image) != nFrames {
		return fmt.Errorf("expected %d frames, got=%d", nFrames, len(anim.Image))
	}

	interval := intervalMS / 10
	width, height := anim.Config.Width, anim.Config.Height
	for i, frame := range anim.Image {
		w := frame.Bounds().Dx()
		if w != width {
			return fmt.Errorf("expected all frames to have the same width=%d, got=%d at frame=%d", width, w, i)
		}
		h := frame.Bounds().Dy()
		if h != height {
			return fmt.Errorf("expected all frames to have the same height=%d, got=%d at frame=%d", height, h, i)
		}
		if anim.Delay[i] != interval {
			return fmt.Errorf("expected interval between frames to be %d, got=%d at frame=%d", interval, anim.Delay[i], i)
		}
	}

	return nil
}
