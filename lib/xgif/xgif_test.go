package xgif

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestAnimate(t *testing.T) {
	t.Parallel()

	frames := []image.Image{
		solid(40, 30, color.RGBA{R: 0x2d, G: 0x2d, B: 0x2d, A: 0xff}),
		solid(40, 30, color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}),
		solid(40, 30, color.White),
	}
	interval := 500
	gifBytes, err := Animate(frames, interval)
	require.NoError(t, err)
	require.NoError(t, Validate(gifBytes, len(frames), interval))

	anim, err := gif.DecodeAll(bytes.NewReader(gifBytes))
	require.NoError(t, err)
	r, g, b, _ := anim.Image[1].At(10, 10).RGBA()
	assert.Equal(t, []uint32{0x3b, 0x82, 0xf6}, []uint32{r >> 8, g >> 8, b >> 8})

	again, err := Animate(frames, interval)
	require.NoError(t, err)
	assert.Equal(t, gifBytes, again)
}

func TestAnimateSingleFrame(t *testing.T) {
	t.Parallel()

	gifBytes, err := Animate([]image.Image{solid(10, 10, color.Black)}, 1000)
	require.NoError(t, err)
	assert.NoError(t, Validate(gifBytes, 1, 1000))
}

func TestAnimateErrors(t *testing.T) {
	t.Parallel()

	_, err := Animate(nil, 100)
	assert.Error(t, err)

	_, err = Animate([]image.Image{solid(10, 10, color.Black), solid(20, 10, color.Black)}, 100)
	assert.EqualError(t, err, "frame 1 is (20,10), expected (10,10)")
}
