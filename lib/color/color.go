package color

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"
)

const (
	// Special
	Empty = ""
	None  = "none"
)

// Parse accepts any CSS color string and returns the non-premultiplied color.
func Parse(colorString string) (color.NRGBA, error) {
	c, err := csscolorparser.Parse(colorString)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", colorString, err)
	}
	return color.NRGBA{
		R: to255(c.R),
		G: to255(c.G),
		B: to255(c.B),
		A: to255(c.A),
	}, nil
}

func to255(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func IsValid(colorString string) bool {
	if colorString == Empty || colorString == None {
		return false
	}
	_, err := csscolorparser.Parse(colorString)
	return err == nil
}

// Normalize returns the lowercase #rrggbb form of colorString.
func Normalize(colorString string) (string, error) {
	c, err := csscolorparser.Parse(colorString)
	if err != nil {
		return "", fmt.Errorf("invalid color %q: %w", colorString, err)
	}
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex(), nil
}

func Darken(colorString string) (string, error) {
	return darkenCSS(colorString)
}

func darkenCSS(colorString string) (string, error) {
	c, err := csscolorparser.Parse(colorString)
	if err != nil {
		return "", err
	}
	h, s, l := colorful.Color{R: c.R, G: c.G, B: c.B}.Hsl()
	// decrease luminance by 10%
	return colorful.Hsl(h, s, l-.1).Clamped().Hex(), nil
}

func LuminanceCategory(colorString string) (string, error) {
	l, err := Luminance(colorString)
	if err != nil {
		return "", err
	}

	switch {
	case l >= .88:
		return "bright", nil
	case l >= .55:
		return "normal", nil
	case l >= .30:
		return "dark", nil
	default:
		return "darker", nil
	}
}

func Luminance(colorString string) (float64, error) {
	c, err := csscolorparser.Parse(colorString)
	if err != nil {
		return 0, err
	}

	l := float64(
		float64(0.299)*float64(c.R) +
			float64(0.587)*float64(c.G) +
			float64(0.114)*float64(c.B),
	)
	return l, nil
}

// Highlight is the outline color drawn around a selected shape: a darker shade
// of its fill, or white when the fill is already too dark to darken visibly.
func Highlight(colorString string) (string, error) {
	cat, err := LuminanceCategory(colorString)
	if err != nil {
		return "", err
	}
	if cat == "darker" {
		return "#ffffff", nil
	}
	return Darken(colorString)
}
