package color

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	c, err := Parse("#3B82F6")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}, c)

	c, err = Parse("red")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, c)

	_, err = Parse("#zzzzzz")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	s, err := Normalize("#3B82F6")
	require.NoError(t, err)
	assert.Equal(t, "#3b82f6", s)

	s, err = Normalize("white")
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", s)
}

func TestIsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValid("#ff0000"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("none"))
	assert.False(t, IsValid("not-a-color"))
}

func TestHighlight(t *testing.T) {
	t.Parallel()

	h, err := Highlight("#000000")
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", h)

	h, err = Highlight("#3B82F6")
	require.NoError(t, err)
	d, err := Darken("#3B82F6")
	require.NoError(t, err)
	assert.Equal(t, d, h)

	l, err := Luminance(h)
	require.NoError(t, err)
	orig, err := Luminance("#3B82F6")
	require.NoError(t, err)
	assert.Less(t, l, orig)
}
