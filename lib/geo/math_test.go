package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapToGrid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in  float64
		exp float64
	}{
		{0, 0},
		{9.99, 0},
		{10, 20},
		{29, 20},
		{30, 40},
		{-10, 0},
		{-10.01, -20},
		{733, 740},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.exp, SnapToGrid(tc.in, 20), "SnapToGrid(%v, 20)", tc.in)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 700.0, Clamp(750, 0, 700))
	assert.Equal(t, 0.0, Clamp(-12, 0, 700))
	assert.Equal(t, 33.5, Clamp(33.5, 0, 700))
}

func TestFloorToGrid(t *testing.T) {
	assert.Equal(t, 760.0, FloorToGrid(770, 20))
	assert.Equal(t, 700.0, FloorToGrid(700, 20))
	assert.Equal(t, 5.0, FloorToGrid(5, 0))
}
