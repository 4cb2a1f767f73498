package go2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointer(t *testing.T) {
	t.Parallel()

	p := Pointer(3)
	q := Pointer(3)
	assert.Equal(t, 3, *p)
	assert.NotSame(t, p, q)
}
