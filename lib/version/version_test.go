package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDev(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "v1.2.3-HEAD"
	assert.True(t, Dev())

	Version = "v1.2.3"
	assert.False(t, Dev())
}
