package spinput

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in     string
		exp    KeyEvent
		expErr string
	}{
		{in: "ctrl+z", exp: KeyEvent{Key: "z", Ctrl: true}},
		{in: "Ctrl+Shift+Z", exp: KeyEvent{Key: "z", Ctrl: true, Shift: true}},
		{in: "cmd+backspace", exp: KeyEvent{Key: "backspace", Meta: true}},
		{in: "alt+meta+s", exp: KeyEvent{Key: "s", Meta: true, Alt: true}},
		{in: "c", exp: KeyEvent{Key: "c"}},
		{in: "ctrl+", expErr: `invalid key "ctrl+"`},
		{in: "hyper+z", expErr: `invalid key "hyper+z": unknown modifier "hyper"`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			e, err := ParseKey(tc.in)
			if tc.expErr != "" {
				assert.EqualError(t, err, tc.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, e)
		})
	}
}

func TestKeyEventString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ctrl+shift+z", KeyEvent{Key: "Z", Ctrl: true, Shift: true}.String())
	assert.Equal(t, "meta+alt+s", KeyEvent{Key: "s", Meta: true, Alt: true}.String())
}
