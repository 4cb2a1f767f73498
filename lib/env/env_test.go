package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeout(t *testing.T) {
	testCases := []struct {
		val   string
		exp   time.Duration
		expOK bool
	}{
		{val: "", expOK: false},
		{val: "12", exp: 12 * time.Second, expOK: true},
		{val: "90s", exp: 90 * time.Second, expOK: true},
		{val: "1m30s", exp: 90 * time.Second, expOK: true},
		{val: "abc", expOK: false},
	}
	for _, tc := range testCases {
		t.Setenv("SKETCHPAD_TIMEOUT", tc.val)
		v, ok := Timeout()
		assert.Equal(t, tc.expOK, ok, tc.val)
		assert.Equal(t, tc.exp, v, tc.val)
	}
}

func TestDebug(t *testing.T) {
	for val, exp := range map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"true":  true,
		"yes":   true,
	} {
		t.Setenv("DEBUG", val)
		assert.Equal(t, exp, Debug(), val)
	}
}
