// Package env reads the process environment switches shared by every command.
package env

import (
	"os"
	"strconv"
	"time"
)

// Debug reports whether DEBUG is set to a true value. Unparseable non empty
// values count as true so DEBUG=yes works.
func Debug() bool {
	return truthy(os.Getenv("DEBUG"))
}

// Timeout is SKETCHPAD_TIMEOUT, either whole seconds or a Go duration like 90s.
func Timeout() (time.Duration, bool) {
	s := os.Getenv("SKETCHPAD_TIMEOUT")
	if s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(i) * time.Second, true
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	return 0, false
}

func truthy(s string) bool {
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return true
	}
	return b
}
