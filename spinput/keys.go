package spinput

import (
	"fmt"
	"strings"
)

// KeyEvent mirrors the fields of a browser keydown event that shortcuts look at.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
}

func (e KeyEvent) String() string {
	var parts []string
	if e.Ctrl {
		parts = append(parts, "ctrl")
	}
	if e.Meta {
		parts = append(parts, "meta")
	}
	if e.Alt {
		parts = append(parts, "alt")
	}
	if e.Shift {
		parts = append(parts, "shift")
	}
	return strings.Join(append(parts, strings.ToLower(e.Key)), "+")
}

// ParseKey parses a combination like "ctrl+shift+z". Modifiers come first in any
// order, the last element is the key. cmd is accepted as an alias of meta.
func ParseKey(s string) (KeyEvent, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	var e KeyEvent
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return KeyEvent{}, fmt.Errorf("invalid key %q", s)
		}
		if i == len(parts)-1 {
			e.Key = p
			break
		}
		switch p {
		case "ctrl", "control":
			e.Ctrl = true
		case "meta", "cmd":
			e.Meta = true
		case "shift":
			e.Shift = true
		case "alt", "option":
			e.Alt = true
		default:
			return KeyEvent{}, fmt.Errorf("invalid key %q: unknown modifier %q", s, p)
		}
	}
	return e, nil
}
