// Package go2 contains general utility helpers that should've been in Go.
package go2

func Pointer[T any](v T) *T {
	return &v
}
