// Package background runs periodic progress callbacks for long operations.
package background

import (
	"context"
	"time"
)

// Repeat calls do every interval until cancel is called or ctx is done.
func Repeat(ctx context.Context, do func(), interval time.Duration) (cancel func()) {
	t := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer t.Stop()
		for {
			select {
			case <-t.C:
				do()
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	stopped := false
	return func() {
		if !stopped {
			stopped = true
			close(done)
		}
	}
}
