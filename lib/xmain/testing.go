package xmain

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"syscall"
	"testing"

	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"
)

// TestState runs a RunFunc in a goroutine with in-memory stdio.
type TestState struct {
	Run   RunFunc
	Env   *xos.Env
	Args  []string
	PWD   string
	Stdin io.Reader

	Stdout *Buffer
	Stderr *Buffer

	sigs chan os.Signal
	done chan struct{}
	err  error
}

func (ts *TestState) Start(tb testing.TB, ctx context.Context) {
	tb.Helper()

	if ts.Env == nil {
		ts.Env = xos.NewEnv(nil)
	}
	if ts.Stdin == nil {
		ts.Stdin = bytes.NewReader(nil)
	}
	ts.Stdout = &Buffer{}
	ts.Stderr = &Buffer{}

	name := ""
	args := []string(nil)
	if len(ts.Args) > 0 {
		name = ts.Args[0]
		args = ts.Args[1:]
	}
	ms := &State{
		Name: name,

		Stdin:  ts.Stdin,
		Stdout: ts.Stdout,
		Stderr: ts.Stderr,

		Env: ts.Env,
		PWD: ts.PWD,
	}
	ms.Log = cmdlog.NewTB(ms.Env, tb)
	ms.Opts = NewOpts(ms.Env, ms.Log, args)

	ts.sigs = make(chan os.Signal, 1)
	ts.done = make(chan struct{})
	go func() {
		defer close(ts.done)
		ts.err = ms.Main(ctx, ts.sigs, ts.Run)
	}()
}

// Signal delivers SIGTERM as if the process received it.
func (ts *TestState) Signal() {
	select {
	case ts.sigs <- syscall.SIGTERM:
	default:
	}
}

func (ts *TestState) Wait(ctx context.Context) error {
	select {
	case <-ts.done:
		return ts.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ts *TestState) Cleanup(tb testing.TB) {
	tb.Helper()
	ts.Signal()
	<-ts.done
}

// Buffer is a goroutine safe bytes.Buffer that satisfies io.WriteCloser.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) Close() error {
	return nil
}

func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *Buffer) String() string {
	return string(b.Bytes())
}
