// Package xmain runs a command: it wires stdio, environment, flags and logging
// into a State, cancels the run on SIGINT or SIGTERM and maps errors to exit
// codes.
package xmain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"
)

type RunFunc func(context.Context, *State) error

// DefaultShutdownTimeout is how long a run may take to return after a signal.
const DefaultShutdownTimeout = time.Minute

func Main(run RunFunc) {
	name := ""
	args := []string(nil)
	if len(os.Args) > 0 {
		name = os.Args[0]
		args = os.Args[1:]
	}

	ms := &State{
		Name: name,

		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,

		Env: xos.NewEnv(os.Environ()),
	}
	ms.PWD, _ = os.Getwd()
	ms.Log = cmdlog.New(ms.Env, os.Stderr)
	ms.Opts = NewOpts(ms.Env, ms.Log, args)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	err := ms.Main(context.Background(), sigs, run)
	code, msg := exitCode(err)
	if msg != "" {
		ms.Log.Error.Print(msg)
	}
	if code != 0 {
		os.Exit(code)
	}
}

// exitCode maps the error a run returned to a process exit code and the
// message to print. Usage errors exit 2.
func exitCode(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var eerr ExitError
	if errors.As(err, &eerr) {
		return eerr.Code, eerr.Message
	}
	var uerr UsageError
	if errors.As(err, &uerr) {
		return 2, err.Error() + "\nRun with --help to see usage."
	}
	return 1, err.Error()
}

type State struct {
	Name string

	Stdin  io.Reader
	Stdout io.WriteCloser
	Stderr io.WriteCloser

	Log  *cmdlog.Logger
	Env  *xos.Env
	Opts *Opts
	PWD  string

	// ShutdownTimeout defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

// Main runs run until it returns or a signal arrives. After a signal, ctx is
// canceled and run gets ShutdownTimeout to return. A clean return after
// SIGTERM is success. After SIGINT it exits 1 so scripts notice the interrupt.
func (ms *State) Main(ctx context.Context, sigs <-chan os.Signal, run RunFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- run(ctx, ms)
	}()

	var sig os.Signal
	select {
	case err := <-done:
		return err
	case sig = <-sigs:
	}

	ms.Log.Warn.Printf("received signal %v: shutting down...", sig)
	cancel()

	timeout := ms.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed to shutdown: %w", err)
		}
		if sig == syscall.SIGTERM {
			return nil
		}
		return ExitError{Code: 1}
	case <-t.C:
		return ExitErrorf(1, "took longer than %v to shutdown: exiting forcefully", timeout)
	}
}

type ExitError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func ExitErrorf(code int, msg string, v ...interface{}) ExitError {
	return ExitError{
		Code:    code,
		Message: fmt.Sprintf(msg, v...),
	}
}

func (ee ExitError) Error() string {
	s := fmt.Sprintf("exiting with code %d", ee.Code)
	if ee.Message != "" {
		s += ": " + ee.Message
	}
	return s
}

type UsageError struct {
	Message string `json:"message"`
}

func UsageErrorf(msg string, v ...interface{}) UsageError {
	return UsageError{
		Message: fmt.Sprintf(msg, v...),
	}
}

func (ue UsageError) Error() string {
	return fmt.Sprintf("bad usage: %s", ue.Message)
}

// ReadPath reads fp, or stdin for -.
func (ms *State) ReadPath(fp string) ([]byte, error) {
	if fp == "-" {
		return io.ReadAll(ms.Stdin)
	}
	b, err := os.ReadFile(fp)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ms.HumanPath(fp), err)
	}
	return b, nil
}

// WritePath writes p to fp, or to stdout for -, which is then closed.
// Files are replaced atomically so a reader never sees a partial export.
func (ms *State) WritePath(fp string, p []byte) (err error) {
	if fp == "-" {
		_, err := ms.Stdout.Write(p)
		if err != nil {
			return err
		}
		return ms.Stdout.Close()
	}

	f, err := os.CreateTemp(filepath.Dir(fp), "."+filepath.Base(fp)+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", ms.HumanPath(fp), err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(p); err != nil {
		return fmt.Errorf("failed to write %s: %w", ms.HumanPath(fp), err)
	}
	if err = f.Chmod(0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ms.HumanPath(fp), err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", ms.HumanPath(fp), err)
	}
	if err = os.Rename(f.Name(), fp); err != nil {
		return fmt.Errorf("failed to write %s: %w", ms.HumanPath(fp), err)
	}
	return nil
}

// AbsPath joins fp onto the working directory. - is left alone.
func (ms *State) AbsPath(fp string) string {
	if fp == "-" || filepath.IsAbs(fp) {
		return fp
	}
	return filepath.Join(ms.PWD, fp)
}

// HumanPath returns fp relative to the working directory when fp is inside it.
func (ms *State) HumanPath(fp string) string {
	if fp == "-" || ms.PWD == "" {
		return fp
	}
	fp = ms.AbsPath(fp)
	rel, err := filepath.Rel(ms.PWD, fp)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fp
	}
	return rel
}
