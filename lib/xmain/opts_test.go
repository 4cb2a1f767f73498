package xmain

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"
)

func newOpts(t *testing.T, env []string, args ...string) *Opts {
	t.Helper()
	e := xos.NewEnv(env)
	return NewOpts(e, cmdlog.NewTB(e, t), args)
}

func TestOptsEnv(t *testing.T) {
	t.Parallel()

	o := newOpts(t, []string{"SKETCHPAD_GRID=1", "PORT=8080", "SKETCHPAD_WATCH=false"}, "--port", "9000")
	grid, err := o.Bool("SKETCHPAD_GRID", "grid", "g", false, "")
	require.NoError(t, err)
	watch, err := o.Bool("SKETCHPAD_WATCH", "watch", "w", true, "")
	require.NoError(t, err)
	port, err := o.Int64("PORT", "port", "p", 0, "")
	require.NoError(t, err)
	host := o.String("HOST", "host", "", "localhost", "")

	require.NoError(t, o.Flags.Parse(o.Args))
	assert.True(t, *grid)
	assert.False(t, *watch)
	assert.Equal(t, int64(9000), *port)
	assert.Equal(t, "localhost", *host)

	help := o.Help()
	assert.Contains(t, help, "--grid")
	assert.Contains(t, help, "- $SKETCHPAD_GRID")
}

func TestOptsInvalidEnv(t *testing.T) {
	t.Parallel()

	o := newOpts(t, []string{"SKETCHPAD_GRID=maybe", "PORT=abc", "SKETCHPAD_INTERVAL=soon"})
	_, err := o.Bool("SKETCHPAD_GRID", "grid", "", false, "")
	assert.EqualError(t, err, `invalid environment variable SKETCHPAD_GRID. Expected bool. Found "maybe".`)
	_, err = o.Int64("PORT", "port", "", 0, "")
	assert.EqualError(t, err, `invalid environment variable PORT. Expected int64. Found "abc".`)
	_, err = o.Duration("SKETCHPAD_INTERVAL", "interval", "", time.Second, "")
	assert.Error(t, err)
}

func TestOptsDuration(t *testing.T) {
	t.Parallel()

	o := newOpts(t, []string{"SKETCHPAD_TIMEOUT=90", "SKETCHPAD_INTERVAL=1m"})
	timeout, err := o.Duration("SKETCHPAD_TIMEOUT", "timeout", "", time.Minute, "")
	require.NoError(t, err)
	interval, err := o.Duration("SKETCHPAD_INTERVAL", "interval", "", time.Second, "")
	require.NoError(t, err)
	require.NoError(t, o.Flags.Parse(nil))
	assert.Equal(t, 90*time.Second, *timeout)
	assert.Equal(t, time.Minute, *interval)
}

func TestWritePath(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	ms := &State{
		Stdin:  bytes.NewBufferString("events: []"),
		Stdout: nopCloser{&stdout},
	}
	b, err := ms.ReadPath("-")
	require.NoError(t, err)
	assert.Equal(t, "events: []", string(b))

	require.NoError(t, ms.WritePath("-", []byte("png")))
	assert.Equal(t, "png", stdout.String())
}

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error {
	return nil
}

func TestErrors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exiting with code 2: nope", ExitErrorf(2, "nope").Error())
	assert.Equal(t, "bad usage: too many args", UsageErrorf("too many %s", "args").Error())
}
