package spcli

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"

	"oss.terrastruct.com/sketchpad/lib/geo"
	"oss.terrastruct.com/sketchpad/lib/go2"
	"oss.terrastruct.com/sketchpad/lib/log"
	"oss.terrastruct.com/sketchpad/lib/xmain"
	"oss.terrastruct.com/sketchpad/spinput"
	"oss.terrastruct.com/sketchpad/spscript"
	"oss.terrastruct.com/sketchpad/sptarget"
)

func newTestPlayServer(t *testing.T) (*playServer, *httptest.Server) {
	t.Helper()

	env := xos.NewEnv([]string{"BROWSER=0"})
	ms := &xmain.State{
		Name: "sketchpad",
		Env:  env,
		Log:  cmdlog.NewTB(env, t),
	}
	ms.Opts = xmain.NewOpts(env, ms.Log, nil)

	ctx := log.WithTB(context.Background(), t, nil)
	p, err := newPlayServer(ctx, ms, sessionOpts{canvas: sptarget.DefaultCanvas()})
	require.NoError(t, err)
	p.mu.Lock()
	p.broadcastLocked()
	p.mu.Unlock()

	srv := httptest.NewServer(p.handler())
	t.Cleanup(func() {
		p.close()
		srv.Close()
	})
	return p, srv
}

func getState(t *testing.T, srv *httptest.Server) playState {
	t.Helper()

	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st playState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

type testConn struct {
	t   *testing.T
	ctx context.Context
	c   *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *testConn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/session", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close(websocket.StatusNormalClosure, "")
	})
	return &testConn{t: t, ctx: ctx, c: c}
}

func (tc *testConn) read() map[string]interface{} {
	tc.t.Helper()
	var msg map[string]interface{}
	require.NoError(tc.t, wsjson.Read(tc.ctx, tc.c, &msg))
	return msg
}

// send writes ev and returns the reply to it, skipping state broadcasts.
func (tc *testConn) send(ev playEvent) playReply {
	tc.t.Helper()
	require.NoError(tc.t, wsjson.Write(tc.ctx, tc.c, ev))
	return tc.reply()
}

func (tc *testConn) reply() playReply {
	tc.t.Helper()
	for {
		_, b, err := tc.c.Read(tc.ctx)
		require.NoError(tc.t, err)
		var reply playReply
		require.NoError(tc.t, json.Unmarshal(b, &reply))
		if reply.Type == "reply" {
			return reply
		}
	}
}

func TestPlaySession(t *testing.T) {
	t.Parallel()

	_, srv := newTestPlayServer(t)
	c := dial(t, srv)

	first := c.read()
	assert.Equal(t, "state", first["type"])
	assert.Contains(t, first["svg"], "<svg")
	assert.Equal(t, []interface{}{}, first["shapes"])

	r := c.send(playEvent{Type: "add", Kind: "circle", Seq: 1})
	assert.Equal(t, playReply{Type: "reply", Seq: 1, Handled: true}, r)

	st := getState(t, srv)
	require.Len(t, st.Shapes, 1)
	id := st.Shapes[0].ID
	assert.Equal(t, id, st.SelectedID)
	assert.Equal(t, geo.Point{X: 350, Y: 250}, st.Shapes[0].Position)
	assert.Equal(t, 2, st.Len)
	assert.True(t, st.CanUndo)
	assert.Contains(t, st.SVG, "shape circle selected")

	assert.True(t, c.send(playEvent{Type: "origin", X: 10, Y: 20, Seq: 2}).Handled)
	assert.True(t, c.send(playEvent{Type: "press", X: 410, Y: 320, Seq: 3}).Handled)
	assert.True(t, c.send(playEvent{Type: "move", X: 510, Y: 320, Seq: 4}).Handled)
	assert.True(t, c.send(playEvent{Type: "release", Seq: 5}).Handled)

	st = getState(t, srv)
	assert.Equal(t, geo.Point{X: 450, Y: 250}, st.Shapes[0].Position)
	assert.Equal(t, 3, st.Len)

	r = c.send(playEvent{Type: "key", Key: &spinput.KeyEvent{Key: "s", Meta: true}, Seq: 6})
	assert.True(t, r.Handled)
	assert.True(t, r.Export)

	assert.True(t, c.send(playEvent{Type: "key", Key: &spinput.KeyEvent{Key: "z", Ctrl: true}, Seq: 7}).Handled)
	st = getState(t, srv)
	assert.Equal(t, geo.Point{X: 350, Y: 250}, st.Shapes[0].Position)
	assert.True(t, st.CanRedo)

	assert.False(t, c.send(playEvent{Type: "key", Key: &spinput.KeyEvent{Key: "z"}, Seq: 8}).Handled)

	assert.True(t, c.send(playEvent{Type: "style", Style: &spscript.StyleEvent{Opacity: go2.Pointer(50.)}, Seq: 9}).Handled)
	assert.True(t, c.send(playEvent{Type: "commit_style", Seq: 10}).Handled)
	st = getState(t, srv)
	assert.Equal(t, 0.5, st.Style.Opacity)
	assert.Equal(t, 3, st.Len)
	assert.False(t, st.CanRedo)

	assert.True(t, c.send(playEvent{Type: "toggle_grid", Seq: 11}).Handled)
	assert.True(t, getState(t, srv).ShowGrid)

	assert.True(t, c.send(playEvent{Type: "click", Seq: 12}).Handled)
	assert.Equal(t, "", getState(t, srv).SelectedID)
	assert.False(t, c.send(playEvent{Type: "duplicate", Seq: 13}).Handled)
	assert.True(t, c.send(playEvent{Type: "select", ID: id, Seq: 14}).Handled)
	assert.True(t, c.send(playEvent{Type: "delete", Seq: 15}).Handled)
	assert.Empty(t, getState(t, srv).Shapes)
}

func TestPlayErrors(t *testing.T) {
	t.Parallel()

	_, srv := newTestPlayServer(t)
	c := dial(t, srv)

	r := c.send(playEvent{Type: "jump", Seq: 1})
	assert.False(t, r.Handled)
	assert.Equal(t, `unknown event type "jump"`, r.Err)

	r = c.send(playEvent{Type: "add", Kind: "hexagon", Seq: 2})
	assert.Contains(t, r.Err, `unknown shape kind "hexagon"`)

	r = c.send(playEvent{Type: "key", Seq: 3})
	assert.Equal(t, "key event without key", r.Err)

	require.NoError(t, c.c.Write(c.ctx, websocket.MessageText, []byte("{")))
	r = c.reply()
	assert.Equal(t, 0, r.Seq)
	assert.Contains(t, r.Err, "invalid event")

	// Still usable.
	assert.True(t, c.send(playEvent{Type: "add", Kind: "star", Seq: 4}).Handled)
}

func TestPlayInvalidStyle(t *testing.T) {
	t.Parallel()

	_, srv := newTestPlayServer(t)
	c := dial(t, srv)

	require.True(t, c.send(playEvent{Type: "add", Kind: "circle", Seq: 1}).Handled)

	r := c.send(playEvent{Type: "style", Style: &spscript.StyleEvent{Color: go2.Pointer(`red" onload="alert(1)`)}, Seq: 2})
	assert.False(t, r.Handled)
	assert.Contains(t, r.Err, "invalid color")

	r = c.send(playEvent{Type: "style", Style: &spscript.StyleEvent{}, Seq: 3})
	assert.False(t, r.Handled)
	assert.Equal(t, "style event sets nothing", r.Err)

	assert.False(t, c.send(playEvent{Type: "commit_style", Seq: 4}).Handled)

	st := getState(t, srv)
	assert.Equal(t, 2, st.Len)
	require.Len(t, st.Shapes, 1)
	assert.Equal(t, sptarget.DEFAULT_COLOR, st.Shapes[0].Style.Color)
	assert.Equal(t, sptarget.DEFAULT_COLOR, st.Style.Color)

	resp, err := http.Get(srv.URL + "/export.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Valid colors still apply.
	assert.True(t, c.send(playEvent{Type: "style", Style: &spscript.StyleEvent{Color: go2.Pointer("#ff0000")}, Seq: 5}).Handled)
	assert.True(t, c.send(playEvent{Type: "commit_style", Seq: 6}).Handled)
	assert.Equal(t, 3, getState(t, srv).Len)
}

func TestPlayHTTP(t *testing.T) {
	t.Parallel()

	p, srv := newTestPlayServer(t)
	p.mu.Lock()
	p.session.AddShape(sptarget.KindRectangle)
	p.mu.Unlock()

	resp, err := http.Get(srv.URL + "/export.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=canvas-export.png`, resp.Header.Get("Content-Disposition"))
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)
	req, err := http.NewRequest("GET", srv.URL+"/export.png", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)

	p.mu.Lock()
	p.session.ToggleGrid()
	p.mu.Unlock()
	resp2, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.NotEqual(t, etag, resp2.Header.Get("ETag"))

	resp, err = http.Post(srv.URL+"/export.png", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET", resp.Header.Get("Allow"))

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	b, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(b), `id="sp-toolbar"`)

	for _, path := range []string{"/static/play.js", "/static/watch.js", "/static/sketchpad.css"} {
		resp, err = http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlayLoad(t *testing.T) {
	t.Parallel()

	p, srv := newTestPlayServer(t)
	script, err := spscript.Parse([]byte(`
grid: true
events:
  - add: triangle
  - add: star
  - key: ctrl+s
`))
	require.NoError(t, err)
	require.NoError(t, p.load(script, time.Minute))

	st := getState(t, srv)
	assert.Len(t, st.Shapes, 2)
	assert.True(t, st.ShowGrid)
	assert.Equal(t, 2, st.Step)

	// The shortcut in the script does not trigger a download later.
	c := dial(t, srv)
	assert.False(t, c.send(playEvent{Type: "redo", Seq: 1}).Export)
}
