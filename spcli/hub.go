package spcli

import (
	"context"
	"embed"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"oss.terrastruct.com/sketchpad/lib/xbrowser"
	"oss.terrastruct.com/sketchpad/lib/xhttp"
	"oss.terrastruct.com/sketchpad/lib/xmain"
)

//go:embed static
var staticFS embed.FS

// hub holds the websocket clients of a server and the latest message
// broadcast to them. New clients receive the latest message first.
type hub struct {
	ctx context.Context
	ms  *xmain.State

	wsclientsMu sync.Mutex
	closing     bool
	wsclientsWG sync.WaitGroup
	wsclients   map[*wsclient]struct{}

	resMu sync.Mutex
	res   interface{}
}

func newHub(ctx context.Context, ms *xmain.State) *hub {
	return &hub{
		ctx:       ctx,
		ms:        ms,
		wsclients: make(map[*wsclient]struct{}),
	}
}

// close stops accepting clients and waits for the connected ones to finish.
// It reports whether this call did the closing.
func (h *hub) close() bool {
	h.wsclientsMu.Lock()
	if h.closing {
		h.wsclientsMu.Unlock()
		return false
	}
	h.closing = true
	h.wsclientsMu.Unlock()
	return true
}

func (h *hub) wait() {
	h.wsclientsWG.Wait()
}

func (h *hub) getRes() interface{} {
	h.resMu.Lock()
	defer h.resMu.Unlock()
	return h.res
}

// accept upgrades the request. read consumes client messages until it returns;
// with a nil read, client messages are discarded.
func (h *hub) accept(hw http.ResponseWriter, r *http.Request, read func(context.Context, *wsclient) error) error {
	h.wsclientsMu.Lock()
	if h.closing {
		h.wsclientsMu.Unlock()
		return xhttp.Errorf(http.StatusServiceUnavailable, nil, "server shutting down")
	}
	// We must register ourselves before we even upgrade the connection to ensure that
	// close() will wait for us. If we instead registered afterwards, then there is a
	// brief period between the hijack and the registration where close may return without
	// waiting for us to finish.
	h.wsclientsWG.Add(1)
	h.wsclientsMu.Unlock()

	c, err := websocket.Accept(hw, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.wsclientsWG.Done()
		return err
	}

	go func() {
		defer h.wsclientsWG.Done()
		var readWG sync.WaitGroup
		defer readWG.Wait()
		defer c.Close(websocket.StatusInternalError, "the sky is falling")

		ctx, cancel := context.WithTimeout(h.ctx, time.Hour)
		defer cancel()

		cl := &wsclient{
			h:         h,
			resultsCh: make(chan struct{}, 1),
			c:         c,
		}

		h.wsclientsMu.Lock()
		h.wsclients[cl] = struct{}{}
		h.wsclientsMu.Unlock()
		defer func() {
			h.wsclientsMu.Lock()
			delete(h.wsclients, cl)
			h.wsclientsMu.Unlock()
		}()

		if read == nil {
			ctx = cl.c.CloseRead(ctx)
		} else {
			readWG.Add(1)
			go func() {
				defer readWG.Done()
				defer cancel()
				err := read(ctx, cl)
				if err != nil && ctx.Err() == nil && websocket.CloseStatus(err) == -1 {
					h.ms.Log.Debug.Printf("websocket read: %v", err)
				}
			}()
		}
		go wsHeartbeat(ctx, cl.c)
		_ = cl.writeLoop(ctx)
	}()
	return nil
}

type wsclient struct {
	h         *hub
	resultsCh chan struct{}
	c         *websocket.Conn
}

func (cl *wsclient) writeLoop(ctx context.Context) error {
	for {
		res := cl.h.getRes()
		if res != nil {
			err := cl.write(ctx, res)
			if err != nil {
				return err
			}
		}

		select {
		case <-cl.resultsCh:
		case <-ctx.Done():
			cl.c.Close(websocket.StatusGoingAway, "server shutting down...")
			return ctx.Err()
		}
	}
}

func (cl *wsclient) write(ctx context.Context, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	return wsjson.Write(ctx, cl.c, v)
}

func (h *hub) broadcast(res interface{}) {
	h.resMu.Lock()
	h.res = res
	h.resMu.Unlock()

	h.wsclientsMu.Lock()
	defer h.wsclientsMu.Unlock()
	clientsSuffix := ""
	if len(h.wsclients) != 1 {
		clientsSuffix = "s"
	}
	h.ms.Log.Debug.Printf("broadcasting update to %d client%s", len(h.wsclients), clientsSuffix)
	for cl := range h.wsclients {
		select {
		case cl.resultsCh <- struct{}{}:
		default:
		}
	}
}

func wsHeartbeat(ctx context.Context, c *websocket.Conn) {
	defer c.Close(websocket.StatusInternalError, "the sky is falling")

	t := time.NewTimer(0)
	<-t.C
	for {
		err := c.Ping(ctx)
		if err != nil {
			return
		}

		t.Reset(time.Second * 30)
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
}

func staticFileServer() (http.Handler, error) {
	sfs, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	return http.FileServer(http.FS(sfs)), nil
}

func listen(ms *xmain.State, host, port string) (net.Listener, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}
	ms.Log.Success.Printf("listening on http://%v", l.Addr())
	return l, nil
}

func openBrowser(ctx context.Context, ms *xmain.State, l net.Listener) {
	url := "http://" + l.Addr().String()
	err := xbrowser.Open(ctx, ms.Env, url)
	if err != nil {
		ms.Log.Warn.Printf("failed to open browser to %v: %v", url, err)
	}
}
