package spcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"oss.terrastruct.com/sketchpad/lib/geo"
	"oss.terrastruct.com/sketchpad/lib/log"
	"oss.terrastruct.com/sketchpad/lib/xhttp"
	"oss.terrastruct.com/sketchpad/lib/xmain"
	"oss.terrastruct.com/sketchpad/sprenderers/sppng"
	"oss.terrastruct.com/sketchpad/sprenderers/spsvg"
	"oss.terrastruct.com/sketchpad/spinput"
	"oss.terrastruct.com/sketchpad/spscript"
	"oss.terrastruct.com/sketchpad/spstate"
	"oss.terrastruct.com/sketchpad/sptarget"
)

func playCmd(ctx context.Context, ms *xmain.State, opts sessionOpts, host, port string, timeout time.Duration) error {
	if len(ms.Opts.Flags.Args()) > 2 {
		return xmain.UsageErrorf("play accepts at most one argument: a script path or '-' for stdin")
	}

	var script *spscript.Script
	if len(ms.Opts.Flags.Args()) == 2 {
		inputPath := ms.AbsPath(ms.Opts.Flags.Arg(1))
		b, err := ms.ReadPath(inputPath)
		if err != nil {
			return xmain.UsageErrorf("%s", err.Error())
		}
		script, err = spscript.Parse(b)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", ms.HumanPath(inputPath), err)
		}
	}

	ps, err := newPlayServer(ctx, ms, opts)
	if err != nil {
		return err
	}
	if script != nil {
		err = ps.load(script, timeout)
		if err != nil {
			return err
		}
	}
	l, err := listen(ms, host, port)
	if err != nil {
		return err
	}
	return ps.run(l)
}

// playEvent is one input event from the editor page.
type playEvent struct {
	Type  string               `json:"type"`
	ID    string               `json:"id,omitempty"`
	Kind  string               `json:"kind,omitempty"`
	X     float64              `json:"x,omitempty"`
	Y     float64              `json:"y,omitempty"`
	Key   *spinput.KeyEvent    `json:"key,omitempty"`
	Style *spscript.StyleEvent `json:"style,omitempty"`
	// Seq is echoed in the reply. Events without one get a reply only on error.
	Seq int `json:"seq,omitempty"`
}

type playReply struct {
	Type    string `json:"type"`
	Seq     int    `json:"seq"`
	Handled bool   `json:"handled"`
	// Export asks the page to download /export.png.
	Export bool   `json:"export,omitempty"`
	Err    string `json:"err,omitempty"`
}

// playState is broadcast to every page after each change.
type playState struct {
	Type       string           `json:"type"`
	SVG        string           `json:"svg"`
	Shapes     []sptarget.Shape `json:"shapes"`
	SelectedID string           `json:"selectedId"`
	Style      sptarget.Style   `json:"style"`
	Canvas     sptarget.Canvas  `json:"canvas"`
	ShowGrid   bool             `json:"showGrid"`
	SnapToGrid bool             `json:"snapToGrid"`
	Step       int              `json:"step"`
	Len        int              `json:"len"`
	CanUndo    bool             `json:"canUndo"`
	CanRedo    bool             `json:"canRedo"`
}

type playServer struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ms   *xmain.State
	opts sessionOpts

	staticFileServer http.Handler
	hub              *hub

	// mu serializes every use of session and ctrl.
	mu       sync.Mutex
	session  *spstate.Session
	ctrl     *spinput.Controller
	dirty    bool
	exported bool

	errMu sync.Mutex
	err   error
}

func newPlayServer(ctx context.Context, ms *xmain.State, opts sessionOpts) (*playServer, error) {
	ctx, cancel := context.WithCancel(ctx)
	ctx = log.Named(ctx, "play")

	sfs, err := staticFileServer()
	if err != nil {
		cancel()
		return nil, err
	}
	p := &playServer{
		ctx:    ctx,
		cancel: cancel,

		ms:   ms,
		opts: opts,

		staticFileServer: sfs,
		hub:              newHub(ctx, ms),
	}
	p.reset(nil)
	return p, nil
}

// reset replaces the session with a fresh one configured by script.
func (p *playServer) reset(script *spscript.Script) {
	p.session = newSession(p.ctx, script, p.opts)
	p.session.Subscribe(func(spstate.Change) {
		p.dirty = true
	})
	p.ctrl = spinput.New(p.ctx, p.session)
	p.ctrl.OnExport = func() error {
		p.exported = true
		return nil
	}
	p.dirty = true
}

// load replays script into a fresh session.
func (p *playServer) load(script *spscript.Script, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset(script)
	ctx, cancel := log.WithTimeout(p.ctx, timeout)
	defer cancel()
	err := spscript.Run(ctx, script, p.ctrl)
	p.exported = false
	p.ms.Log.Info.Printf("loaded %d shapes at history step %d", len(p.session.Shapes()), p.session.History().Step())
	return err
}

func (p *playServer) run(l net.Listener) error {
	defer p.close()

	s := xhttp.NewServer(p.ms.Log.Warn, p.handler())
	p.goFunc(func(ctx context.Context) error {
		return xhttp.Serve(ctx, time.Second*30, s, l)
	})
	p.mu.Lock()
	p.broadcastLocked()
	p.mu.Unlock()
	openBrowser(p.ctx, p.ms, l)

	p.wg.Wait()
	p.close()
	return p.err
}

func (p *playServer) close() {
	if !p.hub.close() {
		return
	}
	p.cancel()
	p.hub.wait()
}

func (p *playServer) setErr(err error) {
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
}

func (p *playServer) goFunc(fn func(context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.cancel()

		err := fn(p.ctx)
		p.setErr(err)
	}()
}

func (p *playServer) handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", p.handleRoot)
	m.Handle("/static/", http.StripPrefix("/static", p.staticFileServer))
	m.Handle("/session", xhttp.HandlerFuncAdapter{Log: p.ms.Log, Func: p.handleSession})
	m.Handle("/state", xhttp.HandlerFuncAdapter{Log: p.ms.Log, Func: xhttp.AllowMethods(p.handleState, http.MethodGet, http.MethodHead)})
	m.Handle("/export.png", xhttp.HandlerFuncAdapter{Log: p.ms.Log, Func: xhttp.AllowMethods(p.handleExport, http.MethodGet)})
	return xhttp.Log(p.ms.Log, m)
}

func (p *playServer) handleRoot(hw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(hw, r)
		return
	}
	hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(hw, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>sketchpad</title>
	<script src="/static/play.js"></script>
	<link rel="stylesheet" href="/static/sketchpad.css">
</head>
<body>
	<div id="sp-toolbar">
		<button data-add="circle">Circle</button>
		<button data-add="rectangle">Rectangle</button>
		<button data-add="triangle">Triangle</button>
		<button data-add="star">Star</button>
		<span class="sp-sep"></span>
		<button id="sp-undo">Undo</button>
		<button id="sp-redo">Redo</button>
		<button id="sp-duplicate">Duplicate</button>
		<button id="sp-delete">Delete</button>
		<span class="sp-sep"></span>
		<label><input type="checkbox" id="sp-grid"> Grid</label>
		<label><input type="checkbox" id="sp-snap"> Snap</label>
		<a id="sp-export" href="/export.png" download>Export PNG</a>
		<span id="sp-history"></span>
	</div>
	<div id="sp-main">
		<div id="sp-svg-container"></div>
		<div id="sp-sidebar">
			<h3>Properties</h3>
			<label>Color <input type="color" id="sp-color"></label>
			<label>Size <input type="range" id="sp-size" min="20" max="200"></label>
			<label>Rotation <input type="range" id="sp-rotation" min="0" max="359"></label>
			<label>Opacity <input type="range" id="sp-opacity" min="0" max="100"></label>
			<h3>Layers</h3>
			<ul id="sp-layers"></ul>
		</div>
	</div>
	<div id="sp-err" style="display: none"></div>
</body>
</html>`)
}

func (p *playServer) handleSession(hw http.ResponseWriter, r *http.Request) error {
	return p.hub.accept(hw, r, p.readLoop)
}

func (p *playServer) readLoop(ctx context.Context, cl *wsclient) error {
	for {
		_, b, err := cl.c.Read(ctx)
		if err != nil {
			return err
		}
		var ev playEvent
		err = json.Unmarshal(b, &ev)
		var reply playReply
		if err != nil {
			reply = playReply{Type: "reply", Err: fmt.Sprintf("invalid event: %v", err)}
		} else {
			reply = p.handle(ev)
		}
		if ev.Seq == 0 && reply.Err == "" {
			continue
		}
		err = cl.write(ctx, reply)
		if err != nil {
			return err
		}
	}
}

// handle applies ev to the session and broadcasts the new state if anything
// changed.
func (p *playServer) handle(ev playEvent) playReply {
	p.mu.Lock()
	defer p.mu.Unlock()

	reply := playReply{
		Type: "reply",
		Seq:  ev.Seq,
	}
	handled, err := p.apply(ev)
	if err != nil {
		reply.Err = err.Error()
	}
	reply.Handled = handled
	if p.exported {
		p.exported = false
		reply.Export = true
	}
	if p.dirty {
		p.broadcastLocked()
	}
	return reply
}

func (p *playServer) apply(ev playEvent) (bool, error) {
	pt := geo.Point{X: ev.X, Y: ev.Y}
	switch ev.Type {
	case "add":
		kind, err := sptarget.ParseKind(ev.Kind)
		if err != nil {
			return false, err
		}
		p.session.AddShape(kind)
		return true, nil
	case "press":
		if ev.ID != "" {
			return p.ctrl.PointerDown(ev.ID, pt), nil
		}
		return p.ctrl.PointerDownAt(pt), nil
	case "move":
		p.ctrl.PointerMove(pt)
		return p.ctrl.Dragging(), nil
	case "release":
		return p.ctrl.PointerUp(), nil
	case "click":
		p.ctrl.CanvasClick()
		return true, nil
	case "select":
		p.session.SelectShape(ev.ID)
		return true, nil
	case "key":
		if ev.Key == nil {
			return false, errors.New("key event without key")
		}
		return p.ctrl.KeyDown(*ev.Key), nil
	case "style":
		if ev.Style == nil {
			return false, errors.New("style event without style")
		}
		err := ev.Style.Validate()
		if err != nil {
			return false, err
		}
		return p.session.UpdateSelectedStyle(ev.Style.Patch()), nil
	case "commit_style":
		return p.session.CommitStyle(), nil
	case "undo":
		return p.session.Undo(), nil
	case "redo":
		return p.session.Redo(), nil
	case "duplicate":
		_, ok := p.session.DuplicateSelected()
		return ok, nil
	case "delete":
		return p.session.DeleteSelected(), nil
	case "toggle_grid":
		p.session.ToggleGrid()
		return true, nil
	case "toggle_snap":
		p.session.ToggleSnap()
		return true, nil
	case "origin":
		p.ctrl.SetCanvasOrigin(pt)
		return true, nil
	default:
		return false, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// stateLocked snapshots the session. p.mu must be held.
func (p *playServer) stateLocked() (*playState, error) {
	s := p.session
	canvas := s.Canvas()
	doc := s.Document()
	svg, err := spsvg.Render(doc, &spsvg.RenderOpts{
		Canvas:   &canvas,
		ShowGrid: s.ShowGrid(),
	})
	if err != nil {
		return nil, err
	}
	style := s.PendingStyle()
	if sel, ok := s.Selected(); ok {
		style = sel.Style
	}
	h := s.History()
	return &playState{
		Type:       "state",
		SVG:        string(svg),
		Shapes:     doc.Shapes,
		SelectedID: doc.SelectedID,
		Style:      style,
		Canvas:     canvas,
		ShowGrid:   s.ShowGrid(),
		SnapToGrid: s.SnapToGrid(),
		Step:       h.Step(),
		Len:        h.Len(),
		CanUndo:    h.CanUndo(),
		CanRedo:    h.CanRedo(),
	}, nil
}

func (p *playServer) broadcastLocked() {
	p.dirty = false
	st, err := p.stateLocked()
	if err != nil {
		p.ms.Log.Error.Printf("failed to render session: %v", err)
		return
	}
	p.hub.broadcast(st)
}

func (p *playServer) handleState(hw http.ResponseWriter, r *http.Request) error {
	p.mu.Lock()
	st, err := p.stateLocked()
	p.mu.Unlock()
	if err != nil {
		return err
	}
	xhttp.JSON(p.ms.Log, hw, http.StatusOK, st)
	return nil
}

func (p *playServer) handleExport(hw http.ResponseWriter, r *http.Request) error {
	p.mu.Lock()
	doc := p.session.Document()
	canvas := p.session.Canvas()
	showGrid := p.session.ShowGrid()
	p.mu.Unlock()

	id, err := doc.ExportID(canvas, showGrid)
	if err != nil {
		return err
	}
	etag := `"` + id + `"`
	hw.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		hw.WriteHeader(http.StatusNotModified)
		return nil
	}

	b, err := sppng.Export(r.Context(), doc.Shapes, &sppng.RenderOpts{
		Canvas:   &canvas,
		ShowGrid: showGrid,
	})
	if err != nil {
		return err
	}
	xhttp.Attachment(hw, sptarget.ExportFilename, "image/png", b)
	return nil
}
