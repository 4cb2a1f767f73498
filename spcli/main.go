package spcli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"cdr.dev/slog"
	"github.com/spf13/pflag"

	"oss.terrastruct.com/sketchpad/lib/go2"
	"oss.terrastruct.com/sketchpad/lib/log"
	"oss.terrastruct.com/sketchpad/lib/version"
	"oss.terrastruct.com/sketchpad/lib/xmain"
	"oss.terrastruct.com/sketchpad/spinput"
	"oss.terrastruct.com/sketchpad/sprenderers/spsvg"
	"oss.terrastruct.com/sketchpad/spscript"
	"oss.terrastruct.com/sketchpad/spstate"
	"oss.terrastruct.com/sketchpad/sptarget"
)

// sessionOpts are the command line settings that shape a Session. grid and snap
// are nil unless set explicitly, in which case they win over the script.
type sessionOpts struct {
	canvas     sptarget.Canvas
	canvasSet  map[string]struct{}
	grid, snap *bool
}

func Run(ctx context.Context, ms *xmain.State) (err error) {
	ctx = log.Stderr(ctx)
	// These should be kept up-to-date with help.go
	watchFlag, err := ms.Opts.Bool("SKETCHPAD_WATCH", "watch", "w", false, "watch for changes to input and live reload. Use $HOST and $PORT to specify the listening address.\n(default localhost:0, which will open on a randomly available local port).")
	if err != nil {
		return err
	}
	hostFlag := ms.Opts.String("HOST", "host", "h", "localhost", "host listening address when used with watch or play")
	portFlag := ms.Opts.String("PORT", "port", "p", "0", "port listening address when used with watch or play")
	browserFlag := ms.Opts.String("BROWSER", "browser", "", "", "browser executable that watch and play open. Setting to 0 opens no browser.")
	debugFlag, err := ms.Opts.Bool("DEBUG", "debug", "d", false, "print debug logs.")
	if err != nil {
		ms.Log.Warn.Printf("Invalid DEBUG flag value ignored")
		debugFlag = go2.Pointer(false)
	}
	gridFlag, err := ms.Opts.Bool("SKETCHPAD_GRID", "grid", "g", false, "show the grid. Overrides the script's grid setting.")
	if err != nil {
		return err
	}
	snapFlag, err := ms.Opts.Bool("SKETCHPAD_SNAP", "snap", "s", false, "snap dragged shapes to the grid. Overrides the script's snap setting.")
	if err != nil {
		return err
	}
	widthFlag, err := ms.Opts.Int64("SKETCHPAD_WIDTH", "width", "", sptarget.CANVAS_WIDTH, "canvas width in pixels")
	if err != nil {
		return err
	}
	heightFlag, err := ms.Opts.Int64("SKETCHPAD_HEIGHT", "height", "", sptarget.CANVAS_HEIGHT, "canvas height in pixels")
	if err != nil {
		return err
	}
	animateIntervalFlag, err := ms.Opts.Int64("SKETCHPAD_ANIMATE_INTERVAL", "animate-interval", "", 500, "milliseconds between history frames of a GIF export")
	if err != nil {
		return err
	}
	timeoutFlag, err := ms.Opts.Duration("SKETCHPAD_TIMEOUT", "timeout", "", 2*time.Minute, "the maximum time a replay may take")
	if err != nil {
		return err
	}
	stdoutFormatFlag := ms.Opts.String("", "stdout-format", "", "", "output format when writing to stdout (png, svg, pdf, gif). Usage: sketchpad input.yaml --stdout-format png - > output.png")
	versionFlag, err := ms.Opts.Bool("", "version", "v", false, "get the version")
	if err != nil {
		return err
	}

	err = ms.Opts.Flags.Parse(ms.Opts.Args)
	if !errors.Is(err, pflag.ErrHelp) && err != nil {
		return xmain.UsageErrorf("failed to parse flags: %v", err)
	}

	if errors.Is(err, pflag.ErrHelp) {
		help(ms)
		return nil
	}

	if *debugFlag {
		ctx = log.Leveled(ctx, slog.LevelDebug)
		ms.Env.Setenv("DEBUG", "1")
	}
	if *browserFlag != "" {
		ms.Env.Setenv("BROWSER", *browserFlag)
	}
	if *widthFlag <= 0 || *heightFlag <= 0 {
		return xmain.UsageErrorf("--width and --height must be positive, got %dx%d", *widthFlag, *heightFlag)
	}
	if *timeoutFlag <= 0 {
		return xmain.UsageErrorf("--timeout must be positive, got %v", *timeoutFlag)
	}
	timeout := *timeoutFlag

	// If flag is not explicitly set by user, set to nil.
	// Later, settings from the script will only overwrite if they weren't explicitly set by user
	flagSet := make(map[string]struct{})
	ms.Opts.Flags.Visit(func(f *pflag.Flag) {
		flagSet[f.Name] = struct{}{}
	})
	if ms.Env.Getenv("SKETCHPAD_GRID") == "" {
		if _, ok := flagSet["grid"]; !ok {
			gridFlag = nil
		}
	}
	if ms.Env.Getenv("SKETCHPAD_SNAP") == "" {
		if _, ok := flagSet["snap"]; !ok {
			snapFlag = nil
		}
	}
	if ms.Env.Getenv("SKETCHPAD_WIDTH") != "" {
		flagSet["width"] = struct{}{}
	}
	if ms.Env.Getenv("SKETCHPAD_HEIGHT") != "" {
		flagSet["height"] = struct{}{}
	}

	canvas := sptarget.DefaultCanvas()
	canvas.Width = int(*widthFlag)
	canvas.Height = int(*heightFlag)
	sopts := sessionOpts{
		canvas:    canvas,
		canvasSet: flagSet,
		grid:      gridFlag,
		snap:      snapFlag,
	}

	if len(ms.Opts.Flags.Args()) > 0 {
		switch ms.Opts.Flags.Arg(0) {
		case "play":
			return playCmd(ctx, ms, sopts, *hostFlag, *portFlag, timeout)
		case "version":
			if len(ms.Opts.Flags.Args()) > 1 {
				return xmain.UsageErrorf("version subcommand accepts no arguments")
			}
			fmt.Fprintln(ms.Stdout, version.Version)
			return nil
		}
	}

	var inputPath string
	var outputPath string

	if len(ms.Opts.Flags.Args()) == 0 {
		if *versionFlag {
			fmt.Fprintln(ms.Stdout, version.Version)
			return nil
		}
		help(ms)
		return nil
	} else if len(ms.Opts.Flags.Args()) >= 3 {
		return xmain.UsageErrorf("too many arguments passed")
	}

	inputPath = ms.Opts.Flags.Arg(0)
	if len(ms.Opts.Flags.Args()) >= 2 {
		outputPath = ms.Opts.Flags.Arg(1)
	} else {
		if inputPath == "-" {
			outputPath = "-"
		} else {
			outputPath = renameExt(inputPath, ".png")
		}
	}
	inputPath = ms.AbsPath(inputPath)

	outputFormat, err := getOutputFormat(stdoutFormatFlag, outputPath)
	if err != nil {
		return xmain.UsageErrorf("%v", err)
	}
	if outputPath != "-" {
		outputPath = ms.AbsPath(outputPath)
		ext := strings.ToLower(filepath.Ext(outputPath))
		if ext != "" && exportExtension(ext) != outputFormat {
			return xmain.UsageErrorf("%s is not a supported export format. Supported formats are: %s", ext, SUPPORTED_STDOUT_FORMATS)
		}
	}
	if *animateIntervalFlag <= 0 && outputFormat.supportsAnimation() {
		return xmain.UsageErrorf("--animate-interval must be greater than 0 for %s outputs.\nYou provided: %d", outputFormat, *animateIntervalFlag)
	}

	ropts := replayOpts{
		sessionOpts:     sopts,
		animateInterval: *animateIntervalFlag,
		outputFormat:    outputFormat,
		inputPath:       inputPath,
		outputPath:      outputPath,
		timeout:         timeout,
	}

	if *watchFlag {
		if inputPath == "-" {
			return xmain.UsageErrorf("-w[atch] cannot be combined with reading input from stdin")
		}
		w, err := newWatcher(ctx, ms, watcherOpts{
			replayOpts: ropts,
			host:       *hostFlag,
			port:       *portFlag,
		})
		if err != nil {
			return err
		}
		return w.run()
	}

	_, err = replay(ctx, ms, ropts)
	if err != nil {
		return fmt.Errorf("failed to replay %s: %w", ms.HumanPath(inputPath), err)
	}
	return nil
}

type replayOpts struct {
	sessionOpts
	animateInterval int64
	outputFormat    exportExtension
	inputPath       string
	outputPath      string
	timeout         time.Duration
}

// newSession builds a Session for script with explicitly set flags taking
// precedence over the script's settings. script may be nil.
func newSession(ctx context.Context, script *spscript.Script, opts sessionOpts) *spstate.Session {
	sopts := &spstate.Opts{
		Canvas: &opts.canvas,
	}
	if script != nil {
		sopts = script.SessionOpts(opts.canvas)
		if _, ok := opts.canvasSet["width"]; ok {
			sopts.Canvas.Width = opts.canvas.Width
		}
		if _, ok := opts.canvasSet["height"]; ok {
			sopts.Canvas.Height = opts.canvas.Height
		}
	}
	if opts.grid != nil {
		sopts.ShowGrid = *opts.grid
	}
	if opts.snap != nil {
		sopts.SnapToGrid = *opts.snap
	}
	return spstate.New(ctx, sopts)
}

// replay runs the script at inputPath and writes the export to outputPath. It
// returns the final document as SVG for live previews.
func replay(ctx context.Context, ms *xmain.State, opts replayOpts) (_ []byte, err error) {
	ctx, cancel := log.WithTimeout(ctx, opts.timeout)
	defer cancel()

	start := time.Now()
	input, err := ms.ReadPath(opts.inputPath)
	if err != nil {
		return nil, err
	}
	script, err := spscript.Parse(input)
	if err != nil {
		return nil, err
	}

	s := newSession(ctx, script, opts.sessionOpts)
	c := spinput.New(ctx, s)
	exports := 0
	c.OnExport = func() error {
		exports++
		ms.Log.Debug.Printf("export shortcut %d at history step %d", exports, s.History().Step())
		return nil
	}
	done := log.Timed(ctx, "ran script")
	err = spscript.Run(ctx, script, c)
	if err != nil {
		return nil, err
	}
	done(slog.F("events", len(script.Events)), slog.F("step", s.History().Step()))

	done = log.Timed(ctx, "exported")
	out, err := export(ctx, ms, s, opts.outputFormat, opts.animateInterval)
	if err != nil {
		return nil, err
	}
	done(slog.F("format", opts.outputFormat), slog.F("bytes", len(out)))
	err = ms.WritePath(opts.outputPath, out)
	if err != nil {
		return nil, err
	}
	if opts.outputPath != "-" {
		ms.Log.Success.Printf("successfully replayed %s to %s in %s", ms.HumanPath(opts.inputPath), ms.HumanPath(opts.outputPath), time.Since(start).Round(time.Millisecond))
	}

	canvas := s.Canvas()
	return spsvg.Render(s.Document(), &spsvg.RenderOpts{
		Canvas:   &canvas,
		ShowGrid: s.ShowGrid(),
	})
}

// newExt must include leading .
func renameExt(fp string, newExt string) string {
	ext := filepath.Ext(fp)
	if ext == "" {
		return fp + newExt
	} else {
		return strings.TrimSuffix(fp, ext) + newExt
	}
}
