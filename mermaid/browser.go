// ABOUTME: Browser and Surface interfaces over the headless browser, plus the chromedp implementation.
// ABOUTME: The engine talks only to these interfaces so tests can instrument calls and surface counts.
package mermaid

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Browser owns one long-lived headless browser process and opens isolated
// per-render surfaces against it. The process is a shared resource; surfaces
// are not.
type Browser interface {
	// Start launches the browser process. It must complete before the first
	// NewSurface call.
	Start() error
	// Stop closes the browser process and releases driver resources. It
	// tolerates being called when Start never succeeded, and repeated calls.
	Stop() error
	// NewSurface opens a fresh isolated surface with the fixed viewport.
	// The caller owns the surface and must Close it on every exit path.
	NewSurface(ctx context.Context) (Surface, error)
}

// Surface is an isolated page used for exactly one render.
type Surface interface {
	// LoadDocument replaces the surface's document with the given HTML.
	LoadDocument(ctx context.Context, html string) error
	// Signals reads the two completion flags set by the in-page script.
	// It is a one-shot probe; the engine owns the poll loop and deadline.
	Signals(ctx context.Context) (ready bool, errMsg string, err error)
	// DiagramBounds locates the rendered SVG element. found is false when
	// the element does not exist; bounds may still be zero-sized when the
	// element exists but has no layout geometry.
	DiagramBounds(ctx context.Context) (found bool, bounds *Bounds, err error)
	// CaptureClip rasterizes the given region of the surface as PNG bytes.
	CaptureClip(ctx context.Context, clip Bounds) ([]byte, error)
	// Close destroys the surface. Safe to call exactly once.
	Close() error
}

// Bounds is an axis-aligned box in surface coordinates (CSS pixels).
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// chromeBrowser drives a headless Chromium via chromedp. Sandboxing is
// disabled so the process can run in containers and as root.
type chromeBrowser struct {
	viewportW int
	viewportH int

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func newChromeBrowser(viewportW, viewportH int) *chromeBrowser {
	return &chromeBrowser{viewportW: viewportW, viewportH: viewportH}
}

func (b *chromeBrowser) Start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)

	// The allocator derives from Background, not from any request context:
	// the process lives until Stop.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Launch eagerly so a missing or broken Chromium binary fails here
	// instead of on the first render.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("launch chromium: %w", err)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	return nil
}

func (b *chromeBrowser) Stop() error {
	if b.browserCancel != nil {
		b.browserCancel()
		b.browserCancel = nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	b.browserCtx = nil
	return nil
}

func (b *chromeBrowser) NewSurface(ctx context.Context) (Surface, error) {
	if b.browserCtx == nil {
		return nil, errors.New("browser not started")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	s := &chromeSurface{ctx: tabCtx, cancel: tabCancel}

	// Fixed viewport: diagrams are laid out at a constant canvas size so
	// output scale is deterministic across requests.
	if err := s.run(ctx, chromedp.EmulateViewport(int64(b.viewportW), int64(b.viewportH))); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open surface: %w", err)
	}
	return s, nil
}

// chromeSurface is one tab, owned exclusively by one in-flight render.
type chromeSurface struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions against the tab while honoring the caller's deadline
// and cancellation.
func (s *chromeSurface) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSurface) LoadDocument(ctx context.Context, html string) error {
	return s.run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
	)
}

// signalJS reads both completion flags in one round trip. The error flag is
// coerced to a string so a non-string throw still produces a diagnostic.
const signalJS = `({
	ready: window.mermaidReady === true,
	error: window.mermaidError === undefined ? "" : String(window.mermaidError),
})`

type signalState struct {
	Ready bool   `json:"ready"`
	Error string `json:"error"`
}

func (s *chromeSurface) Signals(ctx context.Context) (bool, string, error) {
	var state signalState
	if err := s.run(ctx, chromedp.Evaluate(signalJS, &state)); err != nil {
		return false, "", fmt.Errorf("read completion signals: %w", err)
	}
	return state.Ready, state.Error, nil
}

// boundsJS locates the rendered SVG and measures it in one round trip,
// distinguishing a missing element from an element with no geometry.
const boundsJS = `(() => {
	const el = document.querySelector('#mermaid-container svg');
	if (!el) {
		return {found: false, x: 0, y: 0, width: 0, height: 0};
	}
	const r = el.getBoundingClientRect();
	return {found: true, x: r.x, y: r.y, width: r.width, height: r.height};
})()`

type boundsProbe struct {
	Found  bool    `json:"found"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *chromeSurface) DiagramBounds(ctx context.Context) (bool, *Bounds, error) {
	var probe boundsProbe
	if err := s.run(ctx, chromedp.Evaluate(boundsJS, &probe)); err != nil {
		return false, nil, fmt.Errorf("measure diagram: %w", err)
	}
	if !probe.Found {
		return false, nil, nil
	}
	return true, &Bounds{X: probe.X, Y: probe.Y, Width: probe.Width, Height: probe.Height}, nil
}

func (s *chromeSurface) CaptureClip(ctx context.Context, clip Bounds) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{
				X:      clip.X,
				Y:      clip.Y,
				Width:  clip.Width,
				Height: clip.Height,
				Scale:  1,
			}).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (s *chromeSurface) Close() error {
	s.cancel()
	return nil
}

// Compile-time interface checks
var (
	_ Browser = (*chromeBrowser)(nil)
	_ Surface = (*chromeSurface)(nil)
)
