// ABOUTME: Render engine owning the headless browser lifecycle and the per-request render pipeline.
// ABOUTME: Render never returns a Go error; every failure mode becomes a classified Failure result.
package mermaid

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Default pipeline tuning. The viewport is a reproducibility contract:
// diagrams lay out on a constant canvas so output scale is deterministic.
const (
	DefaultViewportWidth  = 1200
	DefaultViewportHeight = 800
	DefaultRenderTimeout  = 10 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond

	// clipPadding is added on every side of the diagram's bounding box
	// before capture, clamped so the clip origin never goes negative.
	clipPadding = 20.0
)

// errWaitTimeout marks the layout deadline expiring inside the poll loop.
var errWaitTimeout = errors.New("timed out waiting for layout signal")

// Engine renders Mermaid diagram text to PNG images using one shared
// headless browser process. Construct with NewEngine, call Start once
// before serving traffic and Stop once at shutdown. Render calls may run
// concurrently; Start and Stop may not overlap with anything.
type Engine struct {
	browser       Browser
	cache         *resultCache
	timeout       time.Duration
	pollInterval  time.Duration
	libraryURL    string
	theme         string
	securityLevel string

	started      atomic.Bool
	openSurfaces atomic.Int64
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	browser       Browser
	cacheCapacity int
	timeout       time.Duration
	pollInterval  time.Duration
	viewportW     int
	viewportH     int
	libraryURL    string
	theme         string
	securityLevel string
}

// WithBrowser substitutes the browser implementation. Tests use this to
// instrument surface lifecycles and call counts.
func WithBrowser(b Browser) Option {
	return func(c *engineConfig) { c.browser = b }
}

// WithCacheCapacity bounds the render-result cache. Zero or negative
// disables caching entirely.
func WithCacheCapacity(n int) Option {
	return func(c *engineConfig) { c.cacheCapacity = n }
}

// WithRenderTimeout overrides the layout-completion deadline.
func WithRenderTimeout(d time.Duration) Option {
	return func(c *engineConfig) { c.timeout = d }
}

// WithPollInterval overrides the signal polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *engineConfig) { c.pollInterval = d }
}

// WithViewport overrides the fixed layout canvas size.
func WithViewport(width, height int) Option {
	return func(c *engineConfig) {
		c.viewportW = width
		c.viewportH = height
	}
}

// WithLibraryURL overrides the pinned layout library location.
func WithLibraryURL(url string) Option {
	return func(c *engineConfig) { c.libraryURL = url }
}

// WithTheme overrides the layout library theme.
func WithTheme(theme string) Option {
	return func(c *engineConfig) { c.theme = theme }
}

// NewEngine builds an Engine. Without WithBrowser it drives a headless
// Chromium with sandboxing disabled (required for containerized and root
// execution environments).
func NewEngine(opts ...Option) *Engine {
	cfg := engineConfig{
		cacheCapacity: DefaultCacheCapacity,
		timeout:       DefaultRenderTimeout,
		pollInterval:  DefaultPollInterval,
		viewportW:     DefaultViewportWidth,
		viewportH:     DefaultViewportHeight,
		libraryURL:    DefaultLibraryURL,
		theme:         DefaultTheme,
		securityLevel: DefaultSecurityLevel,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.browser == nil {
		cfg.browser = newChromeBrowser(cfg.viewportW, cfg.viewportH)
	}

	return &Engine{
		browser:       cfg.browser,
		cache:         newResultCache(cfg.cacheCapacity),
		timeout:       cfg.timeout,
		pollInterval:  cfg.pollInterval,
		libraryURL:    cfg.libraryURL,
		theme:         cfg.theme,
		securityLevel: cfg.securityLevel,
	}
}

// Start launches the browser process. On failure the returned error wraps
// ErrEngineStart and the engine must not serve renders.
func (e *Engine) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.browser.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineStart, err)
	}
	e.started.Store(true)
	log.Printf("mermaid: render engine started")
	return nil
}

// Stop closes the browser process. Safe to call when Start never succeeded,
// and safe to call repeatedly.
func (e *Engine) Stop() {
	e.started.Store(false)
	if err := e.browser.Stop(); err != nil {
		log.Printf("mermaid: stop browser: %v", err)
		return
	}
	log.Printf("mermaid: render engine stopped")
}

// OpenSurfaces reports how many surfaces are currently open. Every render
// releases its surface on every exit path, so outside an in-flight render
// this is always zero.
func (e *Engine) OpenSurfaces() int {
	return int(e.openSurfaces.Load())
}

// Render turns diagram text into a PNG image or a classified, user-facing
// failure. It never panics and never returns a Go error; unexpected faults
// are captured as KindFault results. Identical text hits the cache without
// touching the browser.
func (e *Engine) Render(ctx context.Context, text string) Result {
	if !e.started.Load() {
		return Failure(KindNotInitialized, "Renderer not initialized")
	}

	key := CacheKey(text)
	if res, ok := e.cache.Get(key); ok {
		log.Printf("mermaid: cache hit key=%s", key)
		return res
	}

	id := newRenderID()
	res := e.renderOnce(ctx, text)

	if res.OK() {
		log.Printf("mermaid: render %s ok bytes=%d input=%q", id, len(res.Image), truncate(text, 80))
	} else {
		log.Printf("mermaid: render %s failed kind=%s msg=%q input=%q", id, res.Err.Kind, res.Err.Message, truncate(text, 80))
	}

	// Only deterministic failures are replayed for future identical
	// requests; transient faults get a fresh attempt.
	if res.OK() || res.Err.Cacheable() {
		e.cache.Put(key, res)
	}
	return res
}

// renderOnce runs the full pipeline against a fresh surface. The surface is
// released on every exit path.
func (e *Engine) renderOnce(ctx context.Context, text string) (res Result) {
	surface, err := e.browser.NewSurface(ctx)
	if err != nil {
		return Failure(KindFault, "Rendering error: "+err.Error())
	}
	e.openSurfaces.Add(1)
	defer func() {
		if closeErr := surface.Close(); closeErr != nil {
			log.Printf("mermaid: close surface: %v", closeErr)
		}
		e.openSurfaces.Add(-1)
		// A panic anywhere in the pipeline is an unexpected fault, not a
		// process-killer: the surface is already released above.
		if r := recover(); r != nil {
			res = Failure(KindFault, fmt.Sprintf("Rendering error: %v", r))
		}
	}()

	doc, err := renderDocument(documentData{
		Code:          text,
		LibraryURL:    e.libraryURL,
		Theme:         e.theme,
		SecurityLevel: e.securityLevel,
	})
	if err != nil {
		return Failure(KindFault, "Rendering error: "+err.Error())
	}

	if err := surface.LoadDocument(ctx, doc); err != nil {
		return Failure(KindFault, "Rendering error: "+err.Error())
	}

	layoutErr, err := e.waitForSignal(ctx, surface)
	if err != nil {
		if errors.Is(err, errWaitTimeout) {
			return Failure(KindTimeout, "Failed to render diagram: timeout")
		}
		return Failure(KindFault, "Rendering error: "+err.Error())
	}
	if layoutErr != "" {
		return Failure(KindLayout, "Mermaid error: "+layoutErr)
	}

	found, bounds, err := surface.DiagramBounds(ctx)
	if err != nil {
		return Failure(KindFault, "Rendering error: "+err.Error())
	}
	if !found {
		return Failure(KindOutputMissing, "Failed to find rendered diagram")
	}
	if bounds == nil || bounds.Width <= 0 || bounds.Height <= 0 {
		return Failure(KindOutputMissing, "Failed to get diagram dimensions")
	}

	raw, err := surface.CaptureClip(ctx, padClip(*bounds, clipPadding))
	if err != nil {
		return Failure(KindFault, "Rendering error: "+err.Error())
	}

	return Success(optimizeImage(raw))
}

// waitForSignal polls the surface until the in-page script sets the ready
// flag or the error string, or the layout deadline expires. The host only
// polls; the page never pushes.
func (e *Engine) waitForSignal(ctx context.Context, surface Surface) (layoutErr string, err error) {
	waitCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		ready, errMsg, err := surface.Signals(waitCtx)
		if err != nil {
			// An evaluate aborted by the deadline is a timeout, not a fault.
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return "", errWaitTimeout
			}
			return "", err
		}
		if errMsg != "" {
			return errMsg, nil
		}
		if ready {
			return "", nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				// The caller's context died first; classify as a fault.
				return "", ctx.Err()
			}
			return "", errWaitTimeout
		case <-ticker.C:
		}
	}
}

// padClip expands the bounding box by the fixed padding on every side,
// clamping the origin at zero.
func padClip(b Bounds, padding float64) Bounds {
	return Bounds{
		X:      math.Max(0, b.X-padding),
		Y:      math.Max(0, b.Y-padding),
		Width:  b.Width + 2*padding,
		Height: b.Height + 2*padding,
	}
}

// newRenderID generates a ULID trace ID for correlating log lines of one
// render attempt.
func newRenderID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// truncate shortens diagram text for log lines.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
