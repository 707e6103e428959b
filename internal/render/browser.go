package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-mathmail/internal/process"
)

// cssPixelsPerInch converts DPI into a device scale factor.
const cssPixelsPerInch = 96

// typesetSelector matches once MathJax has finished the page.
const typesetSelector = `body[data-typeset="done"]`

// Browser renders expressions with MathJax in headless Chrome. The browser
// is launched on first use and shared by concurrent renders; each render
// gets its own page.
type Browser struct {
	tmpl      *template.Template
	scriptURL string
	bin       string
	timeout   time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// BrowserOption configures a Browser renderer.
type BrowserOption func(*Browser)

// WithBrowserBinary uses a specific Chrome executable.
func WithBrowserBinary(path string) BrowserOption {
	return func(b *Browser) { b.bin = path }
}

// WithPageTimeout bounds one render when ctx has no deadline.
func WithPageTimeout(d time.Duration) BrowserOption {
	return func(b *Browser) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBrowserLogger sets the logger for browser lifecycle events.
func WithBrowserLogger(logger *slog.Logger) BrowserOption {
	return func(b *Browser) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// mathJaxPage is the data passed to the page template.
type mathJaxPage struct {
	ScriptURL  string
	Expression string
	Display    bool
}

// NewBrowser creates a Browser renderer from an html/template page receiving
// .ScriptURL, .Expression and .Display. The page must set
// data-typeset="done" on <body> when typesetting completes.
func NewBrowser(page, scriptURL string, opts ...BrowserOption) (*Browser, error) {
	tmpl, err := template.New("mathjax").Parse(page)
	if err != nil {
		return nil, fmt.Errorf("parsing MathJax page: %w", err)
	}
	b := &Browser{
		tmpl:      tmpl,
		scriptURL: scriptURL,
		timeout:   30 * time.Second,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// ensureBrowser lazily launches and connects to Chrome.
func (b *Browser) ensureBrowser() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New()
	bin := b.bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	// Containers and CI runners lack the user namespaces the sandbox needs.
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || bin != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		process.KillProcessGroup(l.PID())
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b.launcher = l
	b.browser = browser
	b.logger.Debug("browser launched", "pid", l.PID())
	return browser, nil
}

// Render implements Renderer.
func (b *Browser) Render(ctx context.Context, req Request) ([]byte, error) {
	dpi, err := req.dpi()
	if err != nil {
		return nil, fmt.Errorf("%w: %d", err, req.DPI)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc bytes.Buffer
	if err := b.tmpl.Execute(&doc, mathJaxPage{
		ScriptURL:  b.scriptURL,
		Expression: req.Expression,
		Display:    req.Display,
	}); err != nil {
		return nil, fmt.Errorf("%w: page template: %v", ErrTypeset, err)
	}

	browser, err := b.ensureBrowser()
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: creating page: %v", ErrBrowserConnect, err)
	}
	defer func() { _ = page.Close() }()
	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1024,
		Height:            768,
		DeviceScaleFactor: float64(dpi) / cssPixelsPerInch,
	}); err != nil {
		return nil, b.pageError(ctx, "setting viewport", err)
	}
	if err := page.SetDocumentContent(doc.String()); err != nil {
		return nil, b.pageError(ctx, "loading page", err)
	}
	if _, err := page.Element(typesetSelector); err != nil {
		return nil, b.pageError(ctx, "waiting for MathJax", err)
	}

	res, err := page.Eval(`() => document.querySelector("#math mjx-merror") !== null`)
	if err != nil {
		return nil, b.pageError(ctx, "inspecting output", err)
	}
	if res.Value.Bool() {
		return nil, fmt.Errorf("%w: %q", ErrTypeset, req.Expression)
	}

	el, err := page.Element("#math")
	if err != nil {
		return nil, b.pageError(ctx, "locating output", err)
	}
	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, b.pageError(ctx, "capturing image", err)
	}
	return png, nil
}

// pageError prefers the context error so timeouts stay recognizable.
func (b *Browser) pageError(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %v", ErrTypeset, step, err)
}

// Close shuts the browser down and kills its process group.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		process.KillProcessGroup(b.launcher.PID())
		b.launcher.Kill()
		b.launcher = nil
	}
	return err
}

// LookPathChrome reports the Chrome executable rod would use, if any.
func LookPathChrome() (string, bool) {
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		return bin, true
	}
	return launcher.LookPath()
}
