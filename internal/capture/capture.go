package capture

import (
	"context"
	"encoding/base64"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/go-ap/errors"

	appLog "monthcal/internal/log"
)

// Default capture parameters.
const (
	DefaultWidth      = 800
	DefaultHeight     = 600
	DefaultTimeoutSec = 30
)

// ReadySelector is the element the month page exposes once it is rendered.
const ReadySelector = `[data-ready="true"]`

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/".
	URL string

	// OutputPath is where the PNG screenshot will be written. Missing parent
	// directories are created.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation.
	Timeout time.Duration

	// Headers are sent with every request the page makes.
	Headers map[string]string
}

// BasicAuth returns the Authorization header value for user/pass.
func BasicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.Newf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return errors.Newf("capture: OutputPath is required")
	}
	if o.Width < 0 || o.Height < 0 {
		return errors.Newf("capture: invalid viewport %dx%d", o.Width, o.Height)
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// CapturePNG launches a headless Chromium via chromedp, navigates to opts.URL,
// waits for ReadySelector to be visible and writes a full-page PNG to
// opts.OutputPath.
func CapturePNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(200*time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)

	appLog.Info("capture start", "url", opts.URL, "width", opts.Width, "height", opts.Height)
	if err := chromedp.Run(ctx, tasks); err != nil {
		return errors.Annotatef(err, "capture: chromedp run failed: %s", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return errors.Annotatef(err, "capture: failed to create output dir: %s", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return errors.Annotatef(err, "capture: failed to write PNG: %s", err)
	}

	appLog.Info("capture success", "output", opts.OutputPath, "bytes", len(png))
	return nil
}

// ServeAndCapture serves h on an ephemeral loopback port for the duration of
// one capture. opts.URL, when set, is a path relative to that server.
func ServeAndCapture(ctx context.Context, h http.Handler, opts Options) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return errors.Annotatef(err, "capture: listen: %s", err)
	}

	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			appLog.Error("capture server failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	path := opts.URL
	if path == "" {
		path = "/"
	}
	opts.URL = "http://" + ln.Addr().String() + path
	return CapturePNG(ctx, opts)
}
