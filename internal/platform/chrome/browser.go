// Package chrome is the driver backend for a real Chromium browser over the
// DevTools protocol (chromedp). Elements are addressed by a ref attribute
// stamped on each node the first time a query returns it.
package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/mj1618/gridcheck/internal/platform"
)

func init() {
	platform.Register("chrome", func(ctx context.Context, opts platform.Options) (*platform.Provider, error) {
		b, err := Launch(ctx, opts)
		if err != nil {
			return nil, err
		}
		return b.Provider(), nil
	})
}

const refAttr = "data-gridcheck-ref"

const defaultActionTimeout = 15 * time.Second

// Browser is one Chromium tab.
type Browser struct {
	tab           context.Context
	cancels       []context.CancelFunc
	actionTimeout time.Duration
}

// Launch starts a browser, or attaches to opts.RemoteURL when set.
func Launch(ctx context.Context, opts platform.Options) (*Browser, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
	} else {
		width, height := opts.WindowWidth, opts.WindowHeight
		if width <= 0 || height <= 0 {
			width, height = 1920, 1080
		}
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.WindowSize(width, height),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		tab:           tabCtx,
		cancels:       []context.CancelFunc{tabCancel, allocCancel},
		actionTimeout: opts.ActionTimeout,
	}
	if b.actionTimeout <= 0 {
		b.actionTimeout = defaultActionTimeout
	}

	// The first Run allocates the browser and ties its lifetime to the
	// context it is given, so it must get the undecorated tab context.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return b, nil
}

// Close shuts the tab and the browser it owns.
func (b *Browser) Close() error {
	for _, cancel := range b.cancels {
		cancel()
	}
	return nil
}

// Provider exposes the browser through the driver capability interfaces.
func (b *Browser) Provider() *platform.Provider {
	return &platform.Provider{
		Finder:        b,
		Inspector:     b,
		Inputter:      b,
		Chooser:       b,
		Browser:       b,
		Screenshotter: b,
		Close:         b.Close,
	}
}

// run executes actions on the tab, bounded by the action timeout and by
// ctx. The tab context cannot simply be replaced by ctx because chromedp
// keys the target on it.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.tab, b.actionTimeout)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := b.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (b *Browser) CaptureScreenshot(ctx context.Context) (*platform.Screenshot, error) {
	var buf []byte
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return &platform.Screenshot{Data: buf, Format: "png"}, nil
}

// ref is the Element handle for this backend.
type ref string

func (r ref) Ref() string { return string(r) }

func (r ref) selector() string {
	return fmt.Sprintf(`[%s="%s"]`, refAttr, string(r))
}

func refOf(el platform.Element) (ref, error) {
	r, ok := el.(ref)
	if !ok {
		return "", fmt.Errorf("element %v does not belong to the chrome backend", el)
	}
	return r, nil
}

func jsArg(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
