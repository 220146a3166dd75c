// Package browser owns the automated Chrome session and the element
// resolution strategy used to drive third-party sites that offer no stable
// contract. One Session exists per orchestration run and every interaction
// goes through it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// ErrSessionClosed is returned by any call made after Close.
var ErrSessionClosed = errors.New("browser: session closed")

type lifecycle int

const (
	lifecycleNotStarted lifecycle = iota
	lifecycleActive
	lifecycleClosed
)

// Options configure a Session launch.
type Options struct {
	Headless    bool
	DownloadDir string // where Chrome writes downloads; empty keeps the default
	UserDataDir string // empty uses a temp profile
}

// Session wraps one chromedp browser context. It is owned by a single
// orchestration sequence; methods must not be called concurrently.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	state       lifecycle
}

// Launch starts Chrome and returns an active Session. The caller must
// Close it on every exit path.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	userDataDir := opts.UserDataDir
	if userDataDir == "" {
		userDataDir = filepath.Join(os.TempDir(), "reelpipe-chrome")
	}
	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		return nil, fmt.Errorf("create chrome profile dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserDataDir(userDataDir),
		chromedp.WindowSize(1400, 900),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}),
	)

	s := &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
	}

	// First Run call actually launches the process
	if err := chromedp.Run(browserCtx); err != nil {
		s.teardown()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	s.state = lifecycleActive

	if opts.DownloadDir != "" {
		if err := s.allowDownloads(opts.DownloadDir); err != nil {
			s.teardown()
			return nil, fmt.Errorf("set download dir: %w", err)
		}
	}

	log.Printf("[browser] Chrome session started (headless=%v)", opts.Headless)
	return s, nil
}

// allowDownloads routes browser downloads into dir instead of prompting.
func (s *Session) allowDownloads(dir string) error {
	return chromedp.Run(s.ctx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(dir),
	)
}

// Close tears the browser down. Safe to call more than once.
func (s *Session) Close() {
	if s.state == lifecycleClosed {
		return
	}
	s.state = lifecycleClosed
	s.teardown()
	log.Println("[browser] Chrome session closed")
}

func (s *Session) teardown() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// Active reports whether the session is launched and not yet closed.
func (s *Session) Active() bool { return s.state == lifecycleActive }

func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.state != lifecycleActive {
		return ErrSessionClosed
	}
	runCtx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	// honor the caller's cancellation as well as the session's
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Navigate opens url and waits for the load to settle.
func (s *Session) Navigate(ctx context.Context, url string, settle time.Duration) error {
	if err := s.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if settle > 0 {
		return sleepCtx(ctx, settle)
	}
	return nil
}

// CurrentURL returns the page's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, 10*time.Second, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Click scrolls the element into view, waits for visibility and clicks it.
func (s *Session) Click(ctx context.Context, sel string, timeout time.Duration) error {
	return s.run(ctx, timeout,
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	)
}

// JSClick dispatches a click from page JS, which sidesteps elements that
// intercept pointer events.
func (s *Session) JSClick(ctx context.Context, sel string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`, strconv.Quote(sel))
	ok, err := s.EvalBool(ctx, js)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("js click: element %q not found", sel)
	}
	return nil
}

// Type clears the element and sends text as keystrokes.
func (s *Session) Type(ctx context.Context, sel, text string, timeout time.Duration) error {
	clearJS := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		if ('value' in el) el.value = '';
		if (el.isContentEditable) el.textContent = '';
		return true;
	})()`, strconv.Quote(sel))
	ok, err := s.EvalBool(ctx, clearJS)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("type: element %q not found", sel)
	}
	return s.run(ctx, timeout,
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	)
}

// PressEnter sends the Enter key to the element.
func (s *Session) PressEnter(ctx context.Context, sel string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery))
}

// ElementScreenshot captures a PNG of just the selected element.
func (s *Session) ElementScreenshot(ctx context.Context, sel string, timeout time.Duration) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, timeout,
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Screenshot(sel, &buf, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// SendFile sets a local file on a file-input element. The input may be
// hidden; upload inputs usually are.
func (s *Session) SendFile(ctx context.Context, sel, path string, timeout time.Duration) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return s.run(ctx, timeout,
		chromedp.SetUploadFiles(sel, []string{abs}, chromedp.ByQuery),
	)
}

// HideElement sets display:none on the first match. Used as the one-shot
// mitigation for overlays that intercept clicks.
func (s *Session) HideElement(ctx context.Context, sel string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.style.display = 'none';
		return true;
	})()`, strconv.Quote(sel))
	ok, err := s.EvalBool(ctx, js)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("hide: element %q not found", sel)
	}
	return nil
}

// EvalBool evaluates a JS expression expected to yield a boolean.
func (s *Session) EvalBool(ctx context.Context, js string) (bool, error) {
	var res bool
	if err := s.run(ctx, 10*time.Second, chromedp.Evaluate(js, &res)); err != nil {
		return false, err
	}
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
