// Package browser wraps a headless Chrome session behind the small surface
// the site layer needs: navigate, probe, click, fill, read back, snapshot.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealer-scout/internal/locate"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Config controls the Chrome process and per-operation timeouts.
type Config struct {
	Headless  bool
	UserAgent string
	OpTimeout time.Duration
}

// Session owns one Chrome page. The page's form state is shared mutable
// state, so a session must be driven by one logical flow at a time; detail
// fetches get their own isolated page context via FetchDetached.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	opTimeout   time.Duration
}

// NewSession launches Chrome and opens a single page.
func NewSession(parent context.Context, cfg Config) (*Session, error) {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 15 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(ua),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so launch failures surface here, not on the
	// first navigation.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, eris.Wrap(err, "browser: launch")
	}

	return &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		opTimeout:   opTimeout,
	}, nil
}

// Close tears down the page and the browser process.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// matchJS returns a JS expression evaluating to the array of elements
// matching loc, applying the optional case-insensitive text filter.
func matchJS(loc locate.Locator) string {
	return fmt.Sprintf(`(() => {
		const els = Array.from(document.querySelectorAll(%q));
		const t = %q;
		if (!t) { return els; }
		return els.filter(e => (e.textContent || '').toLowerCase().includes(t.toLowerCase()));
	})()`, loc.Selector, loc.Text)
}

// Navigate loads url and waits for the DOM to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.opTimeout, chromedp.Navigate(url)); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", url)
	}
	return nil
}

// Location returns the page's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, s.opTimeout, chromedp.Location(&loc)); err != nil {
		return "", eris.Wrap(err, "browser: location")
	}
	return loc, nil
}

// Count reports how many elements match loc.
func (s *Session) Count(ctx context.Context, loc locate.Locator) (int, error) {
	var n int
	js := matchJS(loc) + ".length"
	if err := s.run(ctx, s.opTimeout, chromedp.Evaluate(js, &n)); err != nil {
		return 0, eris.Wrapf(err, "browser: count %s", loc.Selector)
	}
	return n, nil
}

// Click scrolls the index-th match of loc into view and clicks it.
func (s *Session) Click(ctx context.Context, loc locate.Locator, index int) error {
	js := fmt.Sprintf(`(() => {
		const els = %s;
		const el = els[%d];
		if (!el) { return false; }
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`, matchJS(loc), index)

	var ok bool
	if err := s.run(ctx, s.opTimeout, chromedp.Evaluate(js, &ok)); err != nil {
		return eris.Wrapf(err, "browser: click %s", loc.Selector)
	}
	if !ok {
		return eris.Errorf("browser: click %s[%d]: no such element", loc.Selector, index)
	}
	return nil
}

// Fill sets the value of the first match of loc and fires input/change
// events so the page's own listeners see the edit.
func (s *Session) Fill(ctx context.Context, loc locate.Locator, value string) error {
	js := fmt.Sprintf(`(() => {
		const el = %s[0];
		if (!el) { return false; }
		el.value = %q;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, matchJS(loc), value)

	var ok bool
	if err := s.run(ctx, s.opTimeout, chromedp.Evaluate(js, &ok)); err != nil {
		return eris.Wrapf(err, "browser: fill %s", loc.Selector)
	}
	if !ok {
		return eris.Errorf("browser: fill %s: no such element", loc.Selector)
	}
	return nil
}

// SelectValue sets a <select> control to value and fires a change event.
func (s *Session) SelectValue(ctx context.Context, loc locate.Locator, value string) error {
	return s.Fill(ctx, loc, value)
}

// ToggleOn activates the first match of loc unless its associated checkbox
// input is already checked. Labels resolve their input via the for attribute
// or a descendant; elements without one are clicked unconditionally.
func (s *Session) ToggleOn(ctx context.Context, loc locate.Locator) error {
	js := fmt.Sprintf(`(() => {
		const el = %s[0];
		if (!el) { return false; }
		let input = null;
		if (el.htmlFor) { input = document.getElementById(el.htmlFor); }
		if (!input) { input = el.querySelector('input[type="checkbox"], input[type="radio"]'); }
		if (input && input.checked) { return true; }
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`, matchJS(loc))

	var ok bool
	if err := s.run(ctx, s.opTimeout, chromedp.Evaluate(js, &ok)); err != nil {
		return eris.Wrapf(err, "browser: toggle %s", loc.Selector)
	}
	if !ok {
		return eris.Errorf("browser: toggle %s: no such element", loc.Selector)
	}
	return nil
}

// Value reads back the current value of the first match of loc.
func (s *Session) Value(ctx context.Context, loc locate.Locator) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = %s[0];
		return el ? String(el.value ?? '') : '';
	})()`, matchJS(loc))

	var v string
	if err := s.run(ctx, s.opTimeout, chromedp.Evaluate(js, &v)); err != nil {
		return "", eris.Wrapf(err, "browser: value %s", loc.Selector)
	}
	return v, nil
}

// SubmitFrom submits the form enclosing the first match of loc, emulating
// the Enter key inside that field.
func (s *Session) SubmitFrom(ctx context.Context, loc locate.Locator) error {
	js := fmt.Sprintf(`(() => {
		const el = %s[0];
		if (!el) { return false; }
		const form = el.closest('form');
		if (form) {
			if (form.requestSubmit) { form.requestSubmit(); } else { form.submit(); }
			return true;
		}
		el.dispatchEvent(new KeyboardEvent('keydown', {key: 'Enter', bubbles: true}));
		return true;
	})()`, matchJS(loc))

	var ok bool
	if err := s.run(ctx, s.opTimeout, chromedp.Evaluate(js, &ok)); err != nil {
		return eris.Wrapf(err, "browser: submit from %s", loc.Selector)
	}
	if !ok {
		return eris.Errorf("browser: submit from %s: no such element", loc.Selector)
	}
	return nil
}

// HTML returns the outer HTML of the index-th match of loc.
func (s *Session) HTML(ctx context.Context, loc locate.Locator, index int) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = %s[%d];
		return el ? el.outerHTML : '';
	})()`, matchJS(loc), index)

	var html string
	if err := s.run(ctx, s.opTimeout, chromedp.Evaluate(js, &html)); err != nil {
		return "", eris.Wrapf(err, "browser: html %s", loc.Selector)
	}
	return html, nil
}

// HTMLAll returns the outer HTML of every match of loc, in document order.
func (s *Session) HTMLAll(ctx context.Context, loc locate.Locator) ([]string, error) {
	js := matchJS(loc) + ".map(e => e.outerHTML)"
	var htmls []string
	if err := s.run(ctx, s.opTimeout, chromedp.Evaluate(js, &htmls)); err != nil {
		return nil, eris.Wrapf(err, "browser: html all %s", loc.Selector)
	}
	return htmls, nil
}

// WaitFor polls until at least one element matches loc or the timeout
// elapses. A timeout is a soft outcome, reported as false, never an error.
func (s *Session) WaitFor(ctx context.Context, loc locate.Locator, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if n, err := s.Count(ctx, loc); err == nil && n > 0 {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, s.opTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		b, err := page.CaptureScreenshot().WithCaptureBeyondViewport(true).Do(ctx)
		if err != nil {
			return err
		}
		buf = b
		return nil
	}))
	if err != nil {
		return nil, eris.Wrap(err, "browser: screenshot")
	}
	return buf, nil
}

// FetchDetached loads url in a fresh page context off the shared allocator
// and returns the document HTML. Safe to call concurrently: nothing touches
// the main page's form state.
func (s *Session) FetchDetached(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tabCtx, cancel := chromedp.NewContext(s.allocCtx)
	defer cancel()

	opCtx, opCancel := context.WithTimeout(tabCtx, timeout)
	defer opCancel()

	var html string
	err := chromedp.Run(opCtx,
		chromedp.Navigate(url),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", eris.Wrapf(err, "browser: fetch %s", url)
	}
	return html, nil
}
