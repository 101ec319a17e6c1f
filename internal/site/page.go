// Package site drives the dealer-search page: applying search criteria,
// discovering result units, and extracting records from them.
package site

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealer-scout/internal/locate"
)

// Page is the browser surface the site layer consumes. Implemented by
// browser.Session; faked in tests.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Count(ctx context.Context, loc locate.Locator) (int, error)
	Click(ctx context.Context, loc locate.Locator, index int) error
	Fill(ctx context.Context, loc locate.Locator, value string) error
	SelectValue(ctx context.Context, loc locate.Locator, value string) error
	ToggleOn(ctx context.Context, loc locate.Locator) error
	Value(ctx context.Context, loc locate.Locator) (string, error)
	SubmitFrom(ctx context.Context, loc locate.Locator) error
	HTML(ctx context.Context, loc locate.Locator, index int) (string, error)
	HTMLAll(ctx context.Context, loc locate.Locator) ([]string, error)
	WaitFor(ctx context.Context, loc locate.Locator, timeout time.Duration) bool
	Screenshot(ctx context.Context) ([]byte, error)
}

// DetailFetcher loads an independently reachable detail page on an isolated
// page context, so concurrent fetches never touch the shared form state.
type DetailFetcher interface {
	FetchDetached(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// Scope is the region of the rendered page one record is read from: a card
// or an opened modal, captured as an HTML snapshot. Exclusively owned by the
// extraction of that one record; Release must be called before the next unit
// is processed (modal-based layouts allow one open panel at a time).
type Scope struct {
	Doc      *goquery.Selection
	rawText  string
	released *bool
	release  func(ctx context.Context) error
}

// NewScope parses an HTML snapshot into a scope. release may be nil for
// card scopes that need no teardown.
func NewScope(html string, release func(ctx context.Context) error) (Scope, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Scope{}, eris.Wrap(err, "site: parse scope html")
	}
	// <br> renders as a line break but contributes no text node; the address
	// heuristics depend on that break surviving into the extracted text.
	doc.Find("br").ReplaceWithHtml("\n")
	released := false
	return Scope{
		Doc:      doc.Selection,
		rawText:  doc.Text(),
		released: &released,
		release:  release,
	}, nil
}

// Text returns the scope's full visible text.
func (s Scope) Text() string { return s.rawText }

// Release dismisses any open modal backing this scope. Idempotent.
func (s Scope) Release(ctx context.Context) error {
	if s.released == nil || *s.released {
		return nil
	}
	*s.released = true
	if s.release == nil {
		return nil
	}
	return s.release(ctx)
}
