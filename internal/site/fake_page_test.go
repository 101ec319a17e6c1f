package site

import (
	"context"
	"time"

	"github.com/sells-group/dealer-scout/internal/locate"
)

// fakePage is an in-memory Page keyed by locator. State maps use
// locKey so text-filtered locators stay distinct from their bare
// selectors.
type fakePage struct {
	counts   map[string]int
	htmls    map[string][]string
	values   map[string]string
	location string

	navigations []string
	fills       map[string]string
	selections  map[string]string
	toggles     []string
	clicks      []string
	submits     []string

	fillErr       error
	selectErr     error
	valueOverride map[string]string

	// onClick, when set, mutates page state after a click is recorded.
	// Tests use it to simulate pagination swapping the result list.
	onClick func(key string)
}

func newFakePage() *fakePage {
	return &fakePage{
		counts:        map[string]int{},
		htmls:         map[string][]string{},
		values:        map[string]string{},
		fills:         map[string]string{},
		selections:    map[string]string{},
		valueOverride: map[string]string{},
	}
}

func locKey(loc locate.Locator) string {
	if loc.Text == "" {
		return loc.Selector
	}
	return loc.Selector + "::" + loc.Text
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigations = append(p.navigations, url)
	return nil
}

func (p *fakePage) Location(_ context.Context) (string, error) {
	return p.location, nil
}

func (p *fakePage) Count(_ context.Context, loc locate.Locator) (int, error) {
	return p.counts[locKey(loc)], nil
}

func (p *fakePage) Click(_ context.Context, loc locate.Locator, _ int) error {
	key := locKey(loc)
	p.clicks = append(p.clicks, key)
	if p.onClick != nil {
		p.onClick(key)
	}
	return nil
}

func (p *fakePage) Fill(_ context.Context, loc locate.Locator, value string) error {
	if p.fillErr != nil {
		return p.fillErr
	}
	p.fills[locKey(loc)] = value
	return nil
}

func (p *fakePage) SelectValue(_ context.Context, loc locate.Locator, value string) error {
	if p.selectErr != nil {
		return p.selectErr
	}
	p.selections[locKey(loc)] = value
	p.values[locKey(loc)] = value
	return nil
}

func (p *fakePage) ToggleOn(_ context.Context, loc locate.Locator) error {
	p.toggles = append(p.toggles, locKey(loc))
	return nil
}

func (p *fakePage) Value(_ context.Context, loc locate.Locator) (string, error) {
	if v, ok := p.valueOverride[locKey(loc)]; ok {
		return v, nil
	}
	return p.values[locKey(loc)], nil
}

func (p *fakePage) SubmitFrom(_ context.Context, loc locate.Locator) error {
	p.submits = append(p.submits, locKey(loc))
	return nil
}

func (p *fakePage) HTML(_ context.Context, loc locate.Locator, index int) (string, error) {
	list := p.htmls[locKey(loc)]
	if index < 0 || index >= len(list) {
		return "", errIndex
	}
	return list[index], nil
}

func (p *fakePage) HTMLAll(_ context.Context, loc locate.Locator) ([]string, error) {
	return p.htmls[locKey(loc)], nil
}

func (p *fakePage) WaitFor(_ context.Context, loc locate.Locator, _ time.Duration) bool {
	return p.counts[locKey(loc)] > 0
}

func (p *fakePage) Screenshot(_ context.Context) ([]byte, error) {
	return []byte("png"), nil
}

var errIndex = errIndexType{}

type errIndexType struct{}

func (errIndexType) Error() string { return "index out of range" }

// fakeFetcher serves canned detail pages by URL.
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) FetchDetached(_ context.Context, url string, _ time.Duration) (string, error) {
	f.fetched = append(f.fetched, url)
	html, ok := f.pages[url]
	if !ok {
		return "", errIndex
	}
	return html, nil
}
