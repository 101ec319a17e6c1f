package site

import (
	"context"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealer-scout/internal/locate"
)

// DiscoveryConfig bounds discovery's interaction with the live page.
type DiscoveryConfig struct {
	// MaxLoadMore caps how many "load more"/next-page expansions are
	// followed for one postal code.
	MaxLoadMore int

	// ModalSettle bounds the wait for a detail modal to open.
	ModalSettle time.Duration

	// DetailPoolSize enables concurrent fetching of standalone detail pages
	// when > 0. Each fetch runs on its own page context.
	DetailPoolSize int

	// DetailTimeout bounds one detached detail fetch.
	DetailTimeout time.Duration
}

func (c DiscoveryConfig) withDefaults() DiscoveryConfig {
	if c.MaxLoadMore <= 0 {
		c.MaxLoadMore = 10
	}
	if c.ModalSettle <= 0 {
		c.ModalSettle = 3 * time.Second
	}
	if c.DetailTimeout <= 0 {
		c.DetailTimeout = 20 * time.Second
	}
	return c
}

// Discovery enumerates result units on the settled page and yields one
// extraction scope per unit. The sequence is lazy, finite, and
// non-restartable; at most one modal is open at any time.
type Discovery struct {
	page    Page
	res     *locate.Resolver
	fetcher DetailFetcher
	cfg     DiscoveryConfig
}

// NewDiscovery creates a Discovery. fetcher may be nil to disable the
// detail-fetch pool regardless of configuration.
func NewDiscovery(page Page, res *locate.Resolver, fetcher DetailFetcher, cfg DiscoveryConfig) *Discovery {
	return &Discovery{page: page, res: res, fetcher: fetcher, cfg: cfg.withDefaults()}
}

func (d *Discovery) probe(ctx context.Context, loc locate.Locator) (int, error) {
	return d.page.Count(ctx, loc)
}

// Discover yields one scope per result unit to fn. Trigger mode (detail
// buttons that open a modal) is preferred; card mode reads directly visible
// containers. Zero resolvable units is a valid outcome, not an error. An
// error from fn aborts the iteration.
func (d *Discovery) Discover(ctx context.Context, fn func(Scope) error) error {
	if triggerLoc, ok := d.res.ResolveLive(ctx, locate.RoleDetailTrigger, d.probe); ok {
		return d.discoverTriggers(ctx, triggerLoc, fn)
	}
	if cardLoc, ok := d.res.ResolveLive(ctx, locate.RoleResultCard, d.probe); ok {
		return d.discoverCards(ctx, cardLoc, fn)
	}
	zap.L().Debug("no result markers resolved, yielding empty sequence")
	return nil
}

// discoverTriggers activates each detail trigger in turn, snapshotting the
// opened modal and closing it before the next trigger.
func (d *Discovery) discoverTriggers(ctx context.Context, triggerLoc locate.Locator, fn func(Scope) error) error {
	processed := 0
	marker := ""
	for round := 0; round <= d.cfg.MaxLoadMore; round++ {
		count, err := d.page.Count(ctx, triggerLoc)
		if err != nil {
			return eris.Wrap(err, "site: count detail triggers")
		}

		// A next-page control may replace the result list instead of
		// appending to it; a changed first unit restarts indexing at zero.
		if m := d.firstUnitMarker(ctx, triggerLoc); m != marker {
			marker = m
			processed = 0
		}
		if count <= processed && round > 0 {
			break
		}

		for i := processed; i < count; i++ {
			scope, err := d.openModalScope(ctx, triggerLoc, i)
			if err != nil {
				// Per-unit isolation: a broken unit is skipped, not fatal.
				zap.L().Warn("skipping result unit", zap.Int("index", i), zap.Error(err))
				continue
			}
			if err := fn(scope); err != nil {
				_ = scope.Release(ctx)
				return err
			}
			if err := scope.Release(ctx); err != nil {
				zap.L().Debug("modal release failed", zap.Int("index", i), zap.Error(err))
			}
		}
		processed = count

		if !d.loadMore(ctx) {
			break
		}
	}
	return nil
}

// discoverCards snapshots every visible result card; no interaction is
// needed to read its fields.
func (d *Discovery) discoverCards(ctx context.Context, cardLoc locate.Locator, fn func(Scope) error) error {
	seen := make(map[string]struct{})
	for round := 0; round <= d.cfg.MaxLoadMore; round++ {
		htmls, err := d.page.HTMLAll(ctx, cardLoc)
		if err != nil {
			return eris.Wrap(err, "site: snapshot result cards")
		}

		// Pagination may append to the list or replace it wholesale, so
		// units are tracked by content rather than by list position.
		fresh := make([]string, 0, len(htmls))
		for _, html := range htmls {
			if _, dup := seen[html]; dup {
				continue
			}
			seen[html] = struct{}{}
			fresh = append(fresh, html)
		}
		if len(fresh) == 0 && round > 0 {
			break
		}

		for _, scope := range d.buildCardScopes(ctx, fresh) {
			if err := fn(scope); err != nil {
				return err
			}
		}

		if !d.loadMore(ctx) {
			break
		}
	}
	return nil
}

// firstUnitMarker identifies the list's leading unit so replace-style
// pagination is distinguishable from an appending expansion. An empty
// marker means the page offers nothing to compare.
func (d *Discovery) firstUnitMarker(ctx context.Context, triggerLoc locate.Locator) string {
	if cardLoc, ok := d.res.ResolveLive(ctx, locate.RoleResultCard, d.probe); ok {
		if html, err := d.page.HTML(ctx, cardLoc, 0); err == nil {
			return html
		}
	}
	html, err := d.page.HTML(ctx, triggerLoc, 0)
	if err != nil {
		return ""
	}
	return html
}

// buildCardScopes parses card snapshots into scopes. When the detail pool is
// enabled, cards whose trigger carries a standalone URL are replaced by the
// fetched detail page; fetch failures degrade back to the card snapshot.
func (d *Discovery) buildCardScopes(ctx context.Context, htmls []string) []Scope {
	scopes := make([]Scope, 0, len(htmls))
	for i, html := range htmls {
		scope, err := NewScope(html, nil)
		if err != nil {
			zap.L().Warn("skipping unparseable card", zap.Int("index", i), zap.Error(err))
			continue
		}
		scopes = append(scopes, scope)
	}

	if d.cfg.DetailPoolSize <= 0 || d.fetcher == nil {
		return scopes
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.DetailPoolSize)
	for i := range scopes {
		detailURL := d.detailURL(scopes[i])
		if detailURL == "" {
			continue
		}
		g.Go(func() error {
			html, err := d.fetcher.FetchDetached(gctx, detailURL, d.cfg.DetailTimeout)
			if err != nil {
				zap.L().Debug("detail fetch failed, keeping card scope",
					zap.String("url", detailURL), zap.Error(err))
				return nil
			}
			detail, err := NewScope(html, nil)
			if err != nil {
				return nil
			}
			scopes[i] = detail
			return nil
		})
	}
	_ = g.Wait()
	return scopes
}

// detailURL extracts an absolute detail-page URL from a card's trigger
// link, or "" when the unit is only reachable through in-page interaction.
func (d *Discovery) detailURL(scope Scope) string {
	sel, ok := d.res.Resolve(scope.Doc, locate.RoleDetailTrigger)
	if !ok {
		return ""
	}
	href, _ := sel.Attr("href")
	u, err := url.Parse(href)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

// openModalScope clicks the index-th trigger, waits for the modal, and
// snapshots it. The returned scope's release closes the modal. When no modal
// appears the trigger's own card is snapshotted instead (inline expansion
// layouts).
func (d *Discovery) openModalScope(ctx context.Context, triggerLoc locate.Locator, index int) (Scope, error) {
	if err := d.page.Click(ctx, triggerLoc, index); err != nil {
		return Scope{}, eris.Wrapf(err, "site: activate trigger %d", index)
	}

	var html string
	modalLoc, modalOpen := locate.Locator{}, false
	for _, loc := range d.res.Candidates(locate.RoleModal) {
		if d.page.WaitFor(ctx, loc, d.cfg.ModalSettle) {
			modalLoc, modalOpen = loc, true
			break
		}
	}

	if modalOpen {
		h, err := d.page.HTML(ctx, modalLoc, 0)
		if err != nil {
			return Scope{}, eris.Wrap(err, "site: snapshot modal")
		}
		html = h
	} else if cardLoc, ok := d.res.ResolveLive(ctx, locate.RoleResultCard, d.probe); ok {
		h, err := d.page.HTML(ctx, cardLoc, index)
		if err != nil {
			return Scope{}, eris.Wrap(err, "site: snapshot card")
		}
		html = h
	} else {
		return Scope{}, eris.Errorf("site: trigger %d revealed nothing readable", index)
	}

	release := func(ctx context.Context) error {
		if !modalOpen {
			return nil
		}
		if closeLoc, ok := d.res.ResolveLive(ctx, locate.RoleModalClose, d.probe); ok {
			return d.page.Click(ctx, closeLoc, 0)
		}
		return nil
	}
	return NewScope(html, release)
}

// loadMore clicks a next-page control if one resolves and gives the new
// content a moment to settle. Returns false when pagination is exhausted.
func (d *Discovery) loadMore(ctx context.Context) bool {
	loc, ok := d.res.ResolveLive(ctx, locate.RoleLoadMore, d.probe)
	if !ok {
		return false
	}
	if err := d.page.Click(ctx, loc, 0); err != nil {
		zap.L().Debug("load more click failed", zap.Error(err))
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Second):
	}
	return true
}
