package site

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealer-scout/internal/locate"
	"github.com/sells-group/dealer-scout/internal/model"
	"github.com/sells-group/dealer-scout/internal/resilience"
)

// Search form query parameters honored server-side by the target, used both
// for the fast-path navigation and the URL-reconstruction fallback.
const (
	paramZip      = "tx_biohandel_plg[zip]"
	paramDistance = "tx_biohandel_plg[distance]"
)

// uiAttempts bounds UI criteria manipulation before the URL fallback kicks
// in. Deliberately small: the fallback is cheaper than fighting the form.
const uiAttempts = 2

// controllerState tracks the per-postal-code search state machine.
type controllerState int

const (
	stateIdle controllerState = iota
	stateNavigated
	stateCookieHandled
	stateCriteriaApplied
	stateSubmitted
	stateResultsSettled
)

// Controller drives the search page to a known state for one postal code at
// a time: navigate, dismiss consent, apply criteria with read-back
// verification, submit, and wait for settlement. UI failures fall back to
// reconstructing the URL with explicit query parameters.
type Controller struct {
	page          Page
	res           *locate.Resolver
	baseURL       string
	settleTimeout time.Duration

	// cookieDone is session-scoped: the consent banner is dismissed at most
	// once per browser session, and its absence is not an error.
	cookieDone bool

	state controllerState
}

// NewController creates a controller for the search page at baseURL.
func NewController(page Page, res *locate.Resolver, baseURL string, settleTimeout time.Duration) *Controller {
	if settleTimeout <= 0 {
		settleTimeout = 10 * time.Second
	}
	return &Controller{
		page:          page,
		res:           res,
		baseURL:       baseURL,
		settleTimeout: settleTimeout,
	}
}

func (c *Controller) probe(ctx context.Context, loc locate.Locator) (int, error) {
	return c.page.Count(ctx, loc)
}

// searchURL builds the search page URL with zip and radius pre-seeded as
// query parameters.
func (c *Controller) searchURL(criteria model.SearchCriteria) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", eris.Wrapf(err, "site: parse base url %s", c.baseURL)
	}
	q := u.Query()
	q.Set(paramZip, criteria.PostalCode)
	q.Set(paramDistance, strconv.Itoa(criteria.RadiusKm))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// EnsureResults drives the page through the full state machine for one
// postal code. On return the page holds whatever results the site produced;
// settlement timeouts are soft and do not fail the call.
func (c *Controller) EnsureResults(ctx context.Context, criteria model.SearchCriteria) error {
	log := zap.L().With(zap.String("postal_code", criteria.PostalCode))

	c.state = stateIdle
	target, err := c.searchURL(criteria)
	if err != nil {
		return err
	}
	if err := c.page.Navigate(ctx, target); err != nil {
		return eris.Wrap(err, "site: navigate search page")
	}
	c.state = stateNavigated

	c.dismissCookies(ctx)
	c.state = stateCookieHandled

	applyErr := resilience.Do(ctx, resilience.AttemptConfig{
		MaxAttempts:    uiAttempts,
		InitialBackoff: 250 * time.Millisecond,
		OnRetry:        resilience.RetryLogger("site.controller", "apply criteria"),
	}, func(ctx context.Context) error {
		return c.applyCriteria(ctx, criteria)
	})
	if applyErr != nil {
		// URL-reconstruction fallback: re-enter Navigated with explicit
		// query parameters instead of fighting the form further.
		log.Debug("ui criteria failed, falling back to url parameters", zap.Error(applyErr))
		if err := c.page.Navigate(ctx, target); err != nil {
			return eris.Wrap(err, "site: url fallback navigate")
		}
		c.state = stateNavigated
	}
	c.toggleCategories(ctx, criteria)
	c.state = stateCriteriaApplied

	c.submit(ctx)
	c.state = stateSubmitted

	c.settle(ctx)
	c.state = stateResultsSettled
	return nil
}

// dismissCookies clicks a consent button if one resolves. Runs at most once
// per session; a missing banner is a normal outcome.
func (c *Controller) dismissCookies(ctx context.Context) {
	if c.cookieDone {
		return
	}
	c.cookieDone = true

	loc, ok := c.res.ResolveLive(ctx, locate.RoleCookieAccept, c.probe)
	if !ok {
		return
	}
	if err := c.page.Click(ctx, loc, 0); err != nil {
		zap.L().Debug("cookie consent click failed", zap.Error(err))
		return
	}
	zap.L().Debug("cookie consent dismissed")
}

// applyCriteria fills the zip input and sets the radius, reading the radius
// control back to verify the value stuck. Any miss or mismatch is an error
// so the caller's bounded retry and URL fallback can take over.
func (c *Controller) applyCriteria(ctx context.Context, criteria model.SearchCriteria) error {
	zipLoc, ok := c.res.ResolveLive(ctx, locate.RoleZipInput, c.probe)
	if !ok {
		return eris.New("site: zip input not found")
	}
	if err := c.page.Fill(ctx, zipLoc, criteria.PostalCode); err != nil {
		return eris.Wrap(err, "site: fill zip")
	}

	radiusLoc, ok := c.res.ResolveLive(ctx, locate.RoleRadiusSelect, c.probe)
	if !ok {
		return eris.New("site: radius control not found")
	}
	want := strconv.Itoa(criteria.RadiusKm)
	if err := c.page.SelectValue(ctx, radiusLoc, want); err != nil {
		return eris.Wrap(err, "site: set radius")
	}
	got, err := c.page.Value(ctx, radiusLoc)
	if err != nil {
		return eris.Wrap(err, "site: read back radius")
	}
	if got != want {
		return eris.Errorf("site: radius read-back %q, want %q", got, want)
	}
	return nil
}

// toggleCategories activates each requested category filter. A missing
// filter control means the page doesn't offer that filter; it is skipped,
// not retried.
func (c *Controller) toggleCategories(ctx context.Context, criteria model.SearchCriteria) {
	roles := map[model.Category]locate.Role{
		model.CategoryRetail:   locate.RoleFilterRetail,
		model.CategoryMarket:   locate.RoleFilterMarket,
		model.CategoryDelivery: locate.RoleFilterDelivery,
	}
	for _, cat := range criteria.Categories {
		role, known := roles[cat]
		if !known {
			continue
		}
		loc, ok := c.res.ResolveLive(ctx, role, c.probe)
		if !ok {
			zap.L().Debug("category filter not offered", zap.String("category", cat.String()))
			continue
		}
		if err := c.page.ToggleOn(ctx, loc); err != nil {
			zap.L().Debug("category toggle failed", zap.String("category", cat.String()), zap.Error(err))
		}
	}
}

// submit clicks the submit control, or falls back to a form-level submit
// from inside the zip field when no button resolves.
func (c *Controller) submit(ctx context.Context) {
	if loc, ok := c.res.ResolveLive(ctx, locate.RoleSubmit, c.probe); ok {
		if err := c.page.Click(ctx, loc, 0); err == nil {
			return
		}
	}
	if zipLoc, ok := c.res.ResolveLive(ctx, locate.RoleZipInput, c.probe); ok {
		if err := c.page.SubmitFrom(ctx, zipLoc); err != nil {
			zap.L().Debug("form submit fallback failed", zap.Error(err))
		}
	}
}

// settle waits for either result cards or detail triggers to appear, up to
// the bounded timeout. Timing out is not fatal: discovery proceeds against
// whatever state exists.
func (c *Controller) settle(ctx context.Context) {
	deadline := time.Now().Add(c.settleTimeout)
	for _, role := range []locate.Role{locate.RoleResultCard, locate.RoleDetailTrigger} {
		for _, loc := range c.res.Candidates(role) {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				zap.L().Debug("settlement timeout, proceeding with current page state")
				return
			}
			if c.page.WaitFor(ctx, loc, minDuration(remaining, 2*time.Second)) {
				return
			}
		}
	}
	zap.L().Debug("no result markers after settlement wait")
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
