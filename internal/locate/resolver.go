// Package locate implements ordered-candidate element resolution. Each
// semantic role maps to a list of locators tried in declared order; ordering
// encodes confidence, with the most specific site markers first and generic
// structural fallbacks last.
package locate

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Role names a semantic page element independent of any concrete markup.
type Role string

const (
	RoleZipInput      Role = "zip_input"
	RoleRadiusSelect  Role = "radius_select"
	RoleSubmit        Role = "submit"
	RoleCookieAccept  Role = "cookie_accept"
	RoleResultCard    Role = "result_card"
	RoleDetailTrigger Role = "detail_trigger"
	RoleModal         Role = "modal"
	RoleModalClose    Role = "modal_close"
	RoleLoadMore      Role = "load_more"

	RoleName          Role = "name"
	RoleAddressBlock  Role = "address_block"
	RolePhoneLink     Role = "phone_link"
	RoleMailLink      Role = "mail_link"
	RoleWebLink       Role = "web_link"
	RoleOpeningHours  Role = "opening_hours"
	RoleCategoryBadge Role = "category_badge"

	RoleFilterRetail   Role = "filter_retail"
	RoleFilterMarket   Role = "filter_market"
	RoleFilterDelivery Role = "filter_delivery"
)

// Locator is one candidate match strategy: a CSS selector, optionally
// narrowed to elements whose text contains Text (case-insensitive).
type Locator struct {
	Selector string
	Text     string
}

// Catalog maps roles to their ordered candidate locators.
type Catalog map[Role][]Locator

// DefaultCatalog returns the locator sets for the dealer-search page family,
// covering the structural variants observed across its regional templates.
func DefaultCatalog() Catalog {
	return Catalog{
		RoleZipInput: {
			{Selector: `input[name*="[zip]"]`},
			{Selector: `input[name*="[plz]"]`},
			{Selector: `input[name*="zip"]`},
			{Selector: `input[placeholder*="PLZ"]`},
		},
		RoleRadiusSelect: {
			{Selector: `select[name*="[distance]"]`},
			{Selector: `select[name*="distance"]`},
		},
		RoleSubmit: {
			{Selector: `button[type="submit"]`},
			{Selector: "button", Text: "Suchen"},
			{Selector: "button", Text: "Suche"},
		},
		RoleCookieAccept: {
			{Selector: "button", Text: "Alle akzeptieren"},
			{Selector: "button", Text: "Zustimmen"},
			{Selector: "button", Text: "Akzeptieren"},
			{Selector: `[data-accept*="cookie"]`},
			{Selector: ".cookie-accept"},
		},
		RoleResultCard: {
			{Selector: ".dealer"},
			{Selector: ".result"},
			{Selector: ".shop"},
			{Selector: "article"},
			{Selector: ".card"},
		},
		RoleDetailTrigger: {
			{Selector: "a", Text: "Details"},
			{Selector: "button", Text: "Details"},
			{Selector: "a.details"},
			{Selector: "button.details"},
		},
		RoleModal: {
			{Selector: ".modal.show"},
			{Selector: ".modal[aria-hidden=\"false\"]"},
			{Selector: "[role=\"dialog\"]"},
			{Selector: ".dealer-detail"},
		},
		RoleModalClose: {
			{Selector: ".modal.show button.close"},
			{Selector: "[role=\"dialog\"] button", Text: "Schließen"},
			{Selector: ".modal .btn-close"},
		},
		RoleLoadMore: {
			{Selector: "button", Text: "Mehr laden"},
			{Selector: "a", Text: "Mehr anzeigen"},
			{Selector: ".pagination .next a"},
			{Selector: "a[rel=\"next\"]"},
		},
		RoleName: {
			{Selector: ".dealer__title"},
			{Selector: ".result__title"},
			{Selector: ".shop__title"},
			{Selector: ".dealer-name"},
			{Selector: "h3"},
			{Selector: "h2"},
		},
		RoleAddressBlock: {
			{Selector: "address"},
			{Selector: ".dealer__address"},
			{Selector: ".result__address"},
			{Selector: ".address"},
		},
		RolePhoneLink: {
			{Selector: `a[href^="tel:"]`},
		},
		RoleMailLink: {
			{Selector: `a[href^="mailto:"]`},
		},
		RoleWebLink: {
			{Selector: "a", Text: "Website"},
			{Selector: "a", Text: "Webseite"},
			{Selector: "a", Text: "Zur Website"},
			{Selector: `a[href^="http"]`},
		},
		RoleOpeningHours: {
			{Selector: ".opening-hours"},
			{Selector: ".hours"},
			{Selector: "table.hours"},
			{Selector: "dl.hours"},
		},
		RoleCategoryBadge: {
			{Selector: ".dealer__category"},
			{Selector: ".result__category"},
			{Selector: ".badge"},
			{Selector: ".category"},
		},
		RoleFilterRetail: {
			{Selector: "label", Text: "Bioläden"},
			{Selector: "label", Text: "Bioladen"},
			{Selector: "label", Text: "Bio-Laden"},
			{Selector: "label", Text: "Biomarkt"},
		},
		RoleFilterMarket: {
			{Selector: "label", Text: "Marktstände"},
			{Selector: "label", Text: "Marktstand"},
		},
		RoleFilterDelivery: {
			{Selector: "label", Text: "Lieferservice"},
			{Selector: "label", Text: "Lieferdienst"},
		},
	}
}

// Probe reports how many elements match a locator on the live page. Errors
// are treated as zero matches by the resolver.
type Probe func(ctx context.Context, loc Locator) (int, error)

// Resolver finds the first candidate locator for a role that matches.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a resolver over the given catalog. A nil catalog uses
// the default.
func NewResolver(catalog Catalog) *Resolver {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Resolver{catalog: catalog}
}

// Candidates returns the ordered locator list for a role.
func (r *Resolver) Candidates(role Role) []Locator {
	return r.catalog[role]
}

// Resolve tries each candidate for role against a parsed scope and returns
// the first matching selection. A miss is a normal outcome, signaled by the
// second return value, never an error.
func (r *Resolver) Resolve(scope *goquery.Selection, role Role) (*goquery.Selection, bool) {
	if scope == nil {
		return nil, false
	}
	for _, loc := range r.catalog[role] {
		sel := scope.Find(loc.Selector)
		if loc.Text != "" {
			sel = filterByText(sel, loc.Text)
		}
		if sel.Length() > 0 {
			return sel.First(), true
		}
	}
	return nil, false
}

// ResolveLive tries each candidate for role against the live page via probe
// and returns the first locator with at least one match. Probe errors count
// as misses.
func (r *Resolver) ResolveLive(ctx context.Context, role Role, probe Probe) (Locator, bool) {
	for _, loc := range r.catalog[role] {
		n, err := probe(ctx, loc)
		if err != nil {
			continue
		}
		if n > 0 {
			return loc, true
		}
	}
	return Locator{}, false
}

func filterByText(sel *goquery.Selection, text string) *goquery.Selection {
	needle := strings.ToLower(text)
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), needle)
	})
}
