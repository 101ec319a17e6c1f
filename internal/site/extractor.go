package site

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/dealer-scout/internal/locate"
	"github.com/sells-group/dealer-scout/internal/model"
	"github.com/sells-group/dealer-scout/internal/parse"
)

// categoryTerms maps inference keywords (lowercase) to categories, checked
// against explicit badge text first and the scope's full text second.
var categoryTerms = []struct {
	term string
	cat  model.Category
}{
	{"lieferservice", model.CategoryDelivery},
	{"lieferdienst", model.CategoryDelivery},
	{"marktstand", model.CategoryMarket},
	{"marktstände", model.CategoryMarket},
	{"wochenmarkt", model.CategoryMarket},
	{"bioladen", model.CategoryRetail},
	{"bioläden", model.CategoryRetail},
	{"biomarkt", model.CategoryRetail},
}

// Extractor turns one scope into a normalized record. Structured
// sub-elements win; text heuristics fill the gaps; every unresolved field
// stays nil.
type Extractor struct {
	res *locate.Resolver
}

// NewExtractor creates an extractor over the given resolver.
func NewExtractor(res *locate.Resolver) *Extractor {
	return &Extractor{res: res}
}

// Extract reads one record from scope and releases the scope afterward
// (closing its modal in trigger mode). The returned record is complete:
// all schema fields are present, with nil for anything unresolved.
func (e *Extractor) Extract(ctx context.Context, scope Scope, criteria model.SearchCriteria, sourceURL string) *model.Record {
	defer func() {
		if err := scope.Release(ctx); err != nil {
			zap.L().Debug("scope release failed", zap.Error(err))
		}
	}()

	fullText := scope.Text()

	rec := &model.Record{
		Name:             e.elementText(scope, locate.RoleName),
		OpeningHours:     e.elementText(scope, locate.RoleOpeningHours),
		SourcePostalCode: criteria.PostalCode,
		SourceURL:        model.Nullable(sourceURL),
	}

	addr := e.address(scope, fullText)
	if addr.PostalCode == "" {
		// Best effort: the record came from this search, so the searched
		// code beats an empty field.
		addr.PostalCode = criteria.PostalCode
	}
	rec.Street = model.Nullable(addr.Street)
	rec.PostalCode = model.Nullable(addr.PostalCode)
	rec.City = model.Nullable(addr.City)

	rec.Phone = model.Nullable(e.phone(scope, fullText))
	rec.Email = model.Nullable(e.email(scope, fullText))
	rec.Website = model.Nullable(e.website(scope, fullText))

	cat := e.category(scope, fullText)
	rec.Category = model.Nullable(cat.String())

	return rec
}

// elementText resolves a role inside the scope and returns its trimmed text
// as a nullable string.
func (e *Extractor) elementText(scope Scope, role locate.Role) *string {
	sel, ok := e.res.Resolve(scope.Doc, role)
	if !ok {
		return nil
	}
	return model.Nullable(collapseSpace(sel.Text()))
}

func (e *Extractor) address(scope Scope, fullText string) parse.Address {
	if sel, ok := e.res.Resolve(scope.Doc, locate.RoleAddressBlock); ok {
		addr := parse.ParseAddress(sel.Text())
		if addr.Street != "" || addr.PostalCode != "" || addr.City != "" {
			return addr
		}
	}
	// No structured block: run the heuristics over everything the scope
	// shows. Street may come out noisy; postal/city are still reliable.
	addr := parse.ParseAddress(fullText)
	if addr.PostalCode == "" {
		addr.Street = ""
	}
	return addr
}

func (e *Extractor) phone(scope Scope, fullText string) string {
	if sel, ok := e.res.Resolve(scope.Doc, locate.RolePhoneLink); ok {
		if href, exists := sel.Attr("href"); exists {
			if p := parse.PhoneFromHref(href); p != "" {
				return p
			}
		}
	}
	return parse.ExtractPhone(fullText)
}

func (e *Extractor) email(scope Scope, fullText string) string {
	if sel, ok := e.res.Resolve(scope.Doc, locate.RoleMailLink); ok {
		if href, exists := sel.Attr("href"); exists {
			if m := parse.EmailFromHref(href); m != "" {
				return m
			}
		}
	}
	return parse.ExtractEmail(fullText)
}

func (e *Extractor) website(scope Scope, fullText string) string {
	if sel, ok := e.res.Resolve(scope.Doc, locate.RoleWebLink); ok {
		if href, exists := sel.Attr("href"); exists {
			href = strings.TrimSpace(href)
			if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
				return href
			}
		}
	}
	return parse.ExtractWebsite(fullText)
}

// category infers the listing kind: explicit badge text first, then keyword
// match over the full scope text, then the site's baseline category.
func (e *Extractor) category(scope Scope, fullText string) model.Category {
	if sel, ok := e.res.Resolve(scope.Doc, locate.RoleCategoryBadge); ok {
		if cat, found := matchCategory(sel.Text()); found {
			return cat
		}
	}
	if cat, found := matchCategory(fullText); found {
		return cat
	}
	return model.CategoryRetail
}

func matchCategory(text string) (model.Category, bool) {
	lower := strings.ToLower(text)
	for _, ct := range categoryTerms {
		if strings.Contains(lower, ct.term) {
			return ct.cat, true
		}
	}
	return "", false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
