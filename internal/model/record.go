// Package model defines the core data types shared across the scan pipeline.
package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category is one of the directory's listing kinds.
type Category string

const (
	CategoryRetail   Category = "retail"
	CategoryMarket   Category = "market"
	CategoryDelivery Category = "delivery"
)

// AllCategories lists every known category in filter-toggle order.
var AllCategories = []Category{CategoryRetail, CategoryMarket, CategoryDelivery}

// String returns the category's wire value.
func (c Category) String() string { return string(c) }

// ParseCategory maps a configured category name to its enum value.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retail", "shop":
		return CategoryRetail, true
	case "market", "stand":
		return CategoryMarket, true
	case "delivery":
		return CategoryDelivery, true
	}
	return "", false
}

// SearchCriteria describes one search submission. Constructed fresh per postal
// code and never mutated; fallback paths re-derive a new value instead.
type SearchCriteria struct {
	PostalCode string
	RadiusKm   int
	Categories []Category
}

// NewSearchCriteria builds criteria for a single postal code.
func NewSearchCriteria(postalCode string, radiusKm int, categories []Category) SearchCriteria {
	if len(categories) == 0 {
		categories = AllCategories
	}
	cats := make([]Category, len(categories))
	copy(cats, categories)
	return SearchCriteria{
		PostalCode: postalCode,
		RadiusKm:   radiusKm,
		Categories: cats,
	}
}

// Record is one extracted directory listing. Every field except the source
// postal code is optional; absence is an explicit JSON null, never an empty
// string or a missing key. A record is created once, normalized once, and is
// immutable thereafter.
type Record struct {
	Name             *string `json:"name"`
	Street           *string `json:"street"`
	PostalCode       *string `json:"postal_code"`
	City             *string `json:"city"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
	Website          *string `json:"website"`
	OpeningHours     *string `json:"opening_hours"`
	Category         *string `json:"category"`
	SourcePostalCode string  `json:"source_postal_code"`
	SourceURL        *string `json:"source_url"`
}

// Nullable trims s and returns nil for empty-after-trim, otherwise a pointer
// to the trimmed value.
func Nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// deref returns the pointed-to string or "".
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// stripMarks removes combining marks after NFD decomposition, so umlauted and
// plain spellings of the same street fold to the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldKeyPart lowercases, strips diacritics, and collapses all whitespace runs
// to single spaces.
func foldKeyPart(s string) string {
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DedupKey derives the run-scoped identity fingerprint from the normalized
// name, street, and postal code. At most one record per key is emitted in a
// single run.
func (r *Record) DedupKey() string {
	return foldKeyPart(deref(r.Name)) + "|" + foldKeyPart(deref(r.Street)) + "|" + strings.TrimSpace(deref(r.PostalCode))
}
