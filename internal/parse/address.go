// Package parse holds pure text heuristics for address blocks and contact
// details. Nothing here touches a browser, so everything is unit-testable.
package parse

import (
	"regexp"
	"strings"
)

// Address is the split form of a raw address block.
type Address struct {
	Street     string
	PostalCode string
	City       string
}

var (
	postalLineRe = regexp.MustCompile(`^(\d{5})\s+(\S.*)$`)
	phoneRe      = regexp.MustCompile(`(?i)(?:tel(?:efon)?\.?\s*:?\s*)([+0-9][0-9 ()/\-]{5,}\d)`)
	barePhoneRe  = regexp.MustCompile(`(?:\+49|0)[0-9 ()/\-]{6,}\d`)
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	websiteRe    = regexp.MustCompile(`https?://[^\s"'<>)]+`)
)

// labelPrefixes mark lines that are field labels rather than street names.
var labelPrefixes = []string{
	"tel", "telefon", "phone", "fax", "e-mail", "email", "mail",
	"öffnungszeiten", "opening", "web", "www",
}

func isLabelLine(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range labelPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// splitLines breaks an address block on newlines and commas, trimming each
// piece. Directory markup renders addresses both ways.
func splitLines(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			lines = append(lines, f)
		}
	}
	return lines
}

// ParseAddress maps a raw address block to street, postal code, and city.
//
// The line matching "<5-digit code> <city>" fixes the postal code and city;
// the immediately preceding line, unless it is a label such as "Tel.", is the
// street. When no postal line exists the whole cleaned text is returned as the
// street candidate and the caller fills the postal code from the active search
// criteria.
func ParseAddress(raw string) Address {
	lines := splitLines(raw)

	for i, line := range lines {
		m := postalLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		addr := Address{
			PostalCode: m[1],
			City:       strings.TrimSpace(m[2]),
		}
		if i > 0 && !isLabelLine(lines[i-1]) {
			addr.Street = lines[i-1]
		} else {
			addr.Street = firstStreetCandidate(lines, i)
		}
		return addr
	}

	return Address{Street: strings.Join(strings.Fields(raw), " ")}
}

// firstStreetCandidate picks the first line containing both letters and a
// digit, skipping the postal line itself and label lines.
func firstStreetCandidate(lines []string, postalIdx int) string {
	for i, line := range lines {
		if i == postalIdx || isLabelLine(line) {
			continue
		}
		if strings.ContainsFunc(line, isLetter) && strings.ContainsAny(line, "0123456789") {
			return line
		}
	}
	return ""
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127
}

// ExtractPhone pulls a phone number out of free text. A labeled number
// ("Tel.: 040 1234567") wins over a bare one.
func ExtractPhone(text string) string {
	if m := phoneRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(barePhoneRe.FindString(text))
}

// ExtractEmail pulls the first email address out of free text.
func ExtractEmail(text string) string {
	return strings.TrimSpace(emailRe.FindString(text))
}

// ExtractWebsite pulls the first absolute http(s) URL out of free text.
func ExtractWebsite(text string) string {
	return strings.TrimSpace(websiteRe.FindString(text))
}

// PhoneFromHref strips the tel: scheme from a telephone link.
func PhoneFromHref(href string) string {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(strings.ToLower(href), "tel:") {
		return ""
	}
	return strings.TrimSpace(href[len("tel:"):])
}

// EmailFromHref strips the mailto: scheme and any query suffix from a mail
// link.
func EmailFromHref(href string) string {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
		return ""
	}
	addr := href[len("mailto:"):]
	if i := strings.Index(addr, "?"); i >= 0 {
		addr = addr[:i]
	}
	return strings.TrimSpace(addr)
}
