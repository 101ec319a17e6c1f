package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Address
	}{
		{
			name: "single line with comma",
			raw:  "Musterweg 1, 20095 Hamburg",
			want: Address{Street: "Musterweg 1", PostalCode: "20095", City: "Hamburg"},
		},
		{
			name: "multiline block",
			raw:  "Biomarkt Mitte\nMusterweg 1\n20095 Hamburg",
			want: Address{Street: "Musterweg 1", PostalCode: "20095", City: "Hamburg"},
		},
		{
			name: "label line before postal line is skipped",
			raw:  "Hauptstraße 12\nTel.: 089 123456\n80331 München",
			want: Address{Street: "Hauptstraße 12", PostalCode: "80331", City: "München"},
		},
		{
			name: "city with spaces",
			raw:  "Am Markt 3\n60311 Frankfurt am Main",
			want: Address{Street: "Am Markt 3", PostalCode: "60311", City: "Frankfurt am Main"},
		},
		{
			name: "no postal line",
			raw:  "  Irgendein   Text ohne Adresse  ",
			want: Address{Street: "Irgendein Text ohne Adresse"},
		},
		{
			name: "postal line first, street after",
			raw:  "20095 Hamburg\nMusterweg 1",
			want: Address{Street: "Musterweg 1", PostalCode: "20095", City: "Hamburg"},
		},
		{
			name: "empty input",
			raw:  "",
			want: Address{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAddress(tt.raw))
		})
	}
}

func TestParseAddress_CityTrimmed(t *testing.T) {
	got := ParseAddress("Weg 9\n50667   Köln  ")
	assert.Equal(t, "50667", got.PostalCode)
	assert.Equal(t, "Köln", got.City)
}

func TestExtractPhone(t *testing.T) {
	assert.Equal(t, "040 1234567", ExtractPhone("Tel.: 040 1234567"))
	assert.Equal(t, "040 1234567", ExtractPhone("Telefon 040 1234567\nFax 040 7654321"))
	assert.Equal(t, "+49 40 123456", ExtractPhone("Rufen Sie an: +49 40 123456 heute"))
	assert.Equal(t, "", ExtractPhone("keine Nummer hier"))
}

func TestExtractEmail(t *testing.T) {
	assert.Equal(t, "info@laden.de", ExtractEmail("Schreiben Sie an info@laden.de bitte"))
	assert.Equal(t, "", ExtractEmail("nichts da"))
}

func TestExtractWebsite(t *testing.T) {
	assert.Equal(t, "https://laden.de/filiale", ExtractWebsite(`mehr unter https://laden.de/filiale gibt es`))
	assert.Equal(t, "", ExtractWebsite("keine URL"))
}

func TestPhoneFromHref(t *testing.T) {
	assert.Equal(t, "0401234567", PhoneFromHref("tel:0401234567"))
	assert.Equal(t, "040 123", PhoneFromHref("TEL: 040 123"))
	assert.Equal(t, "", PhoneFromHref("http://x"))
}

func TestEmailFromHref(t *testing.T) {
	assert.Equal(t, "info@laden.de", EmailFromHref("mailto:info@laden.de?subject=Hi"))
	assert.Equal(t, "", EmailFromHref("tel:123"))
}
