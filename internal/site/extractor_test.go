package site

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealer-scout/internal/locate"
	"github.com/sells-group/dealer-scout/internal/model"
)

func extract(t *testing.T, html string) *model.Record {
	t.Helper()
	scope, err := NewScope(html, nil)
	require.NoError(t, err)

	ex := NewExtractor(locate.NewResolver(nil))
	criteria := model.NewSearchCriteria("20095", 50, nil)
	return ex.Extract(context.Background(), scope, criteria, "https://www.biomarkt.de/haendler/")
}

func TestExtract_StructuredCard(t *testing.T) {
	rec := extract(t, `
		<div class="dealer">
			<h3 class="dealer__title">Biohof Schmidt</h3>
			<address>Musterweg 1<br>20095 Hamburg</address>
			<a href="tel:+4940123456">040 123456</a>
			<a href="mailto:info@biohof-schmidt.de?subject=Anfrage">Mail</a>
			<a href="https://biohof-schmidt.de">Website</a>
			<div class="opening-hours">Mo-Fr 9-18</div>
			<span class="dealer__category">Bioladen</span>
		</div>`)

	require.NotNil(t, rec.Name)
	assert.Equal(t, "Biohof Schmidt", *rec.Name)
	assert.Equal(t, "Musterweg 1", *rec.Street)
	assert.Equal(t, "20095", *rec.PostalCode)
	assert.Equal(t, "Hamburg", *rec.City)
	assert.Equal(t, "+4940123456", *rec.Phone)
	assert.Equal(t, "info@biohof-schmidt.de", *rec.Email)
	assert.Equal(t, "https://biohof-schmidt.de", *rec.Website)
	assert.Equal(t, "Mo-Fr 9-18", *rec.OpeningHours)
	assert.Equal(t, "retail", *rec.Category)
	assert.Equal(t, "20095", rec.SourcePostalCode)
	require.NotNil(t, rec.SourceURL)
	assert.Equal(t, "https://www.biomarkt.de/haendler/", *rec.SourceURL)
}

func TestExtract_HeuristicsOverFreeText(t *testing.T) {
	rec := extract(t, `
		<div>
			<h3>Marktstand Huber</h3>
			<p>Musterweg 1, 20095 Hamburg</p>
			<p>Tel.: 040 1234567</p>
			<p>Wochenmarkt am Rathausplatz</p>
		</div>`)

	assert.Equal(t, "Marktstand Huber", *rec.Name)
	assert.Equal(t, "Musterweg 1", *rec.Street)
	assert.Equal(t, "20095", *rec.PostalCode)
	assert.Equal(t, "Hamburg", *rec.City)
	assert.Equal(t, "040 1234567", *rec.Phone)
	assert.Equal(t, "market", *rec.Category)
}

func TestExtract_UnresolvedFieldsAreNil(t *testing.T) {
	rec := extract(t, `<div><h3>Hofladen ohne Details</h3></div>`)

	require.NotNil(t, rec.Name)
	assert.Nil(t, rec.Street)
	assert.Nil(t, rec.Phone)
	assert.Nil(t, rec.Email)
	assert.Nil(t, rec.Website)
	assert.Nil(t, rec.OpeningHours)
	// No postal code in the unit: the searched code stands in.
	require.NotNil(t, rec.PostalCode)
	assert.Equal(t, "20095", *rec.PostalCode)
}

func TestExtract_CategoryFromKeywordsWhenNoBadge(t *testing.T) {
	rec := extract(t, `<div><h3>Grüne Kiste</h3><p>Ihr Lieferservice für Biokisten.</p></div>`)
	assert.Equal(t, "delivery", *rec.Category)
}

func TestExtract_CategoryDefaultsToRetail(t *testing.T) {
	rec := extract(t, `<div><h3>Laden X</h3></div>`)
	assert.Equal(t, "retail", *rec.Category)
}

func TestExtract_ReleasesScope(t *testing.T) {
	released := false
	scope, err := NewScope(`<div><h3>X</h3></div>`, func(context.Context) error {
		released = true
		return nil
	})
	require.NoError(t, err)

	ex := NewExtractor(locate.NewResolver(nil))
	ex.Extract(context.Background(), scope, model.NewSearchCriteria("20095", 50, nil), "")
	assert.True(t, released)
}
