package site

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealer-scout/internal/locate"
	"github.com/sells-group/dealer-scout/internal/model"
)

func TestEngine_Collect(t *testing.T) {
	page := searchReadyPage()
	page.location = "https://www.biomarkt.de/haendler/?searched"
	page.counts[".dealer"] = 2
	page.htmls[".dealer"] = []string{
		`<div class="dealer"><h3>Biohof Schmidt</h3><address>Musterweg 1<br>20095 Hamburg</address></div>`,
		`<div class="dealer"><h3>Naturkost Weber</h3></div>`,
	}

	res := locate.NewResolver(nil)
	engine := NewEngine(
		page,
		NewController(page, res, "https://www.biomarkt.de/haendler/", 50*time.Millisecond),
		NewDiscovery(page, res, nil, DiscoveryConfig{}),
		NewExtractor(res),
	)

	var records []*model.Record
	criteria := model.NewSearchCriteria("20095", 50, nil)
	err := engine.Collect(context.Background(), criteria, func(rec *model.Record) error {
		records = append(records, rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Biohof Schmidt", *records[0].Name)
	assert.Equal(t, "Musterweg 1", *records[0].Street)
	assert.Equal(t, "20095", records[0].SourcePostalCode)
	require.NotNil(t, records[0].SourceURL)
	assert.Equal(t, page.location, *records[0].SourceURL)

	assert.Equal(t, "Naturkost Weber", *records[1].Name)
	assert.Nil(t, records[1].Street)
}
