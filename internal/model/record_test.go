package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupKey_NormalizesCaseAndWhitespace(t *testing.T) {
	a := &Record{
		Name:       Nullable("Biomarkt  Mitte"),
		Street:     Nullable("Musterweg 1"),
		PostalCode: Nullable("20095"),
	}
	b := &Record{
		Name:       Nullable("biomarkt mitte"),
		Street:     Nullable("  musterweg   1 "),
		PostalCode: Nullable("20095"),
	}

	assert.Equal(t, a.DedupKey(), b.DedupKey())
}

func TestDedupKey_FoldsDiacritics(t *testing.T) {
	a := &Record{Name: Nullable("Naturkost Müller"), Street: Nullable("Große Straße 2"), PostalCode: Nullable("80331")}
	b := &Record{Name: Nullable("naturkost muller"), Street: Nullable("große straße 2"), PostalCode: Nullable("80331")}

	// Combining marks are stripped; ß is left alone (it is not a mark).
	assert.Equal(t, a.DedupKey(), b.DedupKey())
}

func TestDedupKey_DistinctRecordsDiffer(t *testing.T) {
	a := &Record{Name: Nullable("Hofladen Nord"), Street: Nullable("Weg 1"), PostalCode: Nullable("20095")}
	b := &Record{Name: Nullable("Hofladen Nord"), Street: Nullable("Weg 2"), PostalCode: Nullable("20095")}

	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
}

func TestDedupKey_NilFields(t *testing.T) {
	r := &Record{}
	assert.Equal(t, "||", r.DedupKey())
}

func TestNullable(t *testing.T) {
	assert.Nil(t, Nullable(""))
	assert.Nil(t, Nullable("   \n\t"))
	require.NotNil(t, Nullable(" x "))
	assert.Equal(t, "x", *Nullable(" x "))
}

func TestRecord_JSONHasAllKeysWithNulls(t *testing.T) {
	r := &Record{SourcePostalCode: "20095"}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))

	for _, key := range []string{
		"name", "street", "postal_code", "city", "phone", "email",
		"website", "opening_hours", "category", "source_postal_code", "source_url",
	} {
		raw, ok := m[key]
		require.True(t, ok, "missing key %q", key)
		if key != "source_postal_code" {
			assert.Equal(t, "null", string(raw), "key %q should be null", key)
		}
	}
}

func TestNewSearchCriteria_DefaultsAndCopies(t *testing.T) {
	c := NewSearchCriteria("20095", 50, nil)
	assert.Equal(t, AllCategories, c.Categories)

	cats := []Category{CategoryMarket}
	c2 := NewSearchCriteria("20095", 50, cats)
	cats[0] = CategoryDelivery
	assert.Equal(t, CategoryMarket, c2.Categories[0])
}
