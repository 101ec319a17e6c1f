package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealer-scout/internal/config"
	"github.com/sells-group/dealer-scout/internal/model"
)

// resetScanInputs gives each test a clean config and flag state and
// restores the package globals afterwards.
func resetScanInputs(t *testing.T) {
	t.Helper()
	prevCfg, prevCodes, prevStart, prevLimit := cfg, scanCodes, scanStartIndex, scanLimit
	t.Cleanup(func() {
		cfg, scanCodes, scanStartIndex, scanLimit = prevCfg, prevCodes, prevStart, prevLimit
	})
	cfg = &config.Config{}
	scanCodes, scanStartIndex, scanLimit = "", 0, 0
}

func TestResolveCodes_SourcePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		cfgCodes []string
		want     []string
	}{
		{
			name:     "flag wins over config list",
			flag:     " 20095, 80331 ,",
			cfgCodes: []string{"50667"},
			want:     []string{"20095", "80331"},
		},
		{
			name:     "config list wins over seed file",
			cfgCodes: []string{"50667", "60311"},
			want:     []string{"50667", "60311"},
		},
		{
			name: "embedded fallback when nothing is configured",
			want: []string{"20095", "80331", "50667", "60311", "70173"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetScanInputs(t)
			scanCodes = tt.flag
			cfg.Seed.Codes = tt.cfgCodes

			codes, err := resolveCodes()
			require.NoError(t, err)
			assert.Equal(t, tt.want, codes)
		})
	}
}

func TestResolveCodes_WindowFlagsOverrideConfig(t *testing.T) {
	resetScanInputs(t)
	cfg.Seed.Codes = []string{"11111", "22222", "33333", "44444"}
	cfg.Scan.StartIndex = 0
	cfg.Scan.Limit = 1
	scanStartIndex = 1
	scanLimit = 2

	codes, err := resolveCodes()
	require.NoError(t, err)
	assert.Equal(t, []string{"22222", "33333"}, codes)
}

func TestResolveCodes_ConfigWindowApplies(t *testing.T) {
	resetScanInputs(t)
	cfg.Seed.Codes = []string{"11111", "22222", "33333"}
	cfg.Scan.StartIndex = 2

	codes, err := resolveCodes()
	require.NoError(t, err)
	assert.Equal(t, []string{"33333"}, codes)
}

func TestResolveCategories(t *testing.T) {
	resetScanInputs(t)
	cfg.Scan.Categories = []string{"retail", "delivery"}

	cats, err := resolveCategories()
	require.NoError(t, err)
	assert.Equal(t, []model.Category{model.CategoryRetail, model.CategoryDelivery}, cats)
}

func TestResolveCategories_Unknown(t *testing.T) {
	resetScanInputs(t)
	cfg.Scan.Categories = []string{"grosshandel"}

	_, err := resolveCategories()
	require.Error(t, err)
}
