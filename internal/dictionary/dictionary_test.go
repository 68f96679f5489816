package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supaspend/ledger/internal/ledger"
)

func TestCategories(t *testing.T) {
	got := Categories()
	require.Len(t, got, len(ledger.Categories))
	assert.Equal(t, ledger.Category("Travel"), got[0].Code)
	for _, c := range got {
		assert.True(t, c.Code.IsCanonical())
		assert.NotEmpty(t, c.Label)
	}
}

func TestCurrencies(t *testing.T) {
	scales := map[ledger.Currency]int{}
	for _, c := range Currencies() {
		assert.NotEmpty(t, c.Label, c.Code)
		scales[c.Code] = c.Scale
	}
	assert.Equal(t, 2, scales[ledger.CurrencyUSD])
	assert.Equal(t, 2, scales[ledger.CurrencyPHP])
	assert.Equal(t, 0, scales[ledger.CurrencyVND])
}
