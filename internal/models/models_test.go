package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerchantRank(t *testing.T) {
	assert.Equal(t, Acom, ParseMerchant("  ACOM "))
	assert.Equal(t, 0, Acom.Rank())
	assert.Equal(t, 3, Aiful.Rank())
	assert.Equal(t, -1, Merchant("lake").Rank())
	assert.False(t, Merchant("lake").Known())
}

func TestAssumptionsFallbacks(t *testing.T) {
	a := Assumptions{
		UnitPrices: map[Merchant]float64{Acom: 85000, Mobit: 0},
		EstRates:   map[Merchant]float64{Acom: 25},
	}
	assert.Equal(t, 85000.0, a.PriceFor(Acom))
	assert.Equal(t, DefaultUnitPrice, a.PriceFor(Mobit))
	assert.Equal(t, DefaultUnitPrice, a.PriceFor("lake"))
	assert.Equal(t, 25.0, a.EstRateFor(Acom))
	assert.Equal(t, DefaultEstRate, a.EstRateFor(Promise))

	a.FallbackPrice, a.FallbackEstRate = 1000, 5
	assert.Equal(t, 1000.0, a.PriceFor("lake"))
	assert.Equal(t, 5.0, a.EstRateFor("lake"))
}

func TestAssumptionsCloneIsDeep(t *testing.T) {
	a := Assumptions{UnitPrices: map[Merchant]float64{Acom: 1}}
	b := a.Clone()
	b.UnitPrices[Acom] = 2
	b.EstRates[Acom] = 3
	assert.Equal(t, 1.0, a.UnitPrices[Acom])
	assert.Nil(t, a.EstRates)
}

func TestCompositeKeyMediaKey(t *testing.T) {
	k := CompositeKey{Date: "2025-01-28", Media: "meta", LPNumber: "lp1", Method: "direct"}
	assert.Equal(t, MediaKey{Date: "2025-01-28", Media: "meta"}, k.MediaKey())
}
