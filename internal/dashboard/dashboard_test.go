package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/energyplatform/internal/tariff"
)

func TestBuild(t *testing.T) {
	o := Build(tariff.Default())

	require.Len(t, o.Sectors, 4)
	var share float64
	for _, s := range o.Sectors {
		assert.NotEmpty(t, s.Label)
		share += s.Share
	}
	assert.InDelta(t, 1.0, share, 0.001)
	assert.Equal(t, "Industrial", o.Sectors[2].Label)
	assert.InDelta(t, 0.366, o.Sectors[2].Share, 0.001)

	require.Len(t, o.Monthly, 6)
	assert.Equal(t, "Ene", o.Monthly[0].Month)
	assert.Equal(t, 9600, o.Monthly[4].NorteDeSantander)

	require.Len(t, o.KPIs, 4)
	assert.Equal(t, "15.300 kWh", o.KPIs[0].Value)
	assert.Equal(t, "$485,00/kWh", o.KPIs[3].Value)
	assert.Equal(t, Down, o.KPIs[3].Trend)
}

func TestBuild_FollowsRateTable(t *testing.T) {
	one := decimal.NewFromInt(1)
	rates, err := tariff.New(map[tariff.Sector]decimal.Decimal{
		tariff.Commercial:  one,
		tariff.Residential: decimal.NewFromInt(600),
		tariff.Industrial:  one,
		tariff.Public:      one,
	})
	require.NoError(t, err)
	assert.Equal(t, "$600,00/kWh", Build(rates).KPIs[3].Value)
}
