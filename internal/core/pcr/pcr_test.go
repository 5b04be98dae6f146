package pcr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pcrwatch/pcrwatch/internal/core"
)

func side(oi, vol float64) *core.OptionSide {
	return &core.OptionSide{OpenInterest: oi, TotalTradedVolume: vol}
}

func TestAggregate(t *testing.T) {
	chain := &core.OptionChain{
		Records: core.Records{
			UnderlyingValue: 24000,
			Data: []core.StrikeEntry{
				{StrikePrice: 23800, CE: side(100, 1000), PE: side(150, 500)},
				{StrikePrice: 24000, CE: side(200, 2000), PE: side(250, 1500)},
				{StrikePrice: 24200, PE: side(50, 100)}, // put-only strike
			},
		},
	}

	now := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	snap := Aggregate("NIFTY", chain, now)

	require.Equal(t, "NIFTY", snap.Symbol)
	require.Equal(t, float64(300), snap.TotalCallOI)
	require.Equal(t, float64(450), snap.TotalPutOI)
	require.Equal(t, float64(3000), snap.TotalCallVolume)
	require.Equal(t, float64(2100), snap.TotalPutVolume)
	require.InDelta(t, 1.5, snap.PCROpenInterest, 1e-9)
	require.InDelta(t, 0.7, snap.PCRVolume, 1e-9)
	require.Equal(t, float64(24000), snap.UnderlyingValue)
	require.Equal(t, 3, snap.Strikes)
	require.False(t, snap.NoCallSide)
	require.Equal(t, now, snap.FetchedAt)
	require.NotEmpty(t, snap.ID)
}

func TestAggregateNoCallSide(t *testing.T) {
	chain := &core.OptionChain{
		Records: core.Records{
			Data: []core.StrikeEntry{
				{StrikePrice: 24000, PE: side(50, 10)},
			},
		},
	}

	snap := Aggregate("NIFTY", chain, time.Now())
	require.True(t, snap.NoCallSide)
	require.Zero(t, snap.PCROpenInterest)
	require.Zero(t, snap.PCRVolume)
	require.Equal(t, float64(50), snap.TotalPutOI)
}

func TestAggregateNilChain(t *testing.T) {
	snap := Aggregate("NIFTY", nil, time.Now())
	require.Equal(t, "NIFTY", snap.Symbol)
	require.Zero(t, snap.Strikes)
}
