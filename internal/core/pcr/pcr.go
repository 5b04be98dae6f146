// Package pcr derives the put/call-ratio sentiment metric from a raw
// option-chain document.
package pcr

import (
	"time"

	"github.com/google/uuid"

	"github.com/pcrwatch/pcrwatch/internal/core"
)

// Aggregate folds an option chain into a snapshot: total call/put open
// interest and traded volume, and the derived ratios. A zero call-side
// denominator yields a ratio of 0 with NoCallSide set instead of dividing.
func Aggregate(symbol string, chain *core.OptionChain, fetchedAt time.Time) *core.Snapshot {
	snap := &core.Snapshot{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		FetchedAt: fetchedAt,
	}
	if chain == nil {
		return snap
	}

	snap.UnderlyingValue = chain.Records.UnderlyingValue
	snap.Strikes = len(chain.Records.Data)

	for _, entry := range chain.Records.Data {
		if entry.CE != nil {
			snap.TotalCallOI += entry.CE.OpenInterest
			snap.TotalCallVolume += entry.CE.TotalTradedVolume
		}
		if entry.PE != nil {
			snap.TotalPutOI += entry.PE.OpenInterest
			snap.TotalPutVolume += entry.PE.TotalTradedVolume
		}
	}

	if snap.TotalCallOI > 0 {
		snap.PCROpenInterest = snap.TotalPutOI / snap.TotalCallOI
	} else {
		snap.NoCallSide = true
	}
	if snap.TotalCallVolume > 0 {
		snap.PCRVolume = snap.TotalPutVolume / snap.TotalCallVolume
	}

	return snap
}
