package core

import "time"

// FailureCause classifies why a data-endpoint attempt failed.
type FailureCause string

const (
	CauseBlocked          FailureCause = "blocked"
	CauseBadStatus        FailureCause = "bad_status"
	CauseMalformedPayload FailureCause = "malformed_payload"
	CauseNetworkTimeout   FailureCause = "network_timeout"
)

// OptionChain is the raw option-chain document as returned by the upstream
// data endpoint. It is handed to aggregation unchanged.
type OptionChain struct {
	Records Records `json:"records"`
}

// Records holds the per-strike entries and the underlying's current value.
type Records struct {
	ExpiryDates     []string      `json:"expiryDates,omitempty"`
	Data            []StrikeEntry `json:"data"`
	Timestamp       string        `json:"timestamp,omitempty"`
	UnderlyingValue float64       `json:"underlyingValue"`
}

// StrikeEntry carries the call and put sides for one strike. Either side may
// be absent when the strike trades only one way.
type StrikeEntry struct {
	StrikePrice float64     `json:"strikePrice"`
	ExpiryDate  string      `json:"expiryDate,omitempty"`
	CE          *OptionSide `json:"CE,omitempty"`
	PE          *OptionSide `json:"PE,omitempty"`
}

// OptionSide is one side (call or put) of a strike entry.
type OptionSide struct {
	OpenInterest         float64 `json:"openInterest"`
	ChangeInOpenInterest float64 `json:"changeinOpenInterest"`
	TotalTradedVolume    float64 `json:"totalTradedVolume"`
	ImpliedVolatility    float64 `json:"impliedVolatility,omitempty"`
	LastPrice            float64 `json:"lastPrice,omitempty"`
}

// Snapshot is one aggregated put/call-ratio observation for a symbol.
type Snapshot struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	PCROpenInterest float64   `json:"pcr_open_interest"`
	PCRVolume       float64   `json:"pcr_volume"`
	TotalCallOI     float64   `json:"total_call_oi"`
	TotalPutOI      float64   `json:"total_put_oi"`
	TotalCallVolume float64   `json:"total_call_volume"`
	TotalPutVolume  float64   `json:"total_put_volume"`
	UnderlyingValue float64   `json:"underlying_value"`
	Strikes         int       `json:"strikes"`
	NoCallSide      bool      `json:"no_call_side,omitempty"`
	FetchedAt       time.Time `json:"fetched_at"`
}
