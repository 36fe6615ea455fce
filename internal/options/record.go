// Package options turns the raw hash records kept in Redis into typed
// option snapshots and answers filtered queries over them.
package options

import (
	"strconv"
	"strings"
)

// Record is one option snapshot. The symbol encodes
// {asset}-{expiry}-{strike}-{C|P}; every numeric field defaults to zero when
// the stored value is absent or unparsable.
type Record struct {
	Symbol          string  `json:"symbol"`
	LastPrice       float64 `json:"last_price"`
	MarkPrice       float64 `json:"mark_price"`
	IndexPrice      float64 `json:"index_price"`
	MarkIV          float64 `json:"mark_iv"`
	UnderlyingPrice float64 `json:"underlying_price"`
	BidPrice        float64 `json:"bid_price"`
	AskPrice        float64 `json:"ask_price"`
	OpenInterest    float64 `json:"open_interest"`
	Volume24h       float64 `json:"volume_24h"`
	Turnover24h     float64 `json:"turnover_24h"`
	Delta           float64 `json:"delta"`
	Gamma           float64 `json:"gamma"`
	Theta           float64 `json:"theta"`
	Vega            float64 `json:"vega"`
	BidSize         float64 `json:"bid_size"`
	AskSize         float64 `json:"ask_size"`
	BidIV           float64 `json:"bid_iv"`
	AskIV           float64 `json:"ask_iv"`
	Timestamp       float64 `json:"timestamp"`
}

// IsCall reports whether the symbol names a call option.
func (r Record) IsCall() bool { return strings.HasSuffix(r.Symbol, "-C") }

// IsPut reports whether the symbol names a put option.
func (r Record) IsPut() bool { return strings.HasSuffix(r.Symbol, "-P") }

// MapRecord converts a raw field map into a Record. An empty input reports
// ok=false and callers treat it as not found. Fields present but unparsable
// coerce to zero rather than failing the record; unknown fields are dropped.
func MapRecord(raw map[string]string) (Record, bool) {
	if len(raw) == 0 {
		return Record{}, false
	}

	rec := Record{Symbol: raw["symbol"]}
	for name, dst := range map[string]*float64{
		"last_price":       &rec.LastPrice,
		"mark_price":       &rec.MarkPrice,
		"index_price":      &rec.IndexPrice,
		"mark_iv":          &rec.MarkIV,
		"underlying_price": &rec.UnderlyingPrice,
		"bid_price":        &rec.BidPrice,
		"ask_price":        &rec.AskPrice,
		"open_interest":    &rec.OpenInterest,
		"volume_24h":       &rec.Volume24h,
		"turnover_24h":     &rec.Turnover24h,
		"delta":            &rec.Delta,
		"gamma":            &rec.Gamma,
		"theta":            &rec.Theta,
		"vega":             &rec.Vega,
		"bid_size":         &rec.BidSize,
		"ask_size":         &rec.AskSize,
		"bid_iv":           &rec.BidIV,
		"ask_iv":           &rec.AskIV,
		"timestamp":        &rec.Timestamp,
	} {
		value, present := raw[name]
		if !present {
			continue
		}
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = parsed
		}
	}

	return rec, true
}
