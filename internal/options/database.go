package options

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/anujsainicse/cloudflare-tunnel/internal/store"
)

const (
	// KeyPrefix is the namespace the collector writes option hashes under.
	KeyPrefix = "option:"

	// StatsKey holds the collector's global counters, written best-effort.
	StatsKey = "stats:global"

	// DefaultMinVolume is the high-volume query threshold.
	DefaultMinVolume = 100000

	// DefaultMinIV is the high-implied-volatility query threshold.
	DefaultMinIV = 1.0
)

// Assets is the fixed set of underlyings the collector tracks.
var Assets = []string{"BTC", "ETH", "SOL"}

// Database answers filtered queries over the option records in the store.
// Like the underlying client, every query degrades to an empty result on
// failure. Results are sorted by symbol so responses are deterministic even
// though SCAN order is not.
type Database struct {
	client *store.Client
}

// NewDatabase wraps a store client. The client's connection lifecycle stays
// with the caller.
func NewDatabase(client *store.Client) *Database {
	return &Database{client: client}
}

// Connect builds a Database and establishes a store connection for the given
// overrides. The Database is usable either way; callers check IsConnected
// before trusting empty results.
func Connect(ctx context.Context, o store.Overrides) *Database {
	client := store.New(o)
	client.Connect(ctx)
	return NewDatabase(client)
}

// IsConnected probes the underlying store connection.
func (d *Database) IsConnected(ctx context.Context) bool {
	return d.client.IsConnected(ctx)
}

// Close releases the underlying store connection.
func (d *Database) Close() {
	d.client.Close()
}

// GetOption fetches and maps a single record by symbol. ok=false when the
// record is absent or the store is unreachable.
func (d *Database) GetOption(ctx context.Context, symbol string) (Record, bool) {
	raw := d.client.GetHash(ctx, KeyPrefix+symbol)
	return MapRecord(raw)
}

// ListSymbols returns every known option symbol, optionally restricted to
// one asset, with the key namespace stripped and sorted lexicographically.
func (d *Database) ListSymbols(ctx context.Context, asset string) []string {
	pattern := KeyPrefix + "*"
	if asset != "" {
		pattern = KeyPrefix + strings.ToUpper(asset) + "-*"
	}

	keys := d.client.ListKeys(ctx, pattern)
	symbols := make([]string, 0, len(keys))
	for _, key := range keys {
		symbols = append(symbols, strings.TrimPrefix(key, KeyPrefix))
	}
	sort.Strings(symbols)
	return symbols
}

// GetByAsset fetches every record for one asset. Symbols whose fetch comes
// back empty are skipped, so the result may be shorter than the symbol list.
func (d *Database) GetByAsset(ctx context.Context, asset string) []Record {
	return d.fetchAll(ctx, d.ListSymbols(ctx, asset))
}

// GetByExpiry fetches every record whose symbol carries the given expiry
// token, optionally restricted to one asset.
func (d *Database) GetByExpiry(ctx context.Context, expiry, asset string) []Record {
	var matching []string
	for _, symbol := range d.ListSymbols(ctx, asset) {
		if strings.Contains(symbol, "-"+expiry+"-") {
			matching = append(matching, symbol)
		}
	}
	return d.fetchAll(ctx, matching)
}

// GetAllOptions fetches every record across all assets.
func (d *Database) GetAllOptions(ctx context.Context) []Record {
	return d.fetchAll(ctx, d.ListSymbols(ctx, ""))
}

// GetHighVolume returns records whose 24h volume meets the threshold.
// A threshold of 0 applies DefaultMinVolume.
func (d *Database) GetHighVolume(ctx context.Context, minVolume float64, asset string) []Record {
	if minVolume == 0 {
		minVolume = DefaultMinVolume
	}
	return filter(d.assetOrAll(ctx, asset), func(r Record) bool {
		return r.Volume24h >= minVolume
	})
}

// GetHighIV returns records whose mark implied volatility meets the
// threshold. A threshold of 0 applies DefaultMinIV.
func (d *Database) GetHighIV(ctx context.Context, minIV float64, asset string) []Record {
	if minIV == 0 {
		minIV = DefaultMinIV
	}
	return filter(d.assetOrAll(ctx, asset), func(r Record) bool {
		return r.MarkIV >= minIV
	})
}

func (d *Database) assetOrAll(ctx context.Context, asset string) []Record {
	if asset != "" {
		return d.GetByAsset(ctx, asset)
	}
	return d.GetAllOptions(ctx)
}

func (d *Database) fetchAll(ctx context.Context, symbols []string) []Record {
	records := make([]Record, 0, len(symbols))
	for _, symbol := range symbols {
		if rec, ok := d.GetOption(ctx, symbol); ok {
			records = append(records, rec)
		}
	}
	return records
}

func filter(records []Record, keep func(Record) bool) []Record {
	var out []Record
	for _, rec := range records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Stats summarizes the database contents and connection. Zero counts are
// real data and stay in the payload; only the collector's optional global
// counters are elided when absent.
type Stats struct {
	TotalOptions      int    `json:"total_options"`
	BTCOptions        int    `json:"btc_options"`
	ETHOptions        int    `json:"eth_options"`
	SOLOptions        int    `json:"sol_options"`
	Connection        string `json:"connection"`
	Database          int    `json:"database"`
	Timestamp         string `json:"timestamp"`
	MessagesProcessed int64  `json:"messages_processed,omitempty"`
	LastUpdate        string `json:"last_update,omitempty"`
	Error             string `json:"error,omitempty"`
}

// MarshalJSON renders a failed stats lookup as a bare error object instead
// of a full payload of misleading zeroes.
func (s Stats) MarshalJSON() ([]byte, error) {
	if s.Error != "" {
		return json.Marshal(map[string]string{"error": s.Error})
	}
	type plain Stats
	return json.Marshal(plain(s))
}

// GetStats counts symbols in total and per asset and enriches the result
// from the collector's global counters when they exist. Missing counters are
// not an error.
func (d *Database) GetStats(ctx context.Context) Stats {
	if !d.IsConnected(ctx) {
		return Stats{Error: "database not connected"}
	}

	perAsset := make(map[string]int, len(Assets))
	total := len(d.ListSymbols(ctx, ""))
	for _, asset := range Assets {
		perAsset[asset] = len(d.ListSymbols(ctx, asset))
	}

	stats := Stats{
		TotalOptions: total,
		BTCOptions:   perAsset["BTC"],
		ETHOptions:   perAsset["ETH"],
		SOLOptions:   perAsset["SOL"],
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	if active, ok := d.client.Active(); ok {
		stats.Connection = active.Addr()
		stats.Database = active.DB
	}

	global := d.client.GetHash(ctx, StatsKey)
	if len(global) > 0 {
		if messages, err := strconv.ParseInt(global["messages"], 10, 64); err == nil {
			stats.MessagesProcessed = messages
		}
		stats.LastUpdate = global["last_update"]
	}

	return stats
}

// Summary aggregates a record set for the ticker response.
type Summary struct {
	TotalOptions      int     `json:"total_options"`
	CallOptions       int     `json:"call_options"`
	PutOptions        int     `json:"put_options"`
	TotalVolume24h    float64 `json:"total_volume_24h"`
	TotalOpenInterest float64 `json:"total_open_interest"`
}

// Summarize computes counts and totals over a record set. Volume and open
// interest totals are rounded to two decimals.
func Summarize(records []Record) Summary {
	summary := Summary{TotalOptions: len(records)}
	for _, rec := range records {
		if rec.IsCall() {
			summary.CallOptions++
		}
		if rec.IsPut() {
			summary.PutOptions++
		}
		summary.TotalVolume24h += rec.Volume24h
		summary.TotalOpenInterest += rec.OpenInterest
	}
	summary.TotalVolume24h = round2(summary.TotalVolume24h)
	summary.TotalOpenInterest = round2(summary.TotalOpenInterest)
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DatabaseStats is a one-shot helper: connect, read stats, close.
func DatabaseStats(ctx context.Context) Stats {
	db := Connect(ctx, store.Overrides{})
	defer db.Close()
	return db.GetStats(ctx)
}
