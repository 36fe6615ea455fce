// Package policy gates the public surface on an externally maintained
// allow-list of (asset, expiry) combinations.
package policy

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the allow-list document next to the binary.
const DefaultPath = "allowed_tickers.json"

// Entry is one permitted (asset, expiry) combination. Asset comparison is
// case-insensitive, expiry is exact.
type Entry struct {
	Asset  string `yaml:"asset" json:"asset"`
	Expiry string `yaml:"expiry" json:"expiry"`
}

// Document is the allow-list file's shape: a single top-level sequence.
type Document struct {
	Allowed []Entry `yaml:"allowed" json:"allowed"`
}

// AllowList reads the policy document fresh on every check, so external
// edits take effect on the next call without a restart.
type AllowList struct {
	path string
}

// New returns an AllowList backed by the document at path.
func New(path string) *AllowList {
	if path == "" {
		path = DefaultPath
	}
	return &AllowList{path: path}
}

// Load reads and parses the document. A missing file or malformed content
// yields an empty document, never an error: an unreadable policy denies
// everything. The document is parsed as YAML, which also accepts the
// original JSON form of the file.
func (a *AllowList) Load() Document {
	var doc Document

	data, err := os.ReadFile(a.path)
	if err != nil {
		log.Debug().Err(err).Str("path", a.path).Msg("allow-list not readable")
		return doc
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("path", a.path).Msg("allow-list malformed, treating as empty")
		return Document{}
	}
	return doc
}

// IsAllowed reports whether the (asset, expiry) combination is permitted by
// the document's current content.
func (a *AllowList) IsAllowed(asset, expiry string) bool {
	for _, entry := range a.Load().Allowed {
		if strings.EqualFold(entry.Asset, asset) && entry.Expiry == expiry {
			return true
		}
	}
	return false
}
