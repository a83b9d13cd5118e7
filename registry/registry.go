// Package registry downloads and indexes the token registry the API layer
// uses to resolve token references into currencies.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	getter "github.com/hashicorp/go-getter"
	"github.com/rs/zerolog"

	"github.com/openport-labs/swapquote/quoting"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "registry").Logger()
}

// TokenEntry is one token record in a registry file.
type TokenEntry struct {
	Symbol   string `json:"symbol"`
	ChainID  string `json:"chain_id"`
	Denom    string `json:"denom"`
	Decimals int32  `json:"decimals"`
}

// Download fetches the token registry from a go-getter style source URL,
// e.g. "github.com/openport-labs/token-registry//tokens", into dst.
func Download(src, dst string) error {
	deadline := time.Now().Add(120 * time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	client := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Mode: getter.ClientModeDir,
		Detectors: []getter.Detector{
			&getter.GitHubDetector{},
		},
		Getters: map[string]getter.Getter{
			"git": &getter.GitGetter{},
		},
	}

	log.Info().Str("src", src).Str("dst", dst).Msg("downloading token registry")
	if err := client.Get(); err != nil {
		return fmt.Errorf("failed to download token registry: %w", err)
	}
	return nil
}

// Registry indexes token entries for currency resolution.
type Registry struct {
	byKey map[string]quoting.Currency
}

func key(chainID, denom string) string {
	return chainID + "/" + denom
}

// Load reads every *.json file in dir; each file holds an array of
// TokenEntry records. Later files override earlier ones on key collision.
func Load(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry dir: %w", err)
	}

	r := &Registry{byKey: make(map[string]quoting.Currency)}
	files := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		var tokens []TokenEntry
		if err := json.Unmarshal(body, &tokens); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", e.Name(), err)
		}
		for _, tok := range tokens {
			if tok.ChainID == "" || tok.Denom == "" {
				log.Warn().Str("file", e.Name()).Str("symbol", tok.Symbol).Msg("skipping incomplete token entry")
				continue
			}
			r.byKey[key(tok.ChainID, tok.Denom)] = quoting.Currency{
				ChainID:  tok.ChainID,
				Denom:    tok.Denom,
				Symbol:   tok.Symbol,
				Decimals: tok.Decimals,
			}
		}
		files++
	}

	log.Info().Int("files", files).Int("tokens", len(r.byKey)).Msg("token registry loaded")
	return r, nil
}

// Lookup resolves a (chain, denom) pair into a currency.
func (r *Registry) Lookup(chainID, denom string) (quoting.Currency, bool) {
	c, ok := r.byKey[key(chainID, denom)]
	return c, ok
}

// Len returns the number of indexed tokens.
func (r *Registry) Len() int {
	return len(r.byKey)
}
