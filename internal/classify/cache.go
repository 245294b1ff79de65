// Package classify provides the lazily loaded industry classification cache.
//
// The classification service exposes a single full-table fetch with no
// pagination. The cache loads it at most once per process: the first call to
// Get performs the network fetch, every later call returns the memoized
// result. A failed fetch is memoized as an empty table — the pipeline then
// degrades to "Industry Code: <code>" labels rather than hammering a service
// that is already down.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/finscout/finscout/pkg/types"
)

// Config holds configuration for the classification cache.
type Config struct {
	BaseURL string
	Timeout time.Duration // default: 15s
}

// Cache memoizes the code→label classification table for the lifetime of
// the process.
type Cache struct {
	cfg    Config
	client *http.Client

	mu sync.Mutex
	// attempted distinguishes "not yet loaded" from "loaded empty": once a
	// load has been attempted, the result (even a failure) is final for
	// this run.
	attempted bool
	entries   map[string]types.ClassificationEntry
}

// New creates a classification cache. No network call is made until the
// first Get.
func New(cfg Config) *Cache {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Cache{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Get returns the code→entry classification table, fetching it on first
// call. A fetch failure is non-fatal: it logs a warning and returns an
// empty map, and subsequent calls return that empty map without retrying.
func (c *Cache) Get(ctx context.Context) map[string]types.ClassificationEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempted {
		return c.entries
	}
	c.attempted = true
	c.entries = map[string]types.ClassificationEntry{}

	entries, err := c.fetch(ctx)
	if err != nil {
		log.Printf("classify: failed to load classification table (falling back to raw codes): %v", err)
		return c.entries
	}
	c.entries = entries
	return c.entries
}

// rawClassification is one row of the classification service response. Each
// code carries language-tagged description variants.
type rawClassification struct {
	Code         string `json:"code"`
	Descriptions []struct {
		LanguageCode string `json:"languageCode"`
		Description  string `json:"description"`
	} `json:"descriptions"`
}

func (c *Cache) fetch(ctx context.Context) (map[string]types.ClassificationEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/classifications", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classification service returned status %d", resp.StatusCode)
	}

	var rows []rawClassification
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	entries := make(map[string]types.ClassificationEntry, len(rows))
	for _, row := range rows {
		if row.Code == "" {
			continue
		}
		entries[row.Code] = selectLabel(row)
	}
	return entries, nil
}

// selectLabel picks the label variant for a code: the English description
// when present, else the Finnish one (marked as source language), else an
// empty label.
func selectLabel(row rawClassification) types.ClassificationEntry {
	entry := types.ClassificationEntry{Code: row.Code}

	var finnish string
	for _, d := range row.Descriptions {
		switch d.LanguageCode {
		case "en":
			if d.Description != "" {
				entry.Label = d.Description
				return entry
			}
		case "fi":
			if finnish == "" {
				finnish = d.Description
			}
		}
	}

	if finnish != "" {
		entry.Label = finnish
		entry.IsSourceLanguage = true
	}
	return entry
}
