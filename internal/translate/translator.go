// Package translate provides best-effort Finnish → English translation for
// industry labels.
//
// Translation is never allowed to fail the pipeline: any provider error
// (network, rate limit, non-2xx) falls back to an embedded exact-match
// dictionary, and a dictionary miss passes the original text through
// unchanged. A degraded label is acceptable; an aborted ingestion run is not.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed dictionary.yaml
var dictionaryYAML []byte

// Config holds configuration for the translator.
type Config struct {
	APIKey  string
	BaseURL string
	Source  string        // default: fi
	Target  string        // default: en
	Timeout time.Duration // default: 5s — translation is best-effort, fail fast
}

// Translator translates label strings with a network provider, an embedded
// static dictionary as fallback, and a heuristic that skips text that is
// already English.
type Translator struct {
	cfg     Config
	client  *http.Client
	breaker *circuitBreaker
	dict    map[string]string
}

// plainASCII matches text made of ASCII letters, digits, spaces and common
// label punctuation. Combined with the diacritics check below it is the
// "already English" heuristic: such text is returned without a network call.
var plainASCII = regexp.MustCompile(`^[A-Za-z0-9\s.,;:'&()/-]+$`)

const finnishDiacritics = "äöåÄÖÅ"

// New creates a translator. The embedded dictionary is parsed eagerly so a
// malformed dictionary fails at construction, not mid-run.
func New(cfg Config) (*Translator, error) {
	if cfg.Source == "" {
		cfg.Source = "fi"
	}
	if cfg.Target == "" {
		cfg.Target = "en"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	dict := map[string]string{}
	if err := yaml.Unmarshal(dictionaryYAML, &dict); err != nil {
		return nil, fmt.Errorf("translate: failed to parse embedded dictionary: %w", err)
	}

	return &Translator{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: newCircuitBreaker(),
		dict:    dict,
	}, nil
}

// Translate returns the English form of text. It never returns an error:
// empty input and already-English input pass through unchanged, and provider
// failures degrade to the dictionary, then to the original text.
func (t *Translator) Translate(ctx context.Context, text string) string {
	if text == "" {
		return text
	}

	// Known dictionary keys are Finnish by definition, even when they carry
	// no diacritics ("Teollisuus"), so the already-English heuristic only
	// applies to text outside the dictionary.
	if _, known := t.dict[text]; !known {
		if !strings.ContainsAny(text, finnishDiacritics) && plainASCII.MatchString(text) {
			return text
		}
	}

	result, err := t.breaker.Execute(ctx, func() (interface{}, error) {
		return t.translate(ctx, text)
	})
	if err != nil {
		if translated, ok := t.dict[text]; ok {
			return translated
		}
		log.Printf("translate: provider failed and no dictionary entry for %q (keeping original): %v", text, err)
		return text
	}
	return result.(string)
}

// translateRequest is the request body for POST /translate.
type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// translateResponse is the response body from POST /translate.
type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (t *Translator) translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	jsonData, err := json.Marshal(translateRequest{
		Text:   text,
		Source: t.cfg.Source,
		Target: t.cfg.Target,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/translate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("translation provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if respData.TranslatedText == "" {
		return "", fmt.Errorf("translation provider returned empty text")
	}
	return respData.TranslatedText, nil
}
