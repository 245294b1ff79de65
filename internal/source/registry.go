// Package source provides the two source adapters of the ingestion pipeline:
// the paginated company registry fetcher and the static investor roster
// loader. Both produce a sequence of types.NormalizedEntity.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/finscout/finscout/internal/classify"
	"github.com/finscout/finscout/internal/translate"
	"github.com/finscout/finscout/pkg/types"
)

const (
	// registryPageSize is fixed by the listing service, not the client.
	registryPageSize = 100

	// maxRegistryPages caps a single fetch regardless of target count.
	maxRegistryPages = 50

	// minRegistrationYear is the registration-year cutoff: older companies
	// are filtered out of the listing.
	minRegistrationYear = 2015

	// defaultPageDelay is the politeness throttle between page requests.
	defaultPageDelay = 300 * time.Millisecond
)

// RegistryConfig holds configuration for the registry adapter.
type RegistryConfig struct {
	BaseURL   string
	Timeout   time.Duration // per-request timeout, default: 30s
	PageDelay time.Duration // delay between page requests, default: 300ms
}

// Registry fetches companies from the national registry's paginated listing
// endpoint and normalizes them. Classification lookups and label translation
// are delegated to the injected collaborators.
type Registry struct {
	cfg             RegistryConfig
	client          *http.Client
	classifications *classify.Cache
	translator      *translate.Translator
	pageLimiter     *rate.Limiter
}

// NewRegistry creates a registry adapter.
func NewRegistry(cfg RegistryConfig, classifications *classify.Cache, translator *translate.Translator) *Registry {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageDelay == 0 {
		cfg.PageDelay = defaultPageDelay
	}
	return &Registry{
		cfg:             cfg,
		client:          &http.Client{Timeout: cfg.Timeout},
		classifications: classifications,
		translator:      translator,
		pageLimiter:     rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
	}
}

// businessID accepts both source shapes for the company identifier: a plain
// string and a nested {"value": "..."} object.
type businessID struct {
	Value string
}

func (b *businessID) UnmarshalJSON(data []byte) error {
	var flat string
	if err := json.Unmarshal(data, &flat); err == nil {
		b.Value = flat
		return nil
	}

	var nested struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return fmt.Errorf("businessId is neither a string nor an object: %w", err)
	}
	b.Value = nested.Value
	return nil
}

// rawCompany mirrors one record of the listing response.
type rawCompany struct {
	BusinessID       businessID       `json:"businessId"`
	Names            []rawName        `json:"names"`
	MainBusinessLine *rawBusinessLine `json:"mainBusinessLine"`
	Descriptions     []rawDescription `json:"descriptions"`
	Addresses        []rawAddress     `json:"addresses"`
	RegistrationDate string           `json:"registrationDate"`
}

type rawName struct {
	Name    string `json:"name"`
	Type    string `json:"type"` // "1" marks the current primary name
	EndDate string `json:"endDate"`
}

type rawBusinessLine struct {
	Type string `json:"type"` // the industry classification code
}

type rawDescription struct {
	LanguageCode string `json:"languageCode"`
	Description  string `json:"description"`
}

type rawAddress struct {
	Street          string `json:"street"`
	BuildingNumber  string `json:"buildingNumber"`
	Entrance        string `json:"entrance"`
	ApartmentNumber string `json:"apartmentNumber"`
	PostCode        string `json:"postCode"`
	City            string `json:"city"`
}

// listingResponse is one page of the listing endpoint.
type listingResponse struct {
	Companies []rawCompany `json:"companies"`
}

// Fetch paginates the listing endpoint from page 1 and returns up to
// targetCount normalized companies. Records are filtered to those registered
// in minRegistrationYear or later that carry an industry classification
// code. Fetching stops at the target count, at a short page (fewer than the
// page size, meaning the last page), or at the page ceiling, whichever comes
// first. Any listing error is fatal for the fetch; label translation
// failures are absorbed by the translator and never abort it.
func (r *Registry) Fetch(ctx context.Context, targetCount int) ([]types.NormalizedEntity, error) {
	if targetCount <= 0 {
		return nil, fmt.Errorf("source: target count must be positive, got %d", targetCount)
	}

	var accumulated []types.NormalizedEntity
	for page := 1; page <= maxRegistryPages; page++ {
		// Politeness throttle: the first wait is satisfied by the initial
		// token, later waits space the requests by the page delay.
		if err := r.pageLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("source: page delay interrupted: %w", err)
		}

		companies, err := r.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		for _, company := range companies {
			if !passesFilters(company) {
				continue
			}
			accumulated = append(accumulated, r.normalize(ctx, company))
		}

		if len(accumulated) >= targetCount {
			break
		}
		if len(companies) < registryPageSize {
			// Short page: the listing has no more records.
			break
		}
	}

	if len(accumulated) > targetCount {
		accumulated = accumulated[:targetCount]
	}
	log.Printf("source: fetched %d companies from registry", len(accumulated))
	return accumulated, nil
}

func (r *Registry) fetchPage(ctx context.Context, page int) ([]rawCompany, error) {
	url := fmt.Sprintf("%s/companies?page=%d", r.cfg.BaseURL, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: failed to create listing request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: listing request failed (page %d): %w", page, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: listing service returned status %d (page %d)", resp.StatusCode, page)
	}

	var body listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("source: failed to decode listing page %d: %w", page, err)
	}
	return body.Companies, nil
}

// passesFilters keeps companies registered in the cutoff year or later that
// carry an industry classification code.
func passesFilters(company rawCompany) bool {
	if registrationYear(company.RegistrationDate) < minRegistrationYear {
		return false
	}
	return company.MainBusinessLine != nil && company.MainBusinessLine.Type != ""
}

// registrationYear parses the year out of an ISO "2006-01-02" date.
// Returns 0 for missing or malformed dates, which always fails the cutoff.
func registrationYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// normalize maps one raw registry record into a NormalizedEntity.
func (r *Registry) normalize(ctx context.Context, company rawCompany) types.NormalizedEntity {
	name := currentName(company.Names)
	industry := r.resolveIndustry(ctx, company.MainBusinessLine.Type)

	attributes := map[string]any{
		"businessId":       company.BusinessID.Value,
		"industryCode":     company.MainBusinessLine.Type,
		"industry":         industry,
		"description":      englishDescription(company.Descriptions),
		"address":          composeAddress(firstAddress(company.Addresses)),
		"registrationDate": company.RegistrationDate,
	}

	return types.NormalizedEntity{
		NaturalKey:  company.BusinessID.Value,
		DisplayName: name,
		Attributes:  attributes,
	}
}

// currentName picks the active primary name: type "1" with no end date.
// Falls back to the first listed name when no entry qualifies.
func currentName(names []rawName) string {
	for _, n := range names {
		if n.Type == "1" && n.EndDate == "" {
			return n.Name
		}
	}
	if len(names) > 0 {
		return names[0].Name
	}
	return ""
}

// englishDescription prefers the English-language description and falls back
// to the first available variant.
func englishDescription(descriptions []rawDescription) string {
	for _, d := range descriptions {
		if d.LanguageCode == "en" && d.Description != "" {
			return d.Description
		}
	}
	if len(descriptions) > 0 {
		return descriptions[0].Description
	}
	return ""
}

func firstAddress(addresses []rawAddress) rawAddress {
	if len(addresses) > 0 {
		return addresses[0]
	}
	return rawAddress{}
}

// composeAddress joins the optional address parts into a single line:
// street, building number and entrance are concatenated, the apartment
// number follows after a space, and "postCode city" after a comma. Missing
// parts never leave dangling separators or double spaces.
func composeAddress(a rawAddress) string {
	streetPart := a.Street + a.BuildingNumber + a.Entrance
	if a.ApartmentNumber != "" {
		if streetPart != "" {
			streetPart += " "
		}
		streetPart += a.ApartmentNumber
	}

	cityPart := strings.TrimSpace(a.PostCode + " " + a.City)

	switch {
	case streetPart == "":
		return cityPart
	case cityPart == "":
		return streetPart
	default:
		return streetPart + ", " + cityPart
	}
}

// resolveIndustry turns a classification code into a readable English label.
// A cache miss (including a failed classification load) degrades to
// "Industry Code: <code>"; a Finnish label goes through the translator.
func (r *Registry) resolveIndustry(ctx context.Context, code string) string {
	entry, ok := r.classifications.Get(ctx)[code]
	if !ok || entry.Label == "" {
		return "Industry Code: " + code
	}
	if entry.IsSourceLanguage {
		return r.translator.Translate(ctx, entry.Label)
	}
	return entry.Label
}
