package source

import (
	"fmt"
	"strings"

	"github.com/finscout/finscout/pkg/types"
)

// DescribeCompany renders a registry entity into the single descriptive
// string fed to the vectorizer. The function is pure and deterministic: the
// same entity always yields the same text, so re-running the pipeline embeds
// identical inputs.
func DescribeCompany(e types.NormalizedEntity) string {
	registered := stringAttr(e.Attributes, "registrationDate")
	if registered == "" {
		registered = "N/A"
	}

	return fmt.Sprintf("%s. Business ID: %s. Industry: %s. Description: %s. Address: %s. Registered: %s.",
		e.DisplayName,
		e.NaturalKey,
		stringAttr(e.Attributes, "industry"),
		stringAttr(e.Attributes, "description"),
		stringAttr(e.Attributes, "address"),
		registered,
	)
}

// DescribeInvestor renders a roster entity into its descriptive string.
// Every field degrades to an empty string when absent — the output never
// contains a null or undefined placeholder.
func DescribeInvestor(e types.NormalizedEntity) string {
	a := e.Attributes

	roleLine := stringAttr(a, "role")
	if firm := stringAttr(a, "firm"); firm != "" {
		roleLine += " at " + firm
	}

	return fmt.Sprintf("%s. %s. Location: %s. Thesis: %s. Preferred industries: %s. Business models: %s. Preferred rounds: %s. Geographic focus: %s. Avoids: %s. Check size: %s.",
		stringAttr(a, "name"),
		roleLine,
		stringAttr(a, "location"),
		stringAttr(a, "thesis"),
		listAttr(a, "preferredIndustries"),
		listAttr(a, "businessModels"),
		listAttr(a, "preferredRounds"),
		listAttr(a, "geographicFocus"),
		listAttr(a, "avoidIndustries"),
		stringAttr(a, "checkSize"),
	)
}

// stringAttr reads a string attribute, returning "" for missing values or
// non-string types.
func stringAttr(attrs map[string]any, key string) string {
	if v, ok := attrs[key].(string); ok {
		return v
	}
	return ""
}

// listAttr joins a list attribute with ", ". JSON arrays decode as []any;
// non-string elements are skipped rather than stringified.
func listAttr(attrs map[string]any, key string) string {
	raw, ok := attrs[key].([]any)
	if !ok {
		return ""
	}

	parts := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
