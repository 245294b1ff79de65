package source

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/finscout/finscout/pkg/types"
)

// LoadRoster reads the static investor roster from path and maps each
// investor object verbatim into a NormalizedEntity — the whole source object
// becomes the attributes payload, no field is dropped. A missing or
// unparseable file is fatal: the roster is a curated input, not a best-effort
// one.
func LoadRoster(path string) ([]types.NormalizedEntity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: failed to read roster file %q: %w", path, err)
	}

	var investors []map[string]any
	if err := json.Unmarshal(data, &investors); err != nil {
		return nil, fmt.Errorf("source: failed to parse roster file %q: %w", path, err)
	}

	entities := make([]types.NormalizedEntity, 0, len(investors))
	for i, investor := range investors {
		key := stringAttr(investor, "id")
		if key == "" {
			// Curated entries may predate stable ids; the name then serves
			// as the natural key.
			key = stringAttr(investor, "name")
		}
		if key == "" {
			return nil, fmt.Errorf("source: roster entry %d has neither id nor name", i)
		}

		entities = append(entities, types.NormalizedEntity{
			NaturalKey:  key,
			DisplayName: stringAttr(investor, "name"),
			Attributes:  investor,
		})
	}
	return entities, nil
}
