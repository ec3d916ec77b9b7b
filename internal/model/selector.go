package model

import (
	"strings"

	"supportbot/internal/domain"
)

// Select orders generation-capable models by the preferred family list.
// A model is claimed by the first family whose name it contains; within
// one family the provider's own listing order is kept. When no model
// matches any family, the first generation-capable model in the listing
// is used, so the cascade only comes back empty when the listing holds
// nothing usable at all. The result is the fallback cascade.
func Select(models []domain.ModelDescriptor, preferred []string) []domain.ModelDescriptor {
	var out []domain.ModelDescriptor
	seen := make(map[string]bool)
	for _, family := range preferred {
		for _, m := range models {
			if seen[m.Name] || !m.SupportsGeneration() {
				continue
			}
			if strings.Contains(m.Name, family) {
				seen[m.Name] = true
				out = append(out, m)
			}
		}
	}
	if len(out) == 0 {
		for _, m := range models {
			if m.SupportsGeneration() {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
