// Package selector chooses the rewrite provider for an entity.
package selector

import (
	"github.com/jonwraymond/pokedex/internal/metadata"
	"github.com/jonwraymond/pokedex/internal/rewrite"
)

// CaveCategory routes an entity to the Yoda provider. Matched exactly.
const CaveCategory = "cave"

// Select returns ProviderYoda for cave dwellers and legendary entities and
// ProviderShakespeare for everything else. It reads only Category and
// Legendary.
func Select(meta metadata.EntityMetadata) rewrite.ProviderID {
	if meta.Category == CaveCategory || meta.Legendary {
		return rewrite.ProviderYoda
	}
	return rewrite.ProviderShakespeare
}
