package history

import (
	"sort"
	"strings"

	"github.com/aretw0/surface/pkg/domain"
)

// Wildcard in FilterOptions.Include keeps every component.
const Wildcard = "*"

// FilterOptions selects and orders components for a layout slot.
type FilterOptions struct {
	// Include keeps only components matching one of the entries, unless it holds Wildcard.
	// An empty Include keeps everything.
	Include []string
	// Exclude drops any matching component, whatever Include says.
	Exclude []string
	// Order sorts kept components by the first Include entry they match.
	Order bool
}

// IsComponentType reports whether c matches typ: a case-insensitive substring of
// its componentType, its metadata.category or its nodeId.
//
// Substring matching on three fields is intentional. Layouts select "image" out of
// "hero-image" components and whole categories by a single tag.
func IsComponentType(c domain.Component, typ string) bool {
	needle := strings.ToLower(typ)
	for _, field := range []string{c.ComponentType, c.Category(), c.NodeID} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// FilterComponents applies opts to components, returning a new slice.
func FilterComponents(components []domain.Component, opts FilterOptions) []domain.Component {
	wildcard := len(opts.Include) == 0
	for _, inc := range opts.Include {
		if inc == Wildcard {
			wildcard = true
			break
		}
	}

	kept := make([]domain.Component, 0, len(components))
	for _, c := range components {
		if matchesAny(c, opts.Exclude) {
			continue
		}
		if !wildcard && !matchesAny(c, opts.Include) {
			continue
		}
		kept = append(kept, c)
	}

	if opts.Order && len(opts.Include) > 0 {
		sort.SliceStable(kept, func(i, j int) bool {
			return orderIndex(kept[i], opts.Include) < orderIndex(kept[j], opts.Include)
		})
	}
	return kept
}

func matchesAny(c domain.Component, types []string) bool {
	for _, t := range types {
		if t == Wildcard {
			continue
		}
		if IsComponentType(c, t) {
			return true
		}
	}
	return false
}

// orderIndex is the position of the first named include entry c matches.
// Everything else, wildcard matches included, sorts after all named types.
func orderIndex(c domain.Component, include []string) int {
	for i, t := range include {
		if t == Wildcard {
			continue
		}
		if IsComponentType(c, t) {
			return i
		}
	}
	return len(include)
}
