// Package catalog defines the unique item records the matcher works
// against and the lookup contract an item loader must provide.
package catalog

// Item is a single unique item from the catalog.
type Item struct {
	Name    string // Unique item name, e.g. "Wake of Destruction"
	Base    string // Base type shared with other uniques, e.g. "Ornate Greaves"
	Icon    string // Path to the item's source icon image
	Sockets int    // Maximum socket count, 0 for unsocketable items
}

// Catalog is the lookup surface the matcher needs from an item loader.
// Implementations must be safe for reads after construction; the
// matcher never mutates the catalog.
type Catalog interface {
	// Filter returns all items sharing the given base name, in a
	// deterministic order. The order decides tie-breaks during
	// template matching.
	Filter(base string) []Item

	// HasBase reports whether any catalog item uses the given base name.
	HasBase(base string) bool
}

// Static is an in-memory Catalog built from a fixed item slice.
// Filter preserves the insertion order of the items.
type Static struct {
	byBase map[string][]Item
}

// NewStatic builds a Static catalog from the given items.
func NewStatic(items []Item) *Static {
	s := &Static{byBase: make(map[string][]Item)}
	for _, item := range items {
		s.byBase[item.Base] = append(s.byBase[item.Base], item)
	}
	return s
}

// Filter returns all items with the given base name in insertion order.
func (s *Static) Filter(base string) []Item {
	return s.byBase[base]
}

// HasBase reports whether the base name exists in the catalog.
func (s *Static) HasBase(base string) bool {
	_, ok := s.byBase[base]
	return ok
}
