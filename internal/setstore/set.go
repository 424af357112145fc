package setstore

import (
	"slices"
	"strings"
)

// IdentitySet is an unordered set of candidate identities.
type IdentitySet struct {
	items map[string]struct{}
}

// NewIdentitySet returns a set containing the given identities.
func NewIdentitySet(identities ...string) IdentitySet {
	s := IdentitySet{items: make(map[string]struct{}, len(identities))}
	for _, id := range identities {
		s.Add(id)
	}
	return s
}

// Add inserts identity, ignoring blank values.
func (s *IdentitySet) Add(identity string) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return
	}
	if s.items == nil {
		s.items = make(map[string]struct{})
	}
	s.items[identity] = struct{}{}
}

// Has reports whether identity is in the set.
func (s IdentitySet) Has(identity string) bool {
	_, ok := s.items[strings.TrimSpace(identity)]
	return ok
}

// Len returns the number of identities.
func (s IdentitySet) Len() int {
	return len(s.items)
}

// Union returns a new set holding the identities of s and every other set.
func (s IdentitySet) Union(others ...IdentitySet) IdentitySet {
	out := IdentitySet{items: make(map[string]struct{}, s.Len())}
	for id := range s.items {
		out.items[id] = struct{}{}
	}
	for _, other := range others {
		for id := range other.items {
			out.items[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the identities in lexical order.
func (s IdentitySet) Sorted() []string {
	out := make([]string, 0, len(s.items))
	for id := range s.items {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
