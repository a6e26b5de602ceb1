package nirum

import (
	"fmt"
	"iter"
)

// A NamePair associates a facial name, used in code, with a behind
// name, used on the wire.
type NamePair struct {
	Facial string
	Behind string
}

// NameMap is an immutable bijection between facial and behind names.
//
// Names absent from the map translate to themselves in both
// directions. A nil *NameMap is an empty map.
type NameMap struct {
	pairs  []NamePair
	behind map[string]string
	facial map[string]string
}

// NewNameMap returns a NameMap built from pairs.
//
// NewNameMap returns an error if a facial name or a behind name
// appears more than once.
func NewNameMap(pairs ...NamePair) (*NameMap, error) {
	ret := &NameMap{
		pairs:  make([]NamePair, 0, len(pairs)),
		behind: make(map[string]string, len(pairs)),
		facial: make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		if p.Behind == "" {
			p.Behind = p.Facial
		}
		if _, dup := ret.behind[p.Facial]; dup {
			return nil, fmt.Errorf("duplicate facial name %q", p.Facial)
		}
		if _, dup := ret.facial[p.Behind]; dup {
			return nil, fmt.Errorf("duplicate behind name %q", p.Behind)
		}
		ret.behind[p.Facial] = p.Behind
		ret.facial[p.Behind] = p.Facial
		ret.pairs = append(ret.pairs, p)
	}
	return ret, nil
}

// MustNameMap is like [NewNameMap], but panics on error.
func MustNameMap(pairs ...NamePair) *NameMap {
	ret, err := NewNameMap(pairs...)
	if err != nil {
		panic(err)
	}
	return ret
}

// Behind returns the behind name for facial.
func (m *NameMap) Behind(facial string) string {
	if m != nil {
		if b, ok := m.behind[facial]; ok {
			return b
		}
	}
	return facial
}

// Facial returns the facial name for behind.
func (m *NameMap) Facial(behind string) string {
	if m != nil {
		if f, ok := m.facial[behind]; ok {
			return f
		}
	}
	return behind
}

// HasFacial reports whether facial was declared in the map.
func (m *NameMap) HasFacial(facial string) bool {
	if m == nil {
		return false
	}
	_, ok := m.behind[facial]
	return ok
}

// HasBehind reports whether behind was declared in the map.
func (m *NameMap) HasBehind(behind string) bool {
	if m == nil {
		return false
	}
	_, ok := m.facial[behind]
	return ok
}

// Len returns the number of declared names.
func (m *NameMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

// All iterates over the declared (facial, behind) pairs in
// declaration order.
func (m *NameMap) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if m == nil {
			return
		}
		for _, p := range m.pairs {
			if !yield(p.Facial, p.Behind) {
				return
			}
		}
	}
}
