package fact

// State is the process-scoped, mutable-by-Kernel-only fact set plus the
// auxiliary object-type map used by the Problem Synthesizer. State is a
// value type; callers that want to "mutate" it reassign the result of
// Delta.Apply rather than mutating an existing State in place, matching
// the read-only-view requirement for the synthesizer.
type State struct {
	Facts   map[Fact]struct{}
	Objects map[string]string // object name -> type
}

// NewState returns an empty state.
func NewState() State {
	return State{
		Facts:   make(map[Fact]struct{}),
		Objects: make(map[string]string),
	}
}

// Clone returns a deep copy so callers can hand out read-only views
// without risking aliasing into the Kernel's live state.
func (s State) Clone() State {
	out := NewState()
	for f := range s.Facts {
		out.Facts[f] = struct{}{}
	}
	for o, t := range s.Objects {
		out.Objects[o] = t
	}
	return out
}

// Has reports whether f is present in the fact set.
func (s State) Has(f Fact) bool {
	_, ok := s.Facts[f]
	return ok
}

// withAdd inserts every fact in facts into a clone of the set, returning the new State (copy-on-write
// at the caller's discretion; Kernel calls this in a loop and reassigns).
func (s State) withAdd(facts map[Fact]struct{}) State {
	out := s.Clone()
	for f := range facts {
		out.Facts[f] = struct{}{}
	}
	return out
}

func (s State) withDel(facts map[Fact]struct{}) State {
	out := s.Clone()
	for f := range facts {
		delete(out.Facts, f)
	}
	return out
}

// SetType records an object's inferred type, retaining any earlier
// assignment on conflict (per §4.L tie-break rule) and reporting whether
// the call introduced a genuinely new mapping.
func (s State) SetType(object, typ string) (changed bool) {
	if _, exists := s.Objects[object]; exists {
		return false
	}
	s.Objects[object] = typ
	return true
}

// SortedFacts returns the fact set as a slice, useful for deterministic
// serialization (problem :init rendering, CoT environment strings).
func (s State) SortedFacts() []Fact {
	out := make([]Fact, 0, len(s.Facts))
	for f := range s.Facts {
		out = append(out, f)
	}
	sortFacts(out)
	return out
}

func sortFacts(facts []Fact) {
	// Simple insertion sort by canonical text; fact sets are small
	// (bounded by a single sandbox's object count), so O(n^2) is fine
	// and keeps this dependency-free.
	for i := 1; i < len(facts); i++ {
		for j := i; j > 0 && facts[j-1].text > facts[j].text; j-- {
			facts[j-1], facts[j] = facts[j], facts[j-1]
		}
	}
}
