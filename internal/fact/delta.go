package fact

import (
	"fmt"
	"strings"
)

// Delta is the structured result of one skill invocation: the set of
// facts to add and the set to delete, both expressed over the escaped
// namespace. Per §4.A, the del set is applied before the add set when
// merging into a State, and when the same fact appears in both sets,
// add wins.
type Delta struct {
	Add map[Fact]struct{}
	Del map[Fact]struct{}
}

// NewDelta returns an empty Delta.
func NewDelta() Delta {
	return Delta{Add: make(map[Fact]struct{}), Del: make(map[Fact]struct{})}
}

// Apply merges d into s per state' = (state \ del) ∪ add, add winning
// on overlap.
func (d Delta) Apply(s State) State {
	out := s.withDel(d.Del)
	out = out.withAdd(d.Add)
	return out
}

// Merge combines multiple deltas produced by independent skills within
// a single plan. Merge is commutative across independent deltas; the
// Kernel never reorders the actions that produced them, so sequencing
// effects (if any) are captured by calling Apply per-action instead of
// merging blindly across an entire plan.
func Merge(deltas ...Delta) Delta {
	out := NewDelta()
	for _, d := range deltas {
		for f := range d.Add {
			out.Add[f] = struct{}{}
		}
		for f := range d.Del {
			out.Del[f] = struct{}{}
		}
	}
	return out
}

// ParseDelta implements the delta mini-grammar as a small recursive-descent
// parser over balanced parentheses, per the design note that regex cannot
// handle nested forms like "(= (total-cost) 0)":
//
//	atomic fact       -> add
//	-<fact>           -> del (prefix '-' marks deletion)
//	(not <fact>)      -> del
//	(and <f1> <f2> …) -> container; each child recursively contributes
//
// A malformed-parentheses input is rejected wholesale: the whole Delta
// is an error, never a partial result, per §4.A's failure mode.
func ParseDelta(s string) (Delta, error) {
	out := NewDelta()
	forms, err := splitTopLevelForms(s)
	if err != nil {
		return Delta{}, err
	}
	for _, form := range forms {
		if err := parseDeltaForm(form, &out); err != nil {
			return Delta{}, err
		}
	}
	return out, nil
}

// splitTopLevelForms splits s into top-level whitespace-separated forms,
// where a form is either a bare "-(...)"-prefixed fact or a balanced
// parenthesized form. Paren counting (not regex) handles nesting.
func splitTopLevelForms(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	var forms []string
	i := 0
	n := len(s)
	for i < n {
		for i < n && isSpace(s[i]) {
			i++
		}
		if i >= n {
			break
		}
		start := i
		if s[i] == '-' {
			i++
			for i < n && isSpace(s[i]) {
				i++
			}
		}
		if i >= n || s[i] != '(' {
			return nil, fmt.Errorf("delta: expected '(' at position %d in %q", i, s)
		}
		depth := 0
		for i < n {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			i++
			if depth == 0 {
				break
			}
		}
		if depth != 0 {
			return nil, fmt.Errorf("delta: unbalanced parentheses in %q", s)
		}
		forms = append(forms, strings.TrimSpace(s[start:i]))
	}
	return forms, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// parseDeltaForm classifies one top-level form and contributes it to out.
func parseDeltaForm(form string, out *Delta) error {
	negated := false
	if strings.HasPrefix(form, "-") {
		negated = true
		form = strings.TrimSpace(form[1:])
	}

	f, err := Parse(form)
	if err != nil {
		return fmt.Errorf("delta: %w", err)
	}

	switch f.Head() {
	case "not":
		if len(f.Args()) != 1 {
			return fmt.Errorf("delta: (not ...) must wrap exactly one fact, got %q", f.String())
		}
		inner, err := Parse(f.Args()[0])
		if err != nil {
			return fmt.Errorf("delta: %w", err)
		}
		addDel(out, inner, true)
		return nil
	case "and":
		for _, arg := range f.Args() {
			if err := parseDeltaForm(arg, out); err != nil {
				return err
			}
		}
		return nil
	default:
		addDel(out, f, negated)
		return nil
	}
}

func addDel(out *Delta, f Fact, negated bool) {
	if negated {
		out.Del[f] = struct{}{}
	} else {
		out.Add[f] = struct{}{}
	}
}

// Serialize renders a Delta back to its textual form, used for round-trip
// property testing: parse(serialize(parse(D))) == parse(D) as sets.
func (d Delta) Serialize() string {
	var parts []string
	for f := range d.Add {
		parts = append(parts, f.String())
	}
	for f := range d.Del {
		parts = append(parts, "-"+f.String())
	}
	sortStrings(parts)
	return strings.Join(parts, " ")
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
