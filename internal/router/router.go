// Package router implements the Hypothalamus Filter (SPEC_FULL.md
// §4.J): a four-gate classifier deciding whether a task description
// can be executed directly by Nerves or must be decomposed by Brain.
//
// Grounded directly on
// _examples/original_source/algorithm/hypothalamus_filter.py
// (HypothalamusFilter.filter and its four _contains_*/_calculate_*
// gates), with the Open Question resolved per SPEC_FULL.md §9: the
// verb whitelist, logic-keyword, and fuzzy-pronoun tables are
// English-first and supplied via RouteConfig rather than hard-coded
// Chinese literals, so the router works against the English task
// descriptions cotsmith's roles actually produce. A caller-supplied
// synonym map replaces the original's static chinese_to_english dict,
// keeping the "longest match wins" verb-extraction strategy.
package router

import (
	"sort"
	"strings"
)

// Decision is the router's routing verdict.
type Decision int

const (
	RouteToNerves Decision = iota
	RouteToBrain
)

func (d Decision) String() string {
	if d == RouteToNerves {
		return "Route_To_Nerves"
	}
	return "Route_To_Brain"
}

// RouteConfig holds the four gate tables, config-driven so a
// deployment can tune vocabulary without a code change.
type RouteConfig struct {
	Whitelist           []string          // nerves-executable verbs
	Synonyms            map[string]string // alternate phrasing -> canonical whitelist verb
	LogicKeywords        []string
	FuzzyPronouns        []string
	ComplexityThreshold  int
	Connectors           []string // extra per-connector complexity bump
}

// Filter is the Hypothalamus Filter: a stateless classifier configured
// once from RouteConfig.
type Filter struct {
	whitelist   map[string]struct{}
	sortedSyn   []string // synonym keys sorted longest-first, for greedy matching
	synonyms    map[string]string
	logicKw     []string
	fuzzy       []string
	threshold   int
	connectors  []string
}

// New constructs a Filter from cfg.
func New(cfg RouteConfig) *Filter {
	wl := make(map[string]struct{}, len(cfg.Whitelist))
	for _, v := range cfg.Whitelist {
		wl[strings.ToLower(v)] = struct{}{}
	}
	syn := make(map[string]string, len(cfg.Synonyms))
	keys := make([]string, 0, len(cfg.Synonyms))
	for k, v := range cfg.Synonyms {
		syn[strings.ToLower(k)] = strings.ToLower(v)
		keys = append(keys, strings.ToLower(k))
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	threshold := cfg.ComplexityThreshold
	if threshold == 0 {
		threshold = 25
	}
	return &Filter{
		whitelist:  wl,
		sortedSyn:  keys,
		synonyms:   syn,
		logicKw:    cfg.LogicKeywords,
		fuzzy:      cfg.FuzzyPronouns,
		threshold:  threshold,
		connectors: cfg.Connectors,
	}
}

// Filter routes task, applying the four gates in the original's order:
// verb whitelist, logic keywords, fuzzy pronouns, semantic complexity.
func (f *Filter) Filter(task string) Decision {
	verb := f.extractVerb(task)
	if _, ok := f.whitelist[verb]; !ok {
		return RouteToBrain
	}
	if f.containsAny(task, f.logicKw) {
		return RouteToBrain
	}
	if f.containsAny(task, f.fuzzy) {
		return RouteToBrain
	}
	if f.complexity(task) > f.threshold {
		return RouteToBrain
	}
	return RouteToNerves
}

// IsNervesAction reports whether verb (already canonical, lowercase) is
// in the whitelist.
func (f *Filter) IsNervesAction(verb string) bool {
	_, ok := f.whitelist[strings.ToLower(verb)]
	return ok
}

// extractVerb mirrors _extract_verb's layered strategy: longest-match
// synonym lookup first, then a whitelist-literal scan restricted to the
// task's first third (so a verb appearing deep in a filename-like
// token isn't mistaken for the command verb), with one hand-tuned
// exception: "read" must not match inside the literal substring
// "readme".
func (f *Filter) extractVerb(task string) string {
	lower := strings.ToLower(task)

	for _, key := range f.sortedSyn {
		if strings.Contains(lower, key) {
			return f.synonyms[key]
		}
	}

	cutoff := int(float64(len(task)) * 0.3)
	for verb := range f.whitelist {
		pos := strings.Index(lower, verb)
		if pos < 0 {
			continue
		}
		if verb == "read" && strings.Contains(lower, "readme") {
			continue
		}
		if pos < cutoff {
			return verb
		}
	}
	return ""
}

func (f *Filter) containsAny(task string, terms []string) bool {
	lower := strings.ToLower(task)
	for _, t := range terms {
		if countTerm(lower, strings.ToLower(t)) > 0 {
			return true
		}
	}
	return false
}

// countTerm counts occurrences of term in lower that are not part of a
// longer ASCII word, so "or" does not match inside "report".
func countTerm(lower, term string) int {
	n := 0
	for from := 0; term != ""; {
		i := strings.Index(lower[from:], term)
		if i < 0 {
			break
		}
		start, end := from+i, from+i+len(term)
		if !(isWordByte(term[0]) && start > 0 && isWordByte(lower[start-1])) &&
			!(isWordByte(term[len(term)-1]) && end < len(lower) && isWordByte(lower[end])) {
			n++
		}
		from = start + 1
	}
	return n
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// complexity mirrors _calculate_semantic_complexity: base score is
// rune count, plus a flat bump per connector occurrence.
func (f *Filter) complexity(task string) int {
	trimmed := strings.TrimSpace(task)
	score := len([]rune(trimmed))
	lower := strings.ToLower(trimmed)
	for _, c := range f.connectors {
		score += 5 * countTerm(lower, strings.ToLower(c))
	}
	return score
}

// DefaultConfig returns the English-first gate tables used when a
// deployment supplies no overrides, translating the original's
// whitelist/keyword vocabulary (synonyms collapse common rephrasings
// like "backup" -> "copy" and "relocate" -> "move").
func DefaultConfig() RouteConfig {
	return RouteConfig{
		Whitelist: []string{
			"move", "delete", "copy", "read", "rename", "write",
			"scan", "compress", "uncompress", "create_file", "create_folder",
			"get_admin", "connect_folders", "remove",
		},
		Synonyms: map[string]string{
			"relocate": "move",
			"transfer": "move",
			"backup":   "copy",
			"duplicate": "copy",
			"archive":  "compress",
			"unpack":   "uncompress",
			"extract":  "uncompress",
			"make file": "create_file",
			"make folder": "create_folder",
			"new folder":  "create_folder",
			"grant access": "get_admin",
			"link folders": "connect_folders",
		},
		LogicKeywords:       []string{"if", "and", "or", "when", "unless", "then", "else", "otherwise"},
		FuzzyPronouns:       []string{"that one", "some", "related", "*", "certain", "any", "each", "it", "them", "this", "these"},
		ComplexityThreshold: 25,
		Connectors:          []string{",", ";", "then", "next", "after that", "furthermore"},
	}
}
