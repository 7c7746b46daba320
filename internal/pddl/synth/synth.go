// Package synth implements the PDDL Problem Synthesizer (SPEC_FULL.md
// §4.E): turning the current fact state plus a user goal into a
// complete PDDL problem string, either by asking the LLM for a
// full problem (iteration 0) or by deterministically composing
// objects/init and asking only for a goal clause (iteration > 0).
//
// Grounded on
// _examples/original_source/infrastructure/translator/pddl_translator.py
// (PDDLTranslator.translate, _build_objects_section, _build_init_section,
// _extract_objects_from_facts) and the paren-walking style already used
// in internal/fact for parsing PDDL fragments.
package synth

import (
	"fmt"
	"sort"
	"strings"

	"cotsmith/internal/fact"
)

// TypeMapping describes, for one domain, which argument positions of
// which predicates name typed objects. It mirrors the per-domain
// "<domain>.types.yaml" sibling file named in SPEC_FULL.md §9's
// resolution of the type-inference Open Question.
type TypeMapping map[string]map[int]string

// DefaultFileManagementTypes is the file-management domain's type table,
// transliterated from pddl_translator.py's type_mapping dict.
var DefaultFileManagementTypes = TypeMapping{
	"at":             {0: "file", 1: "folder"},
	"scanned":        {0: "folder"},
	"is_created":     {0: "file"},
	"is_compressed":  {0: "file", 1: "archive"},
}

// Sentinel is the literal response the LLM returns instead of a
// PDDL fragment when the goal is already satisfied by known facts.
const Sentinel = "GOAL_FINISHED_ALREADY"

// Problem holds the pieces of a synthesized PDDL problem file.
type Problem struct {
	Name       string
	DomainName string
	Objects    map[string]string // object -> type, accumulated across iterations
	Content    string            // full "(define (problem ...) ...)" text
	Finished   bool              // true if the brain signaled Sentinel
}

// ExtractObjectsFromFacts scans state's positive facts and infers typed
// objects using mapping, mirroring
// pddl_translator.py's _extract_objects_from_facts (negative/"(not ...)"
// facts are skipped; here that distinction doesn't arise because
// fact.State only stores positive atoms).
func ExtractObjectsFromFacts(state fact.Delta, mapping TypeMapping) map[string]string {
	objects := make(map[string]string)
	for f := range state.Add {
		predMap, ok := mapping[f.Head()]
		if !ok {
			continue
		}
		args := f.Args()
		for pos, typ := range predMap {
			if pos >= len(args) {
				continue
			}
			name := args[pos]
			if name == "" {
				continue
			}
			if existing, seen := objects[name]; !seen {
				objects[name] = typ
			} else if existing != typ {
				// type conflict: first-seen type wins, matching the
				// translator's "保留原有类型" behavior.
				continue
			}
		}
	}
	return objects
}

// ExtractObjectsFromState is the State-shaped equivalent of
// ExtractObjectsFromFacts, used when synthesizing directly from a
// kernel.State rather than a single Delta.
func ExtractObjectsFromState(facts map[fact.Fact]struct{}, mapping TypeMapping) map[string]string {
	objects := make(map[string]string)
	for f := range facts {
		predMap, ok := mapping[f.Head()]
		if !ok {
			continue
		}
		args := f.Args()
		for pos, typ := range predMap {
			if pos >= len(args) {
				continue
			}
			name := args[pos]
			if name == "" {
				continue
			}
			if existing, seen := objects[name]; !seen {
				objects[name] = typ
			} else if existing != typ {
				continue
			}
		}
	}
	return objects
}

// MergeObjects folds newObjects into objects without overwriting
// existing entries, matching the translator's "避免遗漏" merge rule for
// iteration > 0.
func MergeObjects(objects, newObjects map[string]string) {
	for obj, typ := range newObjects {
		if _, exists := objects[obj]; !exists {
			objects[obj] = typ
		}
	}
}

// BuildObjectsSection renders a PDDL ":objects" body grouped by type,
// e.g. "file_a file_b - file\nroot backup - folder".
func BuildObjectsSection(objects map[string]string) string {
	if len(objects) == 0 {
		return ""
	}
	byType := make(map[string][]string)
	for obj, typ := range objects {
		byType[typ] = append(byType[typ], obj)
	}
	types := make([]string, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	sort.Strings(types)

	lines := make([]string, 0, len(types))
	for _, typ := range types {
		objs := byType[typ]
		sort.Strings(objs)
		lines = append(lines, strings.Join(objs, " ")+" - "+typ)
	}
	return strings.Join(lines, "\n    ")
}

// BuildInitSection renders a PDDL ":init" body from baseInit (the first
// iteration's init facts, carried forward) plus the current fact set,
// always appending the total-cost metric fact, matching
// pddl_translator.py's _build_init_section.
func BuildInitSection(current map[fact.Fact]struct{}, baseInit []string) string {
	facts := make(map[string]struct{})
	for _, raw := range baseInit {
		s := strings.TrimSpace(raw)
		if s == "" || strings.HasPrefix(s, ";") || strings.HasPrefix(s, "(not") {
			continue
		}
		facts[s] = struct{}{}
	}
	for f := range current {
		s := f.String()
		if strings.HasPrefix(s, "(not") {
			continue
		}
		facts[s] = struct{}{}
	}
	facts["(= (total-cost) 0)"] = struct{}{}

	out := make([]string, 0, len(facts))
	for s := range facts {
		out = append(out, s)
	}
	sort.Strings(out)
	return strings.Join(out, "\n    ")
}

// ComposeFullProblem assembles a complete "(define (problem ...) ...)"
// string from pre-built sections and an LLM-authored goal clause
// (which must already be the full "(:goal ...)" form). Used for
// iteration > 0, where only the goal is LLM-generated.
func ComposeFullProblem(problemName, domainName, objectsSection, initSection, goalClause string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(define (problem %s)\n", problemName)
	fmt.Fprintf(&b, "  (:domain %s)\n", domainName)
	if objectsSection != "" {
		fmt.Fprintf(&b, "  (:objects\n    %s)\n", objectsSection)
	}
	fmt.Fprintf(&b, "  (:init\n    %s)\n", initSection)
	b.WriteString("  " + goalClause + ")\n")
	return b.String()
}
