// Package translate implements the Granularity Translator (SPEC_FULL.md
// §4.K): the two-way bridge between Nerves' physical fact vocabulary
// and Brain's abstract logical-predicate vocabulary.
//
// Grounded directly on
// _examples/original_source/infrastructure/translator/granularity_translator.py
// (Nerves2BrainTranslator and Brain2NervesTranslator), reimplemented
// against fact.Fact instead of regex-matched strings — argument
// extraction uses Fact.Head()/Args() rather than per-predicate
// re.match calls, and the clustering/error-upgrade/object-instantiation
// behaviors are kept as direct translations of the originals.
package translate

import (
	"fmt"

	"cotsmith/internal/fact"
)

// simpleRule maps one Nerves predicate name to a Brain predicate name,
// optionally dropping trailing arguments (compressed keeps only the
// first argument, matching the original's fixed-arity rewrites).
type simpleRule struct {
	brainName string
	arity     int // number of Nerves args to keep, in order
}

var nervesToBrainRules = map[string]simpleRule{
	"at":            {brainName: "located", arity: 2},
	"scanned":       {brainName: "known", arity: 1},
	"is_created":    {brainName: "exists", arity: 1},
	"is_compressed": {brainName: "compressed", arity: 1},
	"has_name":      {brainName: "named", arity: 2},
	"is_empty":      {brainName: "empty", arity: 1},
	"is_copied":     {brainName: "copied", arity: 2},
}

var brainToNervesRules = map[string]simpleRule{
	"located":   {brainName: "at", arity: 2},
	"known":     {brainName: "scanned", arity: 1},
	"exists":    {brainName: "is_created", arity: 1},
	"named":     {brainName: "has_name", arity: 2},
	"empty":     {brainName: "is_empty", arity: 1},
	"copied":    {brainName: "is_copied", arity: 2},
	// "has_permission", "compressed", "size_greater_than" and
	// "contains" are handled as special cases in Brain2Nerves because
	// they need a literal or expanded argument the generic arity-trim
	// renderer can't express.
}

// errorRules upgrades an execution error code into a Brain-layer
// negative predicate, matching error_rules.
var errorRules = map[string]string{
	"error_access_denied":       "(not (has_permission ?user ?obj))",
	"error_file_not_found":      "(not (exists ?obj))",
	"error_insufficient_space":  "(not (has_space ?location))",
}

// atClusterThreshold is the number of "(at ...)" facts in one folder
// beyond which Nerves2Brain collapses them into a single "contains"
// fact, matching the original's "len(fact_list) > 3" rule.
const atClusterThreshold = 3

// Nerves2Brain converts a set of Nerves-layer facts (plus optional
// error codes observed this step) into Brain-layer facts.
func Nerves2Brain(facts map[fact.Fact]struct{}, errors []string) map[string]struct{} {
	out := make(map[string]struct{})
	byFolder := make(map[string][]string) // folder -> file names, for "at" clustering

	for f := range facts {
		if f.Head() == "has_admin_rights" {
			out["(has_permission)"] = struct{}{}
			continue
		}
		rule, ok := nervesToBrainRules[f.Head()]
		if !ok {
			out[f.String()] = struct{}{}
			continue
		}
		args := f.Args()
		if f.Head() == "at" && len(args) == 2 {
			byFolder[args[1]] = append(byFolder[args[1]], args[0])
			continue
		}
		out[renderRule(rule.brainName, args, rule.arity)] = struct{}{}
	}

	for folder, files := range byFolder {
		if len(files) > atClusterThreshold {
			out[fmt.Sprintf("(contains %s multiple_files)", folder)] = struct{}{}
			continue
		}
		for _, file := range files {
			out[fmt.Sprintf("(located %s %s)", file, folder)] = struct{}{}
		}
	}

	for _, code := range errors {
		if upgraded, ok := errorRules[code]; ok {
			out[upgraded] = struct{}{}
		}
	}
	return out
}

// Brain2NervesContext supplies the concrete values the translator needs
// to instantiate abstract Brain predicates, replacing the original's
// ad-hoc config dict merge (archive_name for "compressed", for
// instance, since a single Brain fact doesn't name the archive).
type Brain2NervesContext struct {
	ArchiveName string // defaults to "archive_1"
}

// Brain2Nerves converts a set of Brain-layer facts into Nerves-layer
// facts, using ctx to fill in parameters the abstract predicate omits.
func Brain2Nerves(facts map[string]struct{}, ctx Brain2NervesContext) map[string]struct{} {
	archive := ctx.ArchiveName
	if archive == "" {
		archive = "archive_1"
	}

	out := make(map[string]struct{})
	for raw := range facts {
		f, err := fact.Parse(raw)
		if err != nil {
			out[raw] = struct{}{}
			continue
		}
		if f.Head() == "has_permission" && len(f.Args()) == 0 {
			out["(has_admin_rights)"] = struct{}{}
			continue
		}
		if f.Head() == "compressed" && len(f.Args()) == 1 {
			out[fmt.Sprintf("(is_compressed %s %s)", f.Args()[0], archive)] = struct{}{}
			continue
		}
		if f.Head() == "size_greater_than" && len(f.Args()) == 1 {
			out[fmt.Sprintf("(size_greater_than %s 1025)", f.Args()[0])] = struct{}{}
			continue
		}
		if f.Head() == "contains" && len(f.Args()) >= 1 {
			folder := f.Args()[0]
			rest := f.Args()[1:]
			if containsMultipleFilesSentinel(rest) {
				continue // no concrete file list to expand, matches original's drop
			}
			for _, file := range rest {
				out[fmt.Sprintf("(at %s %s)", file, folder)] = struct{}{}
			}
			continue
		}
		rule, ok := brainToNervesRules[f.Head()]
		if !ok {
			out[raw] = struct{}{}
			continue
		}
		out[renderRule(rule.brainName, f.Args(), rule.arity)] = struct{}{}
	}
	return out
}

func containsMultipleFilesSentinel(files []string) bool {
	for _, f := range files {
		if f == "multiple_files" {
			return true
		}
	}
	return false
}

func renderRule(name string, args []string, arity int) string {
	if arity > len(args) {
		arity = len(args)
	}
	s := "(" + name
	for i := 0; i < arity; i++ {
		s += " " + args[i]
	}
	return s + ")"
}
