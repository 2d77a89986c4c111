// Package synth regenerates schema-compliant documentation text by merging
// extracted facts, signature data, and any prior documentation. Sections
// that already passed validation are preserved byte-for-byte; only flagged
// or missing sections are rebuilt, which makes synthesis idempotent.
package synth

import (
	"fmt"

	"github.com/c360studio/contractspec/docparse"
	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/facts"
	"github.com/c360studio/contractspec/schema"
	"github.com/c360studio/contractspec/validate"
)

// UnresolvedError reports a required section with neither prior text nor a
// derivable fact to draw from. PURPOSE cannot be mechanically invented, so
// this is surfaced, never guessed. The element is reported unresolved and
// the batch continues.
type UnresolvedError struct {
	Path    string
	Section schema.SectionName
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("cannot synthesize %s for %s: no prior text and no derivable fact", e.Section, e.Path)
}

// Generate produces schema-compliant documentation text for one element.
// parsed is the section tree of the existing text (empty when no text was
// attached), fs the extracted facts, diags the validator output for the
// same tree.
func Generate(el *element.Element, parsed *docparse.Result, fs []facts.Fact, diags []validate.Diagnostic, opts validate.Options) (string, error) {
	rule, err := schema.RulesFor(el.Kind)
	if err != nil {
		return "", err
	}
	if opts.RedundancySensitivity == "" {
		opts.RedundancySensitivity = validate.SensitivityLow
	}

	tree := parsed.Tree
	flagged := flaggedSections(diags)
	out := &docparse.SectionTree{}

	// PURPOSE and DESCRIPTION carry author intent. PURPOSE is never
	// invented; DESCRIPTION falls back to a fact summary.
	if tree.Purpose != "" {
		out.Purpose = tree.Purpose
	} else {
		return "", &UnresolvedError{Path: el.QualifiedPath, Section: schema.SectionPurpose}
	}
	if tree.Description != "" && !flagged[schema.SectionDescription] {
		out.Description = tree.Description
	} else if summary := factSummary(fs); summary != "" {
		out.Description = summary
	} else if tree.Description != "" {
		out.Description = tree.Description
	} else {
		return "", &UnresolvedError{Path: el.QualifiedPath, Section: schema.SectionDescription}
	}

	// Mapping section regenerated from the signature, preserving prior
	// entry text for names that still exist.
	if mapping := rule.MappingSection(); mapping != "" {
		out.MappingName = mapping
		out.Mapping = mergeMapping(el, tree)
	}

	// RETURNS for callables.
	if el.Kind.Callable() {
		out.HasReturns = true
		if tree.HasReturns && tree.Returns != "" && !flagged[schema.SectionReturns] {
			out.Returns = tree.Returns
		} else {
			out.Returns = deriveReturns(el, fs)
		}
	}

	// CONTRACTS merged from surviving prior statements and facts.
	contracts, err := mergeContracts(el, tree, fs, rule, opts)
	if err != nil {
		return "", err
	}
	out.Contracts = contracts

	return Render(out), nil
}

// flaggedSections collects the section names named by diagnostics; those
// sections are regenerated rather than preserved.
func flaggedSections(diags []validate.Diagnostic) map[schema.SectionName]bool {
	flagged := make(map[schema.SectionName]bool)
	for _, d := range diags {
		if d.Section != "" {
			flagged[schema.SectionName(d.Section)] = true
		}
	}
	return flagged
}

// mergeMapping builds the ARGUMENTS/ATTRIBUTES entries from the signature.
// Prior descriptions survive for names still present; entries for names no
// longer in the signature are dropped.
func mergeMapping(el *element.Element, tree *docparse.SectionTree) []docparse.Entry {
	var entries []docparse.Entry

	add := func(name, typ string) {
		if prior, ok := tree.MappingEntry(name); ok && prior.Text != "" {
			entries = append(entries, docparse.Entry{Name: name, Text: prior.Text})
			return
		}
		text := typ
		if text == "" {
			text = "any"
		}
		entries = append(entries, docparse.Entry{Name: name, Text: text})
	}

	if el.Kind == element.KindClass {
		for _, a := range el.Attributes {
			add(a.Name, a.Type)
		}
		return entries
	}
	for _, p := range el.Params {
		if el.Kind == element.KindMethod && (p.Name == "self" || p.Name == "cls") {
			continue
		}
		add(p.Name, p.Type)
	}
	return entries
}

// deriveReturns builds a RETURNS line from the declared return type and
// the observed return shapes.
func deriveReturns(el *element.Element, fs []facts.Fact) string {
	typ := el.ReturnType
	if typ == "" {
		typ = "None"
	}
	for _, f := range fs {
		if f.Kind != facts.KindReturns {
			continue
		}
		switch f.Shape {
		case element.ShapeAttribute:
			return fmt.Sprintf("%s - %s", typ, f.Description)
		case element.ShapeCall, element.ShapeComputed, element.ShapeLiteral, element.ShapeName:
			return fmt.Sprintf("%s - %s", typ, f.Description)
		}
	}
	if typ == "None" {
		return "None - no value returned"
	}
	return typ
}

// mergeContracts assembles the CONTRACTS block: prior statements that are
// not redundant survive, RAISES entries are generated one-to-one from
// raises facts, and mutation facts become postcondition candidates.
// The whole block is omitted when every subsection would be empty; if the
// schema still requires one, the element is unresolved.
func mergeContracts(el *element.Element, tree *docparse.SectionTree, fs []facts.Fact, rule schema.Rule, opts validate.Options) (docparse.Contracts, error) {
	var out docparse.Contracts

	// Preconditions: surviving prior statements first, then candidates
	// derived from guarded absence checks.
	for _, stmt := range tree.Contracts.Preconditions {
		if validate.RedundantStatement(el, tree, stmt, opts.RedundancySensitivity) == "" {
			out.Preconditions = append(out.Preconditions, stmt)
		}
	}
	for _, f := range fs {
		if f.Kind != facts.KindPreconditionCandidate {
			continue
		}
		if !containsStatement(out.Preconditions, f.Description) {
			out.Preconditions = append(out.Preconditions, f.Description)
		}
	}

	// Postconditions: surviving prior statements, then mutation facts not
	// already covered. Return facts are used only to avoid asserting
	// postconditions about values the body never produces; they generate
	// nothing themselves.
	for _, stmt := range tree.Contracts.Postconditions {
		if validate.RedundantStatement(el, tree, stmt, opts.RedundancySensitivity) == "" {
			out.Postconditions = append(out.Postconditions, stmt)
		}
	}
	for _, f := range facts.Mutations(fs) {
		if !coversSubject(out.Postconditions, f.Subject) {
			out.Postconditions = append(out.Postconditions, f.Description)
		}
	}

	// Raises: one-to-one from evidence in the implementation.
	for _, f := range facts.Raises(fs) {
		if f.Unconditional {
			out.Raises = append(out.Raises, fmt.Sprintf("%s - unconditionally", f.Exception))
			continue
		}
		out.Raises = append(out.Raises, fmt.Sprintf("%s - when %s", f.Exception, f.Trigger))
	}

	if out.Empty() {
		if contractsRequired(rule, fs, opts) {
			return out, &UnresolvedError{Path: el.QualifiedPath, Section: schema.SectionContracts}
		}
		out.Present = false
		return out, nil
	}
	out.Present = true
	return out, nil
}

// contractsRequired mirrors the validator's mandatory-CONTRACTS decision so
// synthesis and validation agree on when the block may be omitted.
func contractsRequired(rule schema.Rule, fs []facts.Fact, opts validate.Options) bool {
	if rule.ContractsMandatory {
		return true
	}
	if !rule.ContractsConditional {
		return false
	}
	if opts.ContractsMandatoryForClasses {
		return true
	}
	for _, f := range fs {
		if f.Kind == facts.KindRaises || f.Kind == facts.KindMutates {
			return true
		}
	}
	return false
}

func containsStatement(stmts []string, stmt string) bool {
	for _, s := range stmts {
		if s == stmt {
			return true
		}
	}
	return false
}

// coversSubject reports whether any statement already mentions the mutated
// attribute, so the fact would add nothing.
func coversSubject(stmts []string, subject string) bool {
	if subject == "" {
		return false
	}
	for _, s := range stmts {
		if containsWord(s, subject) || containsWord(s, "self."+subject) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	idx := 0
	for idx < len(s) {
		pos := indexFrom(s, word, idx)
		if pos < 0 {
			return false
		}
		end := pos + len(word)
		beforeOK := pos == 0 || !isWordByte(s[pos-1])
		afterOK := end == len(s) || !isWordByte(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = pos + 1
	}
	return false
}

func indexFrom(s, sub string, from int) int {
	if from >= len(s) {
		return -1
	}
	for i := from; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' || b == '.' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// factSummary produces a one-line behavioral description from facts, used
// when no author DESCRIPTION exists.
func factSummary(fs []facts.Fact) string {
	var parts []string
	for _, f := range facts.Raises(fs) {
		parts = append(parts, f.Description)
		break
	}
	for _, f := range facts.Mutations(fs) {
		parts = append(parts, "updates self."+f.Subject)
	}
	if len(parts) == 0 {
		for _, f := range fs {
			if f.Kind == facts.KindReturns {
				parts = append(parts, f.Description)
				break
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	summary := parts[0]
	for _, p := range parts[1:] {
		summary += "; " + p
	}
	// Sentence-case the leading word.
	if summary != "" && summary[0] >= 'a' && summary[0] <= 'z' {
		summary = string(summary[0]-('a'-'A')) + summary[1:]
	}
	return summary + "."
}
