package validate

import (
	"fmt"
	"strings"

	"github.com/c360studio/contractspec/docparse"
	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/facts"
	"github.com/c360studio/contractspec/schema"
)

// Options configures validation behavior.
type Options struct {
	// StrictRaises escalates UnverifiedRaiseError from warning to error.
	StrictRaises bool

	// RedundancySensitivity controls the overlap heuristic threshold.
	RedundancySensitivity Sensitivity

	// ContractsMandatoryForClasses requires a class-level CONTRACTS block
	// unconditionally instead of only when the class enforces invariants.
	ContractsMandatoryForClasses bool
}

// DefaultOptions returns the default validation options.
func DefaultOptions() Options {
	return Options{RedundancySensitivity: SensitivityLow}
}

// Check validates a parsed section tree against the schema registry and
// the extracted facts. Diagnostics come back in the fixed check order:
// missing sections, unknown sections, formatting, empty contract block,
// redundant contracts, unverified raises, missing contracts. The order is
// stable so two runs over identical input produce identical output.
//
// The only returned error wraps schema.ErrUnknownKind; it signals a front
// end handed the engine an element kind it does not know and aborts the run.
func Check(el *element.Element, parsed *docparse.Result, fs []facts.Fact, opts Options) ([]Diagnostic, error) {
	rule, err := schema.RulesFor(el.Kind)
	if err != nil {
		return nil, err
	}
	if opts.RedundancySensitivity == "" {
		opts.RedundancySensitivity = SensitivityLow
	}

	tree := parsed.Tree
	var diags []Diagnostic

	// 1. Required top-level sections present.
	for _, required := range rule.Required {
		if !tree.Has(required) {
			diags = append(diags, Diagnostic{
				Code:     CodeMissingSection,
				Severity: SeverityWarning,
				Section:  string(required),
				Message:  fmt.Sprintf("required section %s is missing for %s %s", required, el.Kind, el.Name),
			})
		}
	}

	// 2. No section name outside the legal set for this kind.
	for _, present := range tree.Order {
		if !rule.IsLegal(present) {
			diags = append(diags, Diagnostic{
				Code:     CodeUnknownSection,
				Severity: SeverityWarning,
				Section:  string(present),
				Message:  fmt.Sprintf("section %s is not legal for %s elements", present, el.Kind),
			})
		}
	}
	for _, unknown := range tree.Unknown {
		scope := "section"
		if unknown.Nested {
			scope = "CONTRACTS subsection"
		}
		diags = append(diags, Diagnostic{
			Code:     CodeUnknownSection,
			Severity: SeverityWarning,
			Section:  unknown.Name,
			Line:     unknown.Line,
			Message:  fmt.Sprintf("unrecognized %s %s", scope, unknown.Name),
		})
	}

	// 3. Formatting: leading prose and blank lines between sections.
	// Leading prose carries no Section so synthesis keeps the folded
	// DESCRIPTION text and repairs the missing header on regeneration.
	if parsed.LeadingTextLine > 0 {
		diags = append(diags, Diagnostic{
			Code:     CodeFormatting,
			Severity: SeverityWarning,
			Line:     parsed.LeadingTextLine,
			Message:  "text before any section header is treated as DESCRIPTION",
		})
	}
	for _, note := range parsed.BlankLines {
		diags = append(diags, Diagnostic{
			Code:     CodeFormatting,
			Severity: SeverityWarning,
			Section:  note.Section,
			Line:     note.Line,
			Message:  fmt.Sprintf("blank line between %s and %s", note.Section, note.Before),
		})
	}

	// 4. CONTRACTS present but every subsection empty.
	if tree.Contracts.Present && tree.Contracts.Empty() {
		diags = append(diags, Diagnostic{
			Code:     CodeEmptyContractBlock,
			Severity: SeverityWarning,
			Section:  string(schema.SectionContracts),
			Message:  "CONTRACTS block is empty; omit the block entirely",
		})
	}

	// 5. Contract statements restating signature-visible information.
	diags = append(diags, redundancyCheck(el, tree, opts.RedundancySensitivity)...)

	// 6. Documented raises with no evidence in the implementation.
	// Static analysis is incomplete, so these are flagged, never removed.
	raiseSeverity := SeverityWarning
	if opts.StrictRaises {
		raiseSeverity = SeverityError
	}
	for _, stmt := range tree.Contracts.Raises {
		exception := raisedException(stmt)
		if exception == "" || facts.HasRaise(fs, exception) {
			continue
		}
		diags = append(diags, Diagnostic{
			Code:     CodeUnverifiedRaise,
			Severity: raiseSeverity,
			Section:  string(schema.SubRaises),
			Message:  fmt.Sprintf("documented exception %s has no raise site in the implementation", exception),
		})
	}

	// 7. Mandatory CONTRACTS kinds with no block at all. An empty block was
	// already reported by check 4 and does not also count as missing.
	if !tree.Contracts.Present && contractsRequired(rule, fs, opts) {
		diags = append(diags, Diagnostic{
			Code:     CodeMissingContracts,
			Severity: SeverityWarning,
			Section:  string(schema.SectionContracts),
			Message:  fmt.Sprintf("%s %s requires a CONTRACTS block", el.Kind, el.Name),
		})
	}

	return diags, nil
}

// contractsRequired decides whether this element must carry CONTRACTS:
// always for methods and functions; for classes either unconditionally by
// configuration or when the class enforces invariants, evidenced by any
// raise or mutation fact.
func contractsRequired(rule schema.Rule, fs []facts.Fact, opts Options) bool {
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

// redundancyCheck flags PRECONDITION and POSTCONDITION statements that
// restate a declared type or duplicate wording already present in the
// mapping or RETURNS sections. DESCRIPTION prose is non-authoritative here.
func redundancyCheck(el *element.Element, tree *docparse.SectionTree, sensitivity Sensitivity) []Diagnostic {
	var diags []Diagnostic

	check := func(sub schema.SectionName, statements []string) {
		for _, stmt := range statements {
			if reason := RedundantStatement(el, tree, stmt, sensitivity); reason != "" {
				diags = append(diags, Diagnostic{
					Code:     CodeRedundantContract,
					Severity: SeverityWarning,
					Section:  string(sub),
					Message:  fmt.Sprintf("%q %s", stmt, reason),
				})
			}
		}
	}
	check(schema.SubPrecondition, tree.Contracts.Preconditions)
	check(schema.SubPostcondition, tree.Contracts.Postconditions)
	return diags
}

// RedundantStatement returns a non-empty reason when a contract statement
// adds no information beyond the signature or the mapping/RETURNS sections.
// The synthesizer uses the same judgment to decide which prior statements
// survive regeneration.
func RedundantStatement(el *element.Element, tree *docparse.SectionTree, stmt string, sensitivity Sensitivity) string {
	// Documented mapping entries: declared type restated, or entry wording
	// duplicated.
	for _, entry := range tree.Mapping {
		if restatesType(stmt, entry.Name, entry.TypeDescriptor()) {
			return fmt.Sprintf("restates the declared type of %s", entry.Name)
		}
		if restatesWording(stmt, entry.Description(), sensitivity) {
			return fmt.Sprintf("duplicates the %s description of %s", tree.MappingName, entry.Name)
		}
	}

	// Signature-visible types not echoed in the doc text yet.
	for _, p := range el.Params {
		if restatesType(stmt, p.Name, p.Type) {
			return fmt.Sprintf("restates the declared type of %s", p.Name)
		}
	}
	for _, a := range el.Attributes {
		if restatesType(stmt, a.Name, a.Type) {
			return fmt.Sprintf("restates the declared type of %s", a.Name)
		}
	}

	// Return type and RETURNS wording.
	if el.ReturnType != "" && mentionsReturn(stmt) && restatesType(stmt, "returns", el.ReturnType) {
		return "restates the declared return type"
	}
	if tree.HasReturns {
		entry := docparse.Entry{Name: "returns", Text: tree.Returns}
		if restatesWording(stmt, entry.Description(), sensitivity) {
			return "duplicates the RETURNS description"
		}
	}
	return ""
}

func mentionsReturn(stmt string) bool {
	lower := strings.ToLower(stmt)
	return strings.Contains(lower, "return")
}

// raisedException extracts the exception name from a RAISES statement of
// the form "ExceptionName - when condition".
func raisedException(stmt string) string {
	if idx := strings.Index(stmt, " - "); idx > 0 {
		return strings.TrimSpace(stmt[:idx])
	}
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
