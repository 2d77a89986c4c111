package synth

import (
	"strings"

	"github.com/c360studio/contractspec/docparse"
	"github.com/c360studio/contractspec/schema"
)

const indent = "    "

// Render serializes a section tree in the canonical documentation format:
// four-space nesting, no blank lines between sections, CONTRACTS
// subsections present only when non-empty. The output parses back into an
// equivalent tree, which is what makes synthesis verifiable.
func Render(tree *docparse.SectionTree) string {
	var lines []string

	lines = append(lines, "PURPOSE: "+tree.Purpose)
	lines = append(lines, "DESCRIPTION: "+tree.Description)

	if tree.MappingName != "" {
		lines = append(lines, string(tree.MappingName)+":")
		for _, e := range tree.Mapping {
			lines = append(lines, indent+e.Name+": "+e.Text)
		}
	}

	if tree.HasReturns {
		lines = append(lines, "RETURNS: "+tree.Returns)
	}

	if tree.Contracts.Present && !tree.Contracts.Empty() {
		lines = append(lines, string(schema.SectionContracts)+":")
		lines = appendSubsection(lines, schema.SubPrecondition, tree.Contracts.Preconditions)
		lines = appendSubsection(lines, schema.SubPostcondition, tree.Contracts.Postconditions)
		lines = appendSubsection(lines, schema.SubRaises, tree.Contracts.Raises)
	}

	return strings.Join(lines, "\n")
}

// appendSubsection writes one CONTRACTS subsection, omitted entirely when
// it has no statements.
func appendSubsection(lines []string, name schema.SectionName, stmts []string) []string {
	if len(stmts) == 0 {
		return lines
	}
	lines = append(lines, indent+string(name)+":")
	for _, s := range stmts {
		lines = append(lines, indent+indent+"- "+s)
	}
	return lines
}
