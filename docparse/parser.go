package docparse

import (
	"fmt"
	"strings"

	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/schema"
)

// ParseError reports malformed documentation text. It is recoverable: the
// caller falls back to an empty section tree plus a diagnostic.
type ParseError struct {
	Line    int
	Section string
	Msg     string
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("doc parse error at line %d in %s: %s", e.Line, e.Section, e.Msg)
	}
	return fmt.Sprintf("doc parse error at line %d: %s", e.Line, e.Msg)
}

// Result pairs the parsed tree with formatting notes the validator turns
// into diagnostics.
type Result struct {
	Tree       *SectionTree
	BlankLines []BlankLineNote

	// LeadingTextLine is the line of prose found before any section
	// header, 0 when none. The prose is folded into DESCRIPTION.
	LeadingTextLine int
}

// Parse turns raw documentation text into a section tree. Absent text
// yields an empty tree, not an error, so downstream components can still
// request synthesis. kind scopes error context for mapping sections; the
// kind-specific legality of sections is the validator's concern.
func Parse(text string, kind element.Kind) (*Result, error) {
	tree := &SectionTree{}
	result := &Result{Tree: tree}

	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	p := &parser{tree: tree, result: result, kind: kind}
	if err := p.run(text); err != nil {
		return nil, err
	}
	return result, nil
}

type parser struct {
	tree   *SectionTree
	result *Result
	kind   element.Kind

	// current top-level section, "" before the first header
	section schema.SectionName
	// current CONTRACTS subsection, "" when not inside one
	subsection schema.SectionName
	// set while skipping content under an unknown header
	inUnknown bool
	// set when leading prose opened DESCRIPTION without a header
	implicitDesc bool

	// blank-line run tracking
	blankRun   int
	blankStart int
}

func (p *parser) run(text string) error {
	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)

		if line == "" {
			// Only blank runs after some content can sit "between" sections.
			if p.section != "" && p.blankRun == 0 {
				p.blankStart = lineNo
			}
			p.blankRun++
			continue
		}

		if name, rest, ok := splitHeader(line); ok {
			if err := p.openSection(name, rest, lineNo); err != nil {
				return err
			}
			p.blankRun = 0
			continue
		}

		p.blankRun = 0
		if err := p.content(line, lineNo); err != nil {
			return err
		}
	}
	return nil
}

// splitHeader recognizes "KEYWORD: rest" headers: an all-caps token of at
// least two letters followed by a colon. Exact keyword matching against the
// legal vocabulary happens in openSection.
func splitHeader(line string) (name, rest string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 2 {
		return "", "", false
	}
	token := line[:idx]
	for _, r := range token {
		if (r < 'A' || r > 'Z') && r != '_' {
			return "", "", false
		}
	}
	return token, strings.TrimSpace(line[idx+1:]), true
}

func (p *parser) openSection(name, rest string, lineNo int) error {
	sec := schema.SectionName(name)

	// Subsections are only recognized inside a CONTRACTS block.
	if p.section == schema.SectionContracts && schema.IsSubsection(sec) {
		p.subsection = sec
		p.inUnknown = false
		p.noteBlankRun(string(sec))
		if rest != "" {
			return &ParseError{Line: lineNo, Section: name, Msg: "subsection header takes no inline text"}
		}
		return nil
	}

	switch sec {
	case schema.SectionPurpose, schema.SectionDescription, schema.SectionReturns,
		schema.SectionAttributes, schema.SectionArguments, schema.SectionContracts:
		if p.tree.Has(sec) {
			if sec != schema.SectionDescription || !p.implicitDesc {
				return &ParseError{Line: lineNo, Section: name, Msg: "duplicate section"}
			}
			p.implicitDesc = false
			p.noteBlankRun(name)
			p.section = sec
			p.subsection = ""
			p.inUnknown = false
			p.tree.Description = rest
			return nil
		}
		p.noteBlankRun(name)
		p.section = sec
		p.subsection = ""
		p.inUnknown = false
		p.tree.Order = append(p.tree.Order, sec)

		switch sec {
		case schema.SectionPurpose:
			p.tree.Purpose = rest
		case schema.SectionDescription:
			p.tree.Description = rest
		case schema.SectionReturns:
			p.tree.Returns = rest
			p.tree.HasReturns = true
		case schema.SectionAttributes, schema.SectionArguments:
			if p.tree.MappingName != "" {
				return &ParseError{Line: lineNo, Section: name,
					Msg: fmt.Sprintf("conflicting mapping sections for %s element", p.kind)}
			}
			p.tree.MappingName = sec
		case schema.SectionContracts:
			p.tree.Contracts.Present = true
			if rest != "" {
				return &ParseError{Line: lineNo, Section: name, Msg: "CONTRACTS header takes no inline text"}
			}
		}
		return nil
	}

	// Unknown header: recorded for the validator, content under it skipped.
	nested := p.section == schema.SectionContracts
	p.tree.Unknown = append(p.tree.Unknown, UnknownSection{Name: name, Line: lineNo, Nested: nested})
	p.noteBlankRun(name)
	if !nested {
		p.section = ""
		p.subsection = ""
	}
	p.inUnknown = true
	return nil
}

// noteBlankRun converts a pending blank run into a formatting note now that
// a new section header follows it.
func (p *parser) noteBlankRun(next string) {
	if p.blankRun > 0 && p.section != "" {
		p.result.BlankLines = append(p.result.BlankLines, BlankLineNote{
			Line:    p.blankStart,
			Before:  next,
			Section: string(p.currentName()),
		})
	}
	p.blankRun = 0
}

func (p *parser) currentName() schema.SectionName {
	if p.subsection != "" {
		return p.subsection
	}
	return p.section
}

func (p *parser) content(line string, lineNo int) error {
	if p.inUnknown {
		return nil
	}

	switch p.section {
	case "":
		// Prose before the first header is the description. An explicit
		// DESCRIPTION header later supersedes it.
		p.implicitDesc = true
		p.result.LeadingTextLine = lineNo
		p.section = schema.SectionDescription
		p.tree.Order = append(p.tree.Order, schema.SectionDescription)
		p.tree.Description = line

	case schema.SectionPurpose:
		p.tree.Purpose = joinText(p.tree.Purpose, line)

	case schema.SectionDescription:
		p.tree.Description = joinText(p.tree.Description, line)

	case schema.SectionReturns:
		p.tree.Returns = joinText(p.tree.Returns, line)

	case schema.SectionAttributes, schema.SectionArguments:
		return p.mappingLine(line, lineNo)

	case schema.SectionContracts:
		return p.contractLine(line, lineNo)
	}
	return nil
}

// mappingLine parses one "name: type - description" entry, or appends a
// continuation line to the previous entry.
func (p *parser) mappingLine(line string, lineNo int) error {
	name, rest, ok := splitEntry(line)
	if !ok {
		if len(p.tree.Mapping) == 0 {
			return &ParseError{Line: lineNo, Section: string(p.section), Msg: "expected name: description entry"}
		}
		last := &p.tree.Mapping[len(p.tree.Mapping)-1]
		last.Text = joinText(last.Text, line)
		return nil
	}

	for _, e := range p.tree.Mapping {
		if e.Name == name {
			return &ParseError{Line: lineNo, Section: string(p.section),
				Msg: fmt.Sprintf("duplicate entry %q", name)}
		}
	}
	p.tree.Mapping = append(p.tree.Mapping, Entry{Name: name, Text: rest})
	return nil
}

// splitEntry recognizes "identifier: rest" mapping entries.
func splitEntry(line string) (name, rest string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	token := strings.TrimSpace(line[:idx])
	if !isIdentifier(token) {
		return "", "", false
	}
	return token, strings.TrimSpace(line[idx+1:]), true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// contractLine parses "- statement" lines inside a CONTRACTS subsection,
// with continuation lines appended to the previous statement.
func (p *parser) contractLine(line string, lineNo int) error {
	if p.subsection == "" {
		return &ParseError{Line: lineNo, Section: string(schema.SectionContracts),
			Msg: "statement outside PRECONDITION/POSTCONDITION/RAISES"}
	}

	var stmts *[]string
	switch p.subsection {
	case schema.SubPrecondition:
		stmts = &p.tree.Contracts.Preconditions
	case schema.SubPostcondition:
		stmts = &p.tree.Contracts.Postconditions
	case schema.SubRaises:
		stmts = &p.tree.Contracts.Raises
	}

	if stmt, ok := strings.CutPrefix(line, "- "); ok {
		*stmts = append(*stmts, strings.TrimSpace(stmt))
		return nil
	}
	if len(*stmts) == 0 {
		return &ParseError{Line: lineNo, Section: string(p.subsection), Msg: "expected - statement"}
	}
	last := len(*stmts) - 1
	(*stmts)[last] = joinText((*stmts)[last], line)
	return nil
}

func joinText(existing, more string) string {
	if existing == "" {
		return more
	}
	return existing + " " + more
}
