// Package docparse turns raw documentation text into a structured section
// tree. The grammar is the fixed keyword format used by the documentation
// standard: PURPOSE / DESCRIPTION / ATTRIBUTES / ARGUMENTS / RETURNS and a
// nested CONTRACTS block with PRECONDITION / POSTCONDITION / RAISES.
package docparse

import (
	"strings"

	"github.com/c360studio/contractspec/schema"
)

// Entry is one mapping-section line: "name: type - description".
// Text holds everything after the first colon, unmodified.
type Entry struct {
	Name string
	Text string
}

// TypeDescriptor returns the declared type part of the entry text, the
// portion before the first " - " separator.
func (e Entry) TypeDescriptor() string {
	if idx := strings.Index(e.Text, " - "); idx >= 0 {
		return strings.TrimSpace(e.Text[:idx])
	}
	return strings.TrimSpace(e.Text)
}

// Description returns the free-text part of the entry after " - ",
// or "" when the entry carries only a type descriptor.
func (e Entry) Description() string {
	if idx := strings.Index(e.Text, " - "); idx >= 0 {
		return strings.TrimSpace(e.Text[idx+3:])
	}
	return ""
}

// Contracts is the optional composite block. A subsection is present only
// when non-empty; Present distinguishes "CONTRACTS: header with no content"
// from "no CONTRACTS at all" for the empty-block check.
type Contracts struct {
	Present        bool
	Preconditions  []string
	Postconditions []string
	Raises         []string
}

// Empty reports whether every subsection is empty.
func (c *Contracts) Empty() bool {
	return len(c.Preconditions) == 0 && len(c.Postconditions) == 0 && len(c.Raises) == 0
}

// UnknownSection records a header outside the fixed legal set, kept for the
// validator rather than rejected at parse time.
type UnknownSection struct {
	Name string
	Line int
	// Nested is true for headers found inside a CONTRACTS block.
	Nested bool
}

// BlankLineNote records blank lines between two consecutive sections, a
// formatting violation that does not stop parsing.
type BlankLineNote struct {
	Line    int
	Before  string // the section header following the blank run
	Section string // the section preceding the blank run
}

// SectionTree is the structured form of one element's documentation text.
type SectionTree struct {
	Purpose     string
	Description string

	// Mapping holds ARGUMENTS or ATTRIBUTES entries in order;
	// MappingName records which of the two headers appeared.
	Mapping     []Entry
	MappingName schema.SectionName

	Returns    string
	HasReturns bool

	Contracts Contracts

	// Order lists the top-level sections in order of appearance.
	Order []schema.SectionName

	// Unknown lists headers outside the legal vocabulary.
	Unknown []UnknownSection
}

// IsEmpty reports whether no section at all was present, the result of
// parsing absent documentation text.
func (t *SectionTree) IsEmpty() bool {
	return len(t.Order) == 0 && len(t.Unknown) == 0
}

// Has reports whether a top-level section appeared in the text.
func (t *SectionTree) Has(name schema.SectionName) bool {
	for _, s := range t.Order {
		if s == name {
			return true
		}
	}
	return false
}

// MappingEntry returns the entry for name and whether it exists.
func (t *SectionTree) MappingEntry(name string) (Entry, bool) {
	for _, e := range t.Mapping {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Statements returns the statement list of a CONTRACTS subsection.
func (t *SectionTree) Statements(sub schema.SectionName) []string {
	switch sub {
	case schema.SubPrecondition:
		return t.Contracts.Preconditions
	case schema.SubPostcondition:
		return t.Contracts.Postconditions
	case schema.SubRaises:
		return t.Contracts.Raises
	}
	return nil
}
