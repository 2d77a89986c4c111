// Package schema holds the declarative documentation rules: which
// top-level sections each element kind requires, which are legal at all,
// and when a CONTRACTS block is mandatory. Pure lookup, no mutable state.
package schema

import (
	"errors"
	"fmt"

	"github.com/c360studio/contractspec/element"
)

// SectionName identifies a documentation section header.
type SectionName string

const (
	SectionPurpose     SectionName = "PURPOSE"
	SectionDescription SectionName = "DESCRIPTION"
	SectionAttributes  SectionName = "ATTRIBUTES"
	SectionArguments   SectionName = "ARGUMENTS"
	SectionReturns     SectionName = "RETURNS"
	SectionContracts   SectionName = "CONTRACTS"

	// CONTRACTS subsections. No other subsection names are ever legal.
	SubPrecondition  SectionName = "PRECONDITION"
	SubPostcondition SectionName = "POSTCONDITION"
	SubRaises        SectionName = "RAISES"
)

// ErrUnknownKind is returned when an unrecognized element kind reaches the
// registry. It signals a contract violation between the front end and the
// engine and aborts the run.
var ErrUnknownKind = errors.New("unknown element kind")

// Rule is the schema for one element kind.
type Rule struct {
	Kind element.Kind

	// Required top-level sections, in canonical order.
	Required []SectionName

	// Legal is the full set of top-level sections this kind may carry.
	Legal []SectionName

	// ContractsMandatory requires a CONTRACTS block unconditionally.
	ContractsMandatory bool

	// ContractsConditional requires CONTRACTS only when the element
	// enforces invariants (evidenced by raise or mutation facts).
	ContractsConditional bool
}

// IsLegal reports whether name is a legal top-level section for this kind.
func (r Rule) IsLegal(name SectionName) bool {
	for _, s := range r.Legal {
		if s == name {
			return true
		}
	}
	return false
}

// MappingSection returns the mapping-style section this kind uses for its
// signature (ATTRIBUTES for classes, ARGUMENTS for callables), or "" when
// the kind has none.
func (r Rule) MappingSection() SectionName {
	switch r.Kind {
	case element.KindClass:
		return SectionAttributes
	case element.KindMethod, element.KindFunction:
		return SectionArguments
	}
	return ""
}

var rules = map[element.Kind]Rule{
	element.KindModule: {
		Kind:     element.KindModule,
		Required: []SectionName{SectionPurpose, SectionDescription},
		Legal:    []SectionName{SectionPurpose, SectionDescription},
	},
	element.KindClass: {
		Kind:                 element.KindClass,
		Required:             []SectionName{SectionPurpose, SectionDescription, SectionAttributes},
		Legal:                []SectionName{SectionPurpose, SectionDescription, SectionAttributes, SectionContracts},
		ContractsConditional: true,
	},
	element.KindMethod: {
		Kind:               element.KindMethod,
		Required:           []SectionName{SectionPurpose, SectionDescription, SectionArguments, SectionReturns},
		Legal:              []SectionName{SectionPurpose, SectionDescription, SectionArguments, SectionReturns, SectionContracts},
		ContractsMandatory: true,
	},
	element.KindFunction: {
		Kind:               element.KindFunction,
		Required:           []SectionName{SectionPurpose, SectionDescription, SectionArguments, SectionReturns},
		Legal:              []SectionName{SectionPurpose, SectionDescription, SectionArguments, SectionReturns, SectionContracts},
		ContractsMandatory: true,
	},
}

// RulesFor returns the schema rule for an element kind.
// Fails with ErrUnknownKind only when queried with an unrecognized kind.
func RulesFor(kind element.Kind) (Rule, error) {
	rule, ok := rules[kind]
	if !ok {
		return Rule{}, fmt.Errorf("schema lookup for kind %q: %w", kind, ErrUnknownKind)
	}
	return rule, nil
}

// Subsections returns the legal CONTRACTS subsections in canonical order.
func Subsections() []SectionName {
	return []SectionName{SubPrecondition, SubPostcondition, SubRaises}
}

// IsSubsection reports whether name is a legal CONTRACTS subsection.
func IsSubsection(name SectionName) bool {
	switch name {
	case SubPrecondition, SubPostcondition, SubRaises:
		return true
	}
	return false
}

// TopLevelSections returns every recognized top-level section name in
// canonical order, across all kinds.
func TopLevelSections() []SectionName {
	return []SectionName{
		SectionPurpose, SectionDescription,
		SectionAttributes, SectionArguments,
		SectionReturns, SectionContracts,
	}
}
