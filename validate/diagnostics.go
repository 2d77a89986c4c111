// Package validate checks a parsed section tree against the schema
// registry and against duplication rules relative to the element signature
// and extracted facts. All checks run independently and every applicable
// diagnostic is collected, so a single run reports all violations at once.
package validate

import (
	"fmt"

	"github.com/c360studio/contractspec/docparse"
)

// Code identifies a diagnostic category. The advisory codes never abort a
// batch; they are collected per element and surfaced in the output record.
type Code string

const (
	// CodeParseError reports malformed existing documentation text. The
	// element falls back to an empty section tree and synthesis proceeds.
	CodeParseError Code = "ParseError"

	// CodeUnreadableBody reports a body the front end could not lower.
	// Fact extraction was skipped; documentation is still produced
	// best-effort.
	CodeUnreadableBody Code = "UnreadableBodyError"

	CodeMissingSection     Code = "MissingSectionError"
	CodeUnknownSection     Code = "UnknownSectionError"
	CodeFormatting         Code = "FormattingError"
	CodeEmptyContractBlock Code = "EmptyContractBlockError"
	CodeRedundantContract  Code = "RedundantContractError"
	CodeUnverifiedRaise    Code = "UnverifiedRaiseError"
	CodeMissingContracts   Code = "MissingContractsError"
)

// Severity distinguishes advisory findings from ones that fail the element.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is one validator finding.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Section  string   `json:"section,omitempty"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Section != "" {
		return fmt.Sprintf("%s [%s]: %s", d.Code, d.Section, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// NewParseDiagnostic converts a recoverable parse failure into the
// diagnostic that precedes all validator findings in a record.
func NewParseDiagnostic(err *docparse.ParseError) Diagnostic {
	return Diagnostic{
		Code:     CodeParseError,
		Severity: SeverityWarning,
		Section:  err.Section,
		Line:     err.Line,
		Message:  err.Msg,
	}
}

// NewUnreadableBodyDiagnostic reports a body that fact extraction could
// not read.
func NewUnreadableBodyDiagnostic() Diagnostic {
	return Diagnostic{
		Code:     CodeUnreadableBody,
		Severity: SeverityWarning,
		Message:  "implementation body could not be read; facts unavailable",
	}
}
