package validate

import (
	"strings"
	"unicode"
)

// Sensitivity controls the redundancy overlap heuristic's threshold.
// Paraphrase detection has no single correct answer, so the threshold is
// configuration, not a constant.
type Sensitivity string

const (
	SensitivityLow  Sensitivity = "low"
	SensitivityHigh Sensitivity = "high"
)

// highOverlapRatio is the token-overlap ratio above which a statement is
// considered a paraphrase of a mapping entry's description at high
// sensitivity.
const highOverlapRatio = 0.6

// restatesType reports whether a contract statement restates a declared
// type descriptor: it names the subject and contains every type token of
// the descriptor, adding no checkable predicate beyond what a type system
// guarantees.
func restatesType(statement, subject, typeDescriptor string) bool {
	if subject == "" || typeDescriptor == "" {
		return false
	}
	stmtTokens := tokenSet(statement)
	if !stmtTokens[strings.ToLower(subject)] {
		return false
	}
	typeTokens := tokens(typeDescriptor)
	if len(typeTokens) == 0 {
		return false
	}
	for _, t := range typeTokens {
		if !stmtTokens[t] {
			return false
		}
	}
	return true
}

// restatesWording reports whether a statement duplicates wording already
// present in a section's text. Low sensitivity requires the description to
// appear verbatim; high sensitivity also accepts a token-overlap paraphrase.
func restatesWording(statement, text string, sensitivity Sensitivity) bool {
	stmt := strings.ToLower(strings.TrimSpace(statement))
	desc := strings.ToLower(strings.TrimSpace(text))
	if desc == "" {
		return false
	}
	if len(desc) >= 8 && strings.Contains(stmt, desc) {
		return true
	}
	if sensitivity != SensitivityHigh {
		return false
	}

	descTokens := tokens(desc)
	if len(descTokens) < 2 {
		return false
	}
	stmtTokens := tokenSet(stmt)
	matched := 0
	for _, t := range descTokens {
		if stmtTokens[t] {
			matched++
		}
	}
	return float64(matched)/float64(len(descTokens)) >= highOverlapRatio
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokens(s) {
		set[t] = true
	}
	return set
}
