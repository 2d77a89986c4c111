package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/contractspec/docparse"
	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/facts"
	"github.com/c360studio/contractspec/schema"
)

const transferDoc = `PURPOSE: Transfer funds out of the account.
DESCRIPTION: Moves the requested amount out of the balance.
ARGUMENTS:
    amount: Money - amount to move
RETURNS: None - no value returned
CONTRACTS:
    PRECONDITION:
        - amount is positive
    POSTCONDITION:
        - self.balance reflects amount deducted
    RAISES:
        - InsufficientFundsError - when self.balance < amount`

func transferElement() *element.Element {
	return &element.Element{
		Kind:          element.KindMethod,
		Name:          "transfer",
		QualifiedPath: "bank.Account.transfer",
		Params: []element.Param{
			{Name: "self"},
			{Name: "amount", Type: "Money"},
		},
		ReturnType: "None",
		Body: &element.Body{Stmts: []element.Stmt{
			{
				Kind: element.StmtIf,
				Cond: &element.Cond{Text: "self.balance < amount", Subject: "self.balance"},
				Then: []element.Stmt{
					{Kind: element.StmtRaise, Exception: "InsufficientFundsError"},
				},
			},
			{
				Kind:   element.StmtAssign,
				Target: "balance",
				OnSelf: true,
				AugOp:  "-=",
				Value:  &element.Expr{Shape: element.ShapeName, Text: "amount"},
			},
		}},
	}
}

func mustParse(t *testing.T, text string, kind element.Kind) *docparse.Result {
	t.Helper()
	result, err := docparse.Parse(text, kind)
	require.NoError(t, err)
	return result
}

func mustFacts(t *testing.T, el *element.Element) []facts.Fact {
	t.Helper()
	fs, ok := facts.Extract(el)
	require.True(t, ok)
	return fs
}

func codes(diags []Diagnostic) []Code {
	out := make([]Code, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func countCode(diags []Diagnostic, code Code) int {
	n := 0
	for _, d := range diags {
		if d.Code == code {
			n++
		}
	}
	return n
}

func TestCheck_CompliantTransferDoc(t *testing.T) {
	el := transferElement()
	parsed := mustParse(t, transferDoc, el.Kind)
	fs := mustFacts(t, el)

	diags, err := Check(el, parsed, fs, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestCheck_AbsentDoc(t *testing.T) {
	el := transferElement()
	parsed := mustParse(t, "", el.Kind)
	fs := mustFacts(t, el)

	diags, err := Check(el, parsed, fs, DefaultOptions())
	require.NoError(t, err)

	// Four required sections plus the mandatory CONTRACTS block, and
	// nothing else: absence is not a formatting problem.
	assert.Equal(t, 4, countCode(diags, CodeMissingSection))
	assert.Equal(t, 1, countCode(diags, CodeMissingContracts))
	assert.Zero(t, countCode(diags, CodeFormatting))
	assert.Len(t, diags, 5)
}

func TestCheck_EmptyContractBlock(t *testing.T) {
	text := `PURPOSE: Transfer funds out of the account.
DESCRIPTION: Moves the requested amount out of the balance.
ARGUMENTS:
    amount: Money - amount to move
RETURNS: None - no value returned
CONTRACTS:`
	el := transferElement()
	parsed := mustParse(t, text, el.Kind)
	fs := mustFacts(t, el)

	diags, err := Check(el, parsed, fs, DefaultOptions())
	require.NoError(t, err)

	// An empty block is one finding; it never also counts as missing.
	assert.Equal(t, 1, countCode(diags, CodeEmptyContractBlock))
	assert.Zero(t, countCode(diags, CodeMissingContracts))
}

func TestCheck_RedundantTypeRestatement(t *testing.T) {
	el := &element.Element{
		Kind:          element.KindFunction,
		Name:          "lookup",
		QualifiedPath: "m.lookup",
		Params:        []element.Param{{Name: "user_id", Type: "str"}},
		ReturnType:    "User",
		Body:          &element.Body{},
	}
	text := `PURPOSE: Look up a user.
DESCRIPTION: Fetches the user record by identifier.
ARGUMENTS:
    user_id: str - identifier of the user
RETURNS: User - matching record
CONTRACTS:
    PRECONDITION:
        - user_id is a str`
	parsed := mustParse(t, text, el.Kind)
	fs := mustFacts(t, el)

	diags, err := Check(el, parsed, fs, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 1, countCode(diags, CodeRedundantContract), "got %v", codes(diags))
	for _, d := range diags {
		if d.Code == CodeRedundantContract {
			assert.Equal(t, string(schema.SubPrecondition), d.Section)
			assert.Contains(t, d.Message, "restates the declared type of user_id")
		}
	}
}

func TestCheck_UnverifiedRaise(t *testing.T) {
	el := &element.Element{
		Kind:          element.KindFunction,
		Name:          "parse",
		QualifiedPath: "m.parse",
		Params:        []element.Param{{Name: "raw", Type: "bytes"}},
		ReturnType:    "Config",
		Body:          &element.Body{},
	}
	text := `PURPOSE: Parse raw configuration.
DESCRIPTION: Decodes the raw payload into a config value.
ARGUMENTS:
    raw: bytes - encoded payload
RETURNS: Config - decoded value
CONTRACTS:
    RAISES:
        - ValueError - when the payload is malformed`
	parsed := mustParse(t, text, el.Kind)
	fs := mustFacts(t, el)

	diags, err := Check(el, parsed, fs, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 1, countCode(diags, CodeUnverifiedRaise))
	for _, d := range diags {
		if d.Code == CodeUnverifiedRaise {
			assert.Equal(t, SeverityWarning, d.Severity)
		}
	}

	// Strict mode escalates the same finding to an error.
	strict := DefaultOptions()
	strict.StrictRaises = true
	diags, err = Check(el, parsed, fs, strict)
	require.NoError(t, err)
	for _, d := range diags {
		if d.Code == CodeUnverifiedRaise {
			assert.Equal(t, SeverityError, d.Severity)
		}
	}
}

func TestCheck_UnknownKindAbortsRun(t *testing.T) {
	el := &element.Element{Kind: element.Kind("widget"), Name: "w", QualifiedPath: "m.w"}
	parsed := mustParse(t, "", element.KindModule)

	_, err := Check(el, parsed, nil, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrUnknownKind)
}

func TestCheck_ClassContractsConditional(t *testing.T) {
	classDoc := `PURPOSE: Bank account.
DESCRIPTION: Holds a balance and enforces withdrawal limits.
ATTRIBUTES:
    balance: Money - current balance`

	plain := &element.Element{
		Kind:          element.KindClass,
		Name:          "Account",
		QualifiedPath: "bank.Account",
		Attributes:    []element.Attribute{{Name: "balance", Type: "Money"}},
	}
	parsed := mustParse(t, classDoc, plain.Kind)

	diags, err := Check(plain, parsed, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, countCode(diags, CodeMissingContracts))

	// A mutation fact shows the class enforces invariants.
	enforcing := mustFacts(t, &element.Element{
		Kind:          element.KindMethod,
		Name:          "withdraw",
		QualifiedPath: "bank.Account.withdraw",
		Body: &element.Body{Stmts: []element.Stmt{
			{
				Kind:   element.StmtAssign,
				Target: "balance",
				OnSelf: true,
				AugOp:  "-=",
				Value:  &element.Expr{Shape: element.ShapeName, Text: "amount"},
			},
		}},
	})
	diags, err = Check(plain, parsed, enforcing, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, countCode(diags, CodeMissingContracts))

	// Configuration makes the block mandatory regardless of facts.
	opts := DefaultOptions()
	opts.ContractsMandatoryForClasses = true
	diags, err = Check(plain, parsed, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, countCode(diags, CodeMissingContracts))
}

func TestCheck_BlankLineFormatting(t *testing.T) {
	text := "PURPOSE: Describe the module.\n\nDESCRIPTION: At length."
	el := &element.Element{Kind: element.KindModule, Name: "bank", QualifiedPath: "bank"}
	parsed := mustParse(t, text, el.Kind)

	diags, err := Check(el, parsed, nil, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 1, countCode(diags, CodeFormatting))
	for _, d := range diags {
		if d.Code == CodeFormatting {
			assert.Equal(t, 2, d.Line)
			assert.Contains(t, d.Message, "blank line between PURPOSE and DESCRIPTION")
		}
	}
}

func TestCheck_LeadingProseFormatting(t *testing.T) {
	// Prose before the first header folds into DESCRIPTION, so it is a
	// formatting finding rather than a parse failure or a missing section.
	text := "Banking primitives.\nPURPOSE: Describe the module."
	el := &element.Element{Kind: element.KindModule, Name: "bank", QualifiedPath: "bank"}
	parsed := mustParse(t, text, el.Kind)

	diags, err := Check(el, parsed, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, countCode(diags, CodeMissingSection))
	require.Equal(t, 1, countCode(diags, CodeFormatting))
	for _, d := range diags {
		if d.Code == CodeFormatting {
			assert.Equal(t, 1, d.Line)
			assert.Empty(t, d.Section)
			assert.Contains(t, d.Message, "treated as DESCRIPTION")
		}
	}
}

func TestCheck_UnknownSectionForKind(t *testing.T) {
	// RETURNS is parseable but never legal on a module.
	text := "PURPOSE: Describe the module.\nDESCRIPTION: At length.\nRETURNS: None"
	el := &element.Element{Kind: element.KindModule, Name: "bank", QualifiedPath: "bank"}
	parsed := mustParse(t, text, el.Kind)

	diags, err := Check(el, parsed, nil, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 1, countCode(diags, CodeUnknownSection))
	for _, d := range diags {
		if d.Code == CodeUnknownSection {
			assert.Equal(t, string(schema.SectionReturns), d.Section)
		}
	}
}

func TestRaisedException(t *testing.T) {
	assert.Equal(t, "InsufficientFundsError", raisedException("InsufficientFundsError - when self.balance < amount"))
	assert.Equal(t, "ValueError", raisedException("ValueError"))
	assert.Equal(t, "", raisedException("   "))
}
