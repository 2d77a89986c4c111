package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/contractspec/docparse"
	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/facts"
	"github.com/c360studio/contractspec/schema"
	"github.com/c360studio/contractspec/validate"
)

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

// generate runs the parse-validate-synthesize pipeline the engine uses.
func generate(t *testing.T, el *element.Element, text string, opts validate.Options) string {
	t.Helper()
	parsed, err := docparse.Parse(text, el.Kind)
	require.NoError(t, err)
	fs, _ := facts.Extract(el)
	diags, err := validate.Check(el, parsed, fs, opts)
	require.NoError(t, err)
	out, err := Generate(el, parsed, fs, diags, opts)
	require.NoError(t, err)
	return out
}

func TestGenerate_FromPurposeOnly(t *testing.T) {
	el := transferElement()
	out := generate(t, el, "PURPOSE: Transfer funds out of the account.", validate.DefaultOptions())

	want := `PURPOSE: Transfer funds out of the account.
DESCRIPTION: Raises InsufficientFundsError when self.balance < amount; updates self.balance.
ARGUMENTS:
    amount: Money
RETURNS: None - no value returned
CONTRACTS:
    POSTCONDITION:
        - self.balance reflects amount deducted
    RAISES:
        - InsufficientFundsError - when self.balance < amount`
	assert.Equal(t, want, out)
}

func TestGenerate_PreservesLeadingProse(t *testing.T) {
	el := transferElement()
	out := generate(t, el, "Moves money between accounts.\nPURPOSE: Transfer funds out of the account.", validate.DefaultOptions())

	want := `PURPOSE: Transfer funds out of the account.
DESCRIPTION: Moves money between accounts.
ARGUMENTS:
    amount: Money
RETURNS: None - no value returned
CONTRACTS:
    POSTCONDITION:
        - self.balance reflects amount deducted
    RAISES:
        - InsufficientFundsError - when self.balance < amount`
	assert.Equal(t, want, out)
}

func TestGenerate_Idempotent(t *testing.T) {
	el := transferElement()
	opts := validate.DefaultOptions()

	first := generate(t, el, "PURPOSE: Transfer funds out of the account.", opts)

	// The regenerated text validates clean.
	parsed, err := docparse.Parse(first, el.Kind)
	require.NoError(t, err)
	fs, _ := facts.Extract(el)
	diags, err := validate.Check(el, parsed, fs, opts)
	require.NoError(t, err)
	require.Empty(t, diags)

	// And a second pass changes nothing.
	second := generate(t, el, first, opts)
	assert.Equal(t, first, second)
}

func TestGenerate_PreservesValidSections(t *testing.T) {
	el := transferElement()
	text := `PURPOSE: Transfer funds out of the account.
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

	out := generate(t, el, text, validate.DefaultOptions())
	assert.Equal(t, text, out)
}

func TestGenerate_DropsRedundantStatements(t *testing.T) {
	el := &element.Element{
		Kind:          element.KindFunction,
		Name:          "lookup",
		QualifiedPath: "m.lookup",
		Params:        []element.Param{{Name: "user_id", Type: "str"}},
		ReturnType:    "User",
		Body: &element.Body{Stmts: []element.Stmt{
			{
				Kind: element.StmtIf,
				Cond: &element.Cond{Text: "user_id is None", Subject: "user_id", AbsenceCheck: true},
				Then: []element.Stmt{
					{Kind: element.StmtRaise, Exception: "ValueError"},
				},
			},
			{
				Kind: element.StmtReturn,
				Expr: &element.Expr{Shape: element.ShapeCall, Text: "db.get(user_id)"},
			},
		}},
	}
	text := `PURPOSE: Look up a user.
DESCRIPTION: Fetches the user record by identifier.
ARGUMENTS:
    user_id: str - identifier of the user
RETURNS: User - matching record
CONTRACTS:
    PRECONDITION:
        - user_id is a str`

	out := generate(t, el, text, validate.DefaultOptions())

	// The type restatement is gone; the derived precondition and the
	// evidenced raise take its place.
	assert.NotContains(t, out, "user_id is a str")
	assert.Contains(t, out, "- user_id is provided")
	assert.Contains(t, out, "- ValueError - when argument user_id is absent")
}

func TestGenerate_ClassWithoutContracts(t *testing.T) {
	el := &element.Element{
		Kind:          element.KindClass,
		Name:          "Account",
		QualifiedPath: "bank.Account",
		Attributes:    []element.Attribute{{Name: "balance", Type: "Money"}},
	}
	text := `PURPOSE: Bank account.
DESCRIPTION: Holds a balance.`

	out := generate(t, el, text, validate.DefaultOptions())

	want := `PURPOSE: Bank account.
DESCRIPTION: Holds a balance.
ATTRIBUTES:
    balance: Money`
	assert.Equal(t, want, out)
	assert.NotContains(t, out, "CONTRACTS")
}

func TestGenerate_UnresolvedPurpose(t *testing.T) {
	el := transferElement()
	parsed, err := docparse.Parse("", el.Kind)
	require.NoError(t, err)
	fs, _ := facts.Extract(el)

	_, err = Generate(el, parsed, fs, nil, validate.DefaultOptions())
	require.Error(t, err)

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, schema.SectionPurpose, unresolved.Section)
	assert.Equal(t, "bank.Account.transfer", unresolved.Path)
}

func TestGenerate_UnresolvedContracts(t *testing.T) {
	// A function with nothing derivable and no prior contract statements
	// cannot satisfy its mandatory CONTRACTS block.
	el := &element.Element{
		Kind:          element.KindFunction,
		Name:          "noop",
		QualifiedPath: "m.noop",
		Body:          &element.Body{},
	}
	parsed, err := docparse.Parse("PURPOSE: Do nothing.\nDESCRIPTION: Placeholder.", el.Kind)
	require.NoError(t, err)
	fs, _ := facts.Extract(el)

	_, err = Generate(el, parsed, fs, nil, validate.DefaultOptions())
	require.Error(t, err)

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, schema.SectionContracts, unresolved.Section)
}

func TestGenerate_MethodSkipsSelfParam(t *testing.T) {
	el := transferElement()
	out := generate(t, el, "PURPOSE: Transfer funds out of the account.", validate.DefaultOptions())
	assert.NotContains(t, out, "self:")
}

func TestRender_Format(t *testing.T) {
	tree := &docparse.SectionTree{
		Purpose:     "Do a thing.",
		Description: "In detail.",
		MappingName: schema.SectionArguments,
		Mapping: []docparse.Entry{
			{Name: "a", Text: "int - first"},
			{Name: "b", Text: "str - second"},
		},
		HasReturns: true,
		Returns:    "bool - outcome",
		Contracts: docparse.Contracts{
			Present:       true,
			Preconditions: []string{"a is positive"},
			Raises:        []string{"ValueError - when a is negative"},
		},
	}

	want := `PURPOSE: Do a thing.
DESCRIPTION: In detail.
ARGUMENTS:
    a: int - first
    b: str - second
RETURNS: bool - outcome
CONTRACTS:
    PRECONDITION:
        - a is positive
    RAISES:
        - ValueError - when a is negative`
	assert.Equal(t, want, Render(tree))
}

func TestRender_EmptyContractsOmitted(t *testing.T) {
	tree := &docparse.SectionTree{
		Purpose:     "Do a thing.",
		Description: "In detail.",
		Contracts:   docparse.Contracts{Present: true},
	}
	assert.Equal(t, "PURPOSE: Do a thing.\nDESCRIPTION: In detail.", Render(tree))
}
