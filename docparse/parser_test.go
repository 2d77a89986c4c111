package docparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/contractspec/element"
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

func TestParse_FullMethodDoc(t *testing.T) {
	result, err := Parse(transferDoc, element.KindMethod)
	require.NoError(t, err)

	tree := result.Tree
	assert.Equal(t, "Transfer funds out of the account.", tree.Purpose)
	assert.Equal(t, "Moves the requested amount out of the balance.", tree.Description)

	require.Len(t, tree.Mapping, 1)
	assert.Equal(t, "amount", tree.Mapping[0].Name)
	assert.Equal(t, "Money", tree.Mapping[0].TypeDescriptor())
	assert.Equal(t, "amount to move", tree.Mapping[0].Description())
	assert.Equal(t, schema.SectionArguments, tree.MappingName)

	assert.True(t, tree.HasReturns)
	assert.Equal(t, "None - no value returned", tree.Returns)

	assert.True(t, tree.Contracts.Present)
	assert.Equal(t, []string{"amount is positive"}, tree.Contracts.Preconditions)
	assert.Equal(t, []string{"self.balance reflects amount deducted"}, tree.Contracts.Postconditions)
	assert.Equal(t, []string{"InsufficientFundsError - when self.balance < amount"}, tree.Contracts.Raises)

	assert.Equal(t, []schema.SectionName{
		schema.SectionPurpose, schema.SectionDescription,
		schema.SectionArguments, schema.SectionReturns, schema.SectionContracts,
	}, tree.Order)
	assert.Empty(t, result.BlankLines)
	assert.Empty(t, tree.Unknown)
}

func TestParse_AbsentText(t *testing.T) {
	for _, text := range []string{"", "   \n\t\n"} {
		result, err := Parse(text, element.KindFunction)
		require.NoError(t, err)
		assert.True(t, result.Tree.IsEmpty())
	}
}

func TestParse_BlankLineBetweenSections(t *testing.T) {
	text := "PURPOSE: Do a thing.\n\nDESCRIPTION: In detail."
	result, err := Parse(text, element.KindModule)
	require.NoError(t, err)

	require.Len(t, result.BlankLines, 1)
	note := result.BlankLines[0]
	assert.Equal(t, 2, note.Line)
	assert.Equal(t, "PURPOSE", note.Section)
	assert.Equal(t, "DESCRIPTION", note.Before)

	// The blank line is a formatting note, not a parse failure.
	assert.Equal(t, "Do a thing.", result.Tree.Purpose)
	assert.Equal(t, "In detail.", result.Tree.Description)
}

func TestParse_UnknownSectionRecorded(t *testing.T) {
	text := `PURPOSE: Do a thing.
NOTES: extra commentary
    skipped content
DESCRIPTION: In detail.`
	result, err := Parse(text, element.KindModule)
	require.NoError(t, err)

	require.Len(t, result.Tree.Unknown, 1)
	assert.Equal(t, "NOTES", result.Tree.Unknown[0].Name)
	assert.Equal(t, 2, result.Tree.Unknown[0].Line)
	assert.False(t, result.Tree.Unknown[0].Nested)

	// Content under the unknown header does not leak into neighbors.
	assert.Equal(t, "Do a thing.", result.Tree.Purpose)
	assert.Equal(t, "In detail.", result.Tree.Description)
}

func TestParse_NestedUnknownSubsection(t *testing.T) {
	text := `PURPOSE: Do a thing.
CONTRACTS:
    INVARIANT:
        - always true`
	result, err := Parse(text, element.KindClass)
	require.NoError(t, err)

	require.Len(t, result.Tree.Unknown, 1)
	assert.Equal(t, "INVARIANT", result.Tree.Unknown[0].Name)
	assert.True(t, result.Tree.Unknown[0].Nested)
	assert.True(t, result.Tree.Contracts.Empty())
}

func TestParse_MultilineContinuations(t *testing.T) {
	text := `PURPOSE: Transfer funds
    across accounts.
ARGUMENTS:
    amount: Money - amount
        to move
CONTRACTS:
    PRECONDITION:
        - amount is
            positive`
	result, err := Parse(text, element.KindFunction)
	require.NoError(t, err)

	tree := result.Tree
	assert.Equal(t, "Transfer funds across accounts.", tree.Purpose)
	require.Len(t, tree.Mapping, 1)
	assert.Equal(t, "amount to move", tree.Mapping[0].Description())
	assert.Equal(t, []string{"amount is positive"}, tree.Contracts.Preconditions)
}

func TestParse_LeadingProse(t *testing.T) {
	result, err := Parse("Moves money around.\nspanning two lines.\nPURPOSE: Transfer funds.", element.KindFunction)
	require.NoError(t, err)

	tree := result.Tree
	assert.Equal(t, "Moves money around. spanning two lines.", tree.Description)
	assert.Equal(t, "Transfer funds.", tree.Purpose)
	assert.Equal(t, []schema.SectionName{schema.SectionDescription, schema.SectionPurpose}, tree.Order)
	assert.Equal(t, 1, result.LeadingTextLine)
}

func TestParse_LeadingProseSupersededByHeader(t *testing.T) {
	result, err := Parse("stale intro\nPURPOSE: p\nDESCRIPTION: the real text", element.KindModule)
	require.NoError(t, err)

	assert.Equal(t, "the real text", result.Tree.Description)
	assert.Equal(t, 1, result.LeadingTextLine)

	// A second explicit DESCRIPTION is still a duplicate.
	_, err = Parse("stale intro\nDESCRIPTION: one\nDESCRIPTION: two", element.KindModule)
	require.Error(t, err)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 3, parseErr.Line)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		kind element.Kind
		text string
	}{
		{
			name: "duplicate section",
			kind: element.KindModule,
			text: "PURPOSE: one\nPURPOSE: two",
		},
		{
			name: "contracts header with inline text",
			kind: element.KindMethod,
			text: "PURPOSE: p\nCONTRACTS: inline",
		},
		{
			name: "subsection header with inline text",
			kind: element.KindMethod,
			text: "CONTRACTS:\n    RAISES: inline",
		},
		{
			name: "statement outside subsection",
			kind: element.KindMethod,
			text: "CONTRACTS:\n    - floating statement",
		},
		{
			name: "conflicting mapping sections",
			kind: element.KindClass,
			text: "ARGUMENTS:\n    a: int\nATTRIBUTES:\n    b: str",
		},
		{
			name: "duplicate mapping entry",
			kind: element.KindFunction,
			text: "ARGUMENTS:\n    a: int\n    a: str",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, tt.kind)
			require.Error(t, err)
			var parseErr *ParseError
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestEntry_TypeAndDescription(t *testing.T) {
	e := Entry{Name: "amount", Text: "Money - amount to move"}
	assert.Equal(t, "Money", e.TypeDescriptor())
	assert.Equal(t, "amount to move", e.Description())

	typeOnly := Entry{Name: "amount", Text: "Money"}
	assert.Equal(t, "Money", typeOnly.TypeDescriptor())
	assert.Equal(t, "", typeOnly.Description())
}

func TestSectionTree_Statements(t *testing.T) {
	tree := &SectionTree{Contracts: Contracts{
		Present:       true,
		Preconditions: []string{"a"},
		Raises:        []string{"E - when x"},
	}}
	assert.Equal(t, []string{"a"}, tree.Statements(schema.SubPrecondition))
	assert.Nil(t, tree.Statements(schema.SubPostcondition))
	assert.Equal(t, []string{"E - when x"}, tree.Statements(schema.SubRaises))
	assert.Nil(t, tree.Statements(schema.SectionPurpose))
}
