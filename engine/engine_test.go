package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/validate"
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

func transferMethod(doc string) *element.Element {
	return &element.Element{
		Kind:          element.KindMethod,
		Name:          "transfer",
		QualifiedPath: "bank.Account.transfer",
		Params: []element.Param{
			{Name: "self"},
			{Name: "amount", Type: "Money"},
		},
		ReturnType: "None",
		DocText:    doc,
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

func bankTree(methodDoc string) *element.Element {
	return &element.Element{
		Kind:          element.KindModule,
		Name:          "bank",
		QualifiedPath: "bank",
		DocText:       "PURPOSE: Banking primitives.\nDESCRIPTION: Accounts and transfers.",
		Children: []*element.Element{
			{
				Kind:          element.KindClass,
				Name:          "Account",
				QualifiedPath: "bank.Account",
				Attributes:    []element.Attribute{{Name: "balance", Type: "Money"}},
				DocText: "PURPOSE: Bank account.\nDESCRIPTION: Holds a balance.\nATTRIBUTES:\n" +
					"    balance: Money - current balance",
				Children: []*element.Element{transferMethod(methodDoc)},
			},
		},
	}
}

func TestRun_CompliantTree(t *testing.T) {
	rep, err := Run(context.Background(), bankTree(transferDoc), Options{})
	require.NoError(t, err)

	require.Len(t, rep.Records, 3)
	assert.Equal(t, "bank", rep.Records[0].QualifiedPath)
	assert.Equal(t, "bank.Account", rep.Records[1].QualifiedPath)
	assert.Equal(t, "bank.Account.transfer", rep.Records[2].QualifiedPath)

	s := rep.Summarize()
	assert.Equal(t, 3, s.Elements)
	assert.Equal(t, 3, s.Compliant)
	assert.Zero(t, s.Diagnostics)
	assert.NotEmpty(t, rep.RunID)
}

func TestRun_OrderStableAcrossWorkerCounts(t *testing.T) {
	for _, workers := range []int{1, 4} {
		rep, err := Run(context.Background(), bankTree(""), Options{Workers: workers})
		require.NoError(t, err)
		require.Len(t, rep.Records, 3)
		assert.Equal(t, "bank", rep.Records[0].QualifiedPath)
		assert.Equal(t, "bank.Account", rep.Records[1].QualifiedPath)
		assert.Equal(t, "bank.Account.transfer", rep.Records[2].QualifiedPath)
	}
}

func TestRun_InvalidTree(t *testing.T) {
	tree := bankTree(transferDoc)
	tree.Children[0].QualifiedPath = "bank"

	_, err := Run(context.Background(), tree, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid element tree")
}

func TestProcess_MalformedDocFallsBack(t *testing.T) {
	el := transferMethod("PURPOSE: one\nPURPOSE: two")

	rec, err := Process(el, Options{})
	require.NoError(t, err)

	// Parse diagnostic first, then the validator findings against the
	// empty tree.
	require.NotEmpty(t, rec.Diagnostics)
	assert.Equal(t, validate.CodeParseError, rec.Diagnostics[0].Code)

	missing := 0
	for _, d := range rec.Diagnostics {
		if d.Code == validate.CodeMissingSection {
			missing++
		}
	}
	assert.Equal(t, 4, missing)
}

func TestProcess_UnreadableBody(t *testing.T) {
	el := transferMethod(transferDoc)
	el.Body = nil

	rec, err := Process(el, Options{})
	require.NoError(t, err)

	codes := make([]validate.Code, 0, len(rec.Diagnostics))
	for _, d := range rec.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, validate.CodeUnreadableBody)

	// Modules never carry a body; no diagnostic there.
	mod := &element.Element{
		Kind:          element.KindModule,
		Name:          "bank",
		QualifiedPath: "bank",
		DocText:       "PURPOSE: Banking primitives.\nDESCRIPTION: Accounts and transfers.",
	}
	rec, err = Process(mod, Options{})
	require.NoError(t, err)
	assert.Empty(t, rec.Diagnostics)
}

func TestProcess_SynthesizeRegeneratesAndRefreshesFields(t *testing.T) {
	el := transferMethod("PURPOSE: Transfer funds out of the account.")

	rec, err := Process(el, Options{Synthesize: true})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.RegeneratedText)
	assert.Contains(t, rec.RegeneratedText, "RAISES:")
	assert.Equal(t, "Transfer funds out of the account.", rec.Purpose)
	assert.NotEmpty(t, rec.Description)
}

func TestProcess_SynthesizeSkipsCompliantElements(t *testing.T) {
	el := transferMethod(transferDoc)

	rec, err := Process(el, Options{Synthesize: true})
	require.NoError(t, err)
	assert.Empty(t, rec.Diagnostics)
	assert.Empty(t, rec.RegeneratedText)
}

func TestRun_UnresolvedElementDoesNotAbortBatch(t *testing.T) {
	tree := bankTree(transferDoc)
	tree.Children = append(tree.Children, &element.Element{
		Kind:          element.KindFunction,
		Name:          "mystery",
		QualifiedPath: "bank.mystery",
		Body:          &element.Body{},
	})

	rep, err := Run(context.Background(), tree, Options{Synthesize: true})
	require.NoError(t, err)
	require.Len(t, rep.Records, 4)

	rec := rep.Records[3]
	assert.True(t, rec.Unresolved)
	assert.Equal(t, "PURPOSE", rec.UnresolvedSection)
	assert.Empty(t, rec.RegeneratedText)

	s := rep.Summarize()
	assert.Equal(t, 1, s.Unresolved)
	assert.Equal(t, 3, s.Compliant)
}
