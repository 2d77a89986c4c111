package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360studio/contractspec/docparse"
	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/schema"
)

func TestRestatesType(t *testing.T) {
	tests := []struct {
		name       string
		statement  string
		subject    string
		descriptor string
		want       bool
	}{
		{"plain restatement", "user_id is a str", "user_id", "str", true},
		{"multi token descriptor", "items is a list of str", "items", "list of str", true},
		{"adds a predicate without type tokens", "amount is positive", "amount", "Money", false},
		{"subject not named", "the identifier is a str", "user_id", "str", false},
		{"empty descriptor", "user_id is valid", "user_id", "", false},
		{"case insensitive", "User_ID is a STR", "user_id", "str", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, restatesType(tt.statement, tt.subject, tt.descriptor))
		})
	}
}

func TestRestatesWording(t *testing.T) {
	tests := []struct {
		name        string
		statement   string
		text        string
		sensitivity Sensitivity
		want        bool
	}{
		{"verbatim at low", "the amount to move must be set", "amount to move", SensitivityLow, true},
		{"paraphrase at low", "amount is moved now", "amount being moved now", SensitivityLow, false},
		{"paraphrase at high", "amount is moved now", "amount being moved now", SensitivityHigh, true},
		{"low overlap at high", "amount will arrive later", "amount being moved now", SensitivityHigh, false},
		{"short text never matches", "id is set", "id", SensitivityHigh, false},
		{"empty text", "anything", "", SensitivityHigh, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, restatesWording(tt.statement, tt.text, tt.sensitivity))
		})
	}
}

func TestRedundantStatement_SignatureTypes(t *testing.T) {
	el := &element.Element{
		Kind:          element.KindFunction,
		Name:          "store",
		QualifiedPath: "m.store",
		Params:        []element.Param{{Name: "key", Type: "str"}},
		ReturnType:    "bool",
	}
	tree := &docparse.SectionTree{}

	// A parameter type never documented in ARGUMENTS is still signature
	// visible.
	reason := RedundantStatement(el, tree, "key is a str", SensitivityLow)
	assert.Equal(t, "restates the declared type of key", reason)

	reason = RedundantStatement(el, tree, "returns a bool", SensitivityLow)
	assert.Equal(t, "restates the declared return type", reason)

	// A checkable predicate beyond the type survives.
	assert.Empty(t, RedundantStatement(el, tree, "key is non-empty", SensitivityLow))
}

func TestRedundantStatement_AttributeTypes(t *testing.T) {
	el := &element.Element{
		Kind:          element.KindClass,
		Name:          "Account",
		QualifiedPath: "bank.Account",
		Attributes:    []element.Attribute{{Name: "balance", Type: "Money"}},
	}
	tree := &docparse.SectionTree{}

	reason := RedundantStatement(el, tree, "balance is a Money", SensitivityLow)
	assert.Equal(t, "restates the declared type of balance", reason)
}

func TestRedundantStatement_ReturnsWording(t *testing.T) {
	el := &element.Element{
		Kind:          element.KindFunction,
		Name:          "total",
		QualifiedPath: "m.total",
	}
	tree := &docparse.SectionTree{
		HasReturns: true,
		Returns:    "int - sum of all line items",
	}

	reason := RedundantStatement(el, tree, "result is the sum of all line items", SensitivityLow)
	assert.Equal(t, "duplicates the RETURNS description", reason)
}

func TestRedundantStatement_MappingWording(t *testing.T) {
	el := &element.Element{
		Kind:          element.KindFunction,
		Name:          "move",
		QualifiedPath: "m.move",
	}
	tree := &docparse.SectionTree{
		MappingName: schema.SectionArguments,
		Mapping: []docparse.Entry{
			{Name: "amount", Text: "Money - quantity being transferred"},
		},
	}

	reason := RedundantStatement(el, tree, "the quantity being transferred is set", SensitivityLow)
	assert.Equal(t, "duplicates the ARGUMENTS description of amount", reason)
}
