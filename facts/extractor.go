// Package facts statically infers verifiable behavioral observations from
// an element's lowered body: raise sites with their trigger conditions,
// instance attribute mutations, and return shapes. Facts are advisory
// evidence for validation and synthesis, never a source of truth that
// overrides author-written documentation.
package facts

import (
	"fmt"
	"strings"

	"github.com/c360studio/contractspec/element"
)

// Kind classifies a static observation.
type Kind string

const (
	KindRaises                Kind = "raises"
	KindMutates               Kind = "mutates"
	KindReturns               Kind = "returns"
	KindPreconditionCandidate Kind = "precondition_candidate"
)

// Fact is a single static observation about an element's implementation.
// Facts are derived, read-only artifacts recomputed per run.
type Fact struct {
	Kind        Kind
	Description string

	// Trigger is the raise trigger condition, described in terms of the
	// parameter or attribute it inspects.
	Trigger string

	// Subject is the attribute or parameter name, when applicable.
	Subject string

	// Exception is the raised error name for raises facts.
	Exception string

	// Unconditional marks a raise with no enclosing conditional — an
	// always-raising path, worth flagging for review.
	Unconditional bool

	// Shape is the returned expression shape for returns facts.
	Shape element.ExprShape
}

// Extract runs the three scans over an element's body and returns the
// ordered fact sequence. It never fails: an unreadable body (nil) yields
// an empty sequence and ok=false so the caller can record a diagnostic and
// still produce documentation best-effort.
func Extract(el *element.Element) (out []Fact, ok bool) {
	if el.Body == nil {
		return nil, false
	}

	x := &extractor{el: el}
	x.raiseScan(el.Body.Stmts, nil)
	x.mutationScan(el.Body.Stmts)
	x.returnScan(el.Body.Stmts)

	facts := make([]Fact, 0, len(x.raises)+len(x.mutates)+len(x.returns)+len(x.candidates))
	facts = append(facts, x.raises...)
	facts = append(facts, x.mutates...)
	facts = append(facts, x.returns...)
	facts = append(facts, x.candidates...)
	return facts, true
}

// Raises filters raises facts from a sequence.
func Raises(fs []Fact) []Fact {
	var out []Fact
	for _, f := range fs {
		if f.Kind == KindRaises {
			out = append(out, f)
		}
	}
	return out
}

// Mutations filters mutates facts from a sequence.
func Mutations(fs []Fact) []Fact {
	var out []Fact
	for _, f := range fs {
		if f.Kind == KindMutates {
			out = append(out, f)
		}
	}
	return out
}

// HasRaise reports whether any raises fact names the given exception.
func HasRaise(fs []Fact, exception string) bool {
	for _, f := range fs {
		if f.Kind == KindRaises && f.Exception == exception {
			return true
		}
	}
	return false
}

type extractor struct {
	el         *element.Element
	raises     []Fact
	mutates    []Fact
	returns    []Fact
	candidates []Fact

	mutated map[string]bool
}

// raiseScan walks the body tracking the nearest enclosing conditional.
// Every explicit raise becomes one raises fact; conditionally guarded
// absence checks on parameters additionally yield precondition candidates.
func (x *extractor) raiseScan(stmts []element.Stmt, enclosing *element.Cond) {
	for i := range stmts {
		s := &stmts[i]
		switch s.Kind {
		case element.StmtRaise:
			x.recordRaise(s, enclosing)
		case element.StmtIf:
			x.raiseScan(s.Then, s.Cond)
			// The else branch is guarded by the negation; the original
			// condition no longer encloses it.
			x.raiseScan(s.Else, negate(s.Cond))
		case element.StmtBlock:
			x.raiseScan(s.Body, enclosing)
		}
	}
}

func (x *extractor) recordRaise(s *element.Stmt, cond *element.Cond) {
	f := Fact{
		Kind:      KindRaises,
		Exception: s.Exception,
	}
	if cond == nil {
		// An always-raising path is almost always a bug; keep the fact and
		// let the caller decide what to do with the flag.
		f.Trigger = "unconditionally"
		f.Unconditional = true
		f.Description = fmt.Sprintf("raises %s unconditionally", s.Exception)
	} else {
		f.Trigger = describeCondition(x.el, cond)
		f.Subject = cond.Subject
		f.Description = fmt.Sprintf("raises %s when %s", s.Exception, f.Trigger)
	}
	x.raises = append(x.raises, f)

	// A guarded absence check on a declared parameter implies the caller
	// must provide it: a precondition candidate.
	if cond != nil && cond.AbsenceCheck && !cond.Negated && x.isParam(cond.Subject) {
		x.candidates = append(x.candidates, Fact{
			Kind:        KindPreconditionCandidate,
			Subject:     cond.Subject,
			Description: fmt.Sprintf("%s is provided", cond.Subject),
		})
	}
}

// mutationScan records one mutates fact per instance attribute, keeping the
// first write encountered when the same attribute is mutated on multiple
// paths.
func (x *extractor) mutationScan(stmts []element.Stmt) {
	if x.mutated == nil {
		x.mutated = make(map[string]bool)
	}
	for i := range stmts {
		s := &stmts[i]
		switch s.Kind {
		case element.StmtAssign:
			if !s.OnSelf || x.mutated[s.Target] {
				continue
			}
			x.mutated[s.Target] = true
			x.mutates = append(x.mutates, Fact{
				Kind:        KindMutates,
				Subject:     s.Target,
				Description: describeMutation(s),
			})
		case element.StmtIf:
			x.mutationScan(s.Then)
			x.mutationScan(s.Else)
		case element.StmtBlock:
			x.mutationScan(s.Body)
		}
	}
}

// returnScan records one returns fact per return statement, summarizing
// the returned expression's shape.
func (x *extractor) returnScan(stmts []element.Stmt) {
	for i := range stmts {
		s := &stmts[i]
		switch s.Kind {
		case element.StmtReturn:
			x.returns = append(x.returns, returnFact(s.Expr))
		case element.StmtIf:
			x.returnScan(s.Then)
			x.returnScan(s.Else)
		case element.StmtBlock:
			x.returnScan(s.Body)
		}
	}
}

func returnFact(expr *element.Expr) Fact {
	f := Fact{Kind: KindReturns}
	if expr == nil {
		f.Description = "returns without a value"
		return f
	}
	f.Shape = expr.Shape
	switch expr.Shape {
	case element.ShapeLiteral:
		f.Description = fmt.Sprintf("returns literal %s", expr.Text)
	case element.ShapeAttribute:
		f.Subject = strings.TrimPrefix(expr.Text, "self.")
		f.Description = fmt.Sprintf("returns attribute %s", expr.Text)
	case element.ShapeCall:
		f.Description = fmt.Sprintf("returns the result of %s", expr.Text)
	case element.ShapeName:
		f.Subject = expr.Text
		f.Description = fmt.Sprintf("returns %s", expr.Text)
	default:
		f.Description = fmt.Sprintf("returns computed value %s", expr.Text)
	}
	return f
}

func (x *extractor) isParam(name string) bool {
	for _, p := range x.el.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// describeCondition renders a trigger in terms of the parameter or
// attribute it inspects rather than the literal source condition where a
// clearer phrasing exists.
func describeCondition(el *element.Element, c *element.Cond) string {
	if c.AbsenceCheck {
		role := subjectRole(el, c.Subject)
		name := strings.TrimPrefix(c.Subject, "self.")
		if c.Negated {
			return fmt.Sprintf("%s %s is present", role, name)
		}
		return fmt.Sprintf("%s %s is absent", role, name)
	}
	if c.Negated && c.Text != "" {
		return fmt.Sprintf("not %s", c.Text)
	}
	return c.Text
}

func subjectRole(el *element.Element, subject string) string {
	if strings.HasPrefix(subject, "self.") {
		return "attribute"
	}
	for _, p := range el.Params {
		if p.Name == subject {
			return "argument"
		}
	}
	return "value"
}

// describeMutation phrases an attribute write for postcondition synthesis.
// Augmented arithmetic writes name the operand; anything else is reported
// as an update.
func describeMutation(s *element.Stmt) string {
	attr := "self." + s.Target
	op := s.AugOp
	operand := ""
	if s.Value != nil {
		operand = strings.TrimSpace(s.Value.Text)
	}

	// A full assignment of the form "self.x = self.x - amount" carries the
	// same meaning as "self.x -= amount"; recognize both lowerings.
	if op == "" && operand != "" {
		for _, candidate := range []string{"-", "+"} {
			prefix := attr + " " + candidate + " "
			if rest, ok := strings.CutPrefix(operand, prefix); ok {
				op = candidate + "="
				operand = strings.TrimSpace(rest)
				break
			}
		}
	}

	switch op {
	case "-=":
		if operand != "" {
			return fmt.Sprintf("%s reflects %s deducted", attr, operand)
		}
	case "+=":
		if operand != "" {
			return fmt.Sprintf("%s reflects %s added", attr, operand)
		}
	}
	if s.AugOp == "" && s.Value != nil && s.Value.Shape == element.ShapeName {
		return fmt.Sprintf("%s is set to %s", attr, s.Value.Text)
	}
	return fmt.Sprintf("%s is updated", attr)
}

func negate(c *element.Cond) *element.Cond {
	if c == nil {
		return nil
	}
	n := *c
	n.Negated = !c.Negated
	return &n
}
