// Package python lowers Python source files into the normalized element
// tree using tree-sitter. Docstrings become DocText, signatures become
// Params and Attributes, and function bodies are lowered into the
// statement form the fact extractor reads.
package python

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/frontend"
)

func init() {
	frontend.DefaultRegistry.Register("python", []string{".py"},
		func(root string) frontend.FileParser {
			return NewParser(root)
		})
}

// Parser lowers Python files rooted at a source directory.
type Parser struct {
	root   string
	parser *sitter.Parser
}

// NewParser creates a Python front end for the given source root.
func NewParser(root string) *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{root: root, parser: p}
}

// ParseFile lowers a single Python file into a module element tree.
func (p *Parser) ParseFile(ctx context.Context, filePath string) (*frontend.ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	relPath, err := filepath.Rel(p.root, filePath)
	if err != nil {
		relPath = filePath
	}

	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	moduleName := moduleNameFromPath(relPath)

	module := &element.Element{
		Kind:          element.KindModule,
		Name:          moduleName,
		QualifiedPath: moduleName,
		DocText:       p.bodyDocstring(rootNode, content),
		Path:          relPath,
		StartLine:     1,
		EndLine:       int(rootNode.EndPoint().Row) + 1,
		Language:      "python",
	}

	for i := 0; i < int(rootNode.NamedChildCount()); i++ {
		child := rootNode.NamedChild(i)
		if el := p.lowerDefinition(child, content, moduleName, relPath, false); el != nil {
			module.Children = append(module.Children, el)
		}
	}

	return &frontend.ParseResult{
		Path:   relPath,
		Hash:   frontend.ComputeHash(content),
		Module: module,
	}, nil
}

// ParseDirectory lowers every Python file under dir, skipping virtual envs
// and caches. Files that fail to read or parse are skipped.
func (p *Parser) ParseDirectory(ctx context.Context, dir string) ([]*frontend.ParseResult, error) {
	var results []*frontend.ParseResult

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() || !strings.HasSuffix(path, ".py") {
			return nil
		}
		relPath, _ := filepath.Rel(p.root, path)
		if shouldSkipPath(relPath) {
			return nil
		}

		result, err := p.ParseFile(ctx, path)
		if err != nil {
			return nil
		}
		results = append(results, result)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return results, nil
}

func shouldSkipPath(relPath string) bool {
	parts := strings.Split(relPath, string(filepath.Separator))
	for _, part := range parts {
		if strings.HasPrefix(part, ".") {
			return true
		}
		switch part {
		case "venv", "env", "__pycache__", "node_modules", "vendor",
			"dist", "build", "site-packages":
			return true
		}
	}
	return false
}

func moduleNameFromPath(relPath string) string {
	mod := strings.TrimSuffix(relPath, ".py")
	mod = strings.ReplaceAll(mod, string(filepath.Separator), ".")
	return strings.TrimSuffix(mod, ".__init__")
}

// lowerDefinition lowers one top-level or class-body definition node.
// Decorated definitions are unwrapped first.
func (p *Parser) lowerDefinition(node *sitter.Node, content []byte, qualifier, relPath string, inClass bool) *element.Element {
	if node.Type() == "decorated_definition" {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "class_definition", "function_definition":
				return p.lowerDefinition(child, content, qualifier, relPath, inClass)
			}
		}
		return nil
	}

	switch node.Type() {
	case "class_definition":
		return p.lowerClass(node, content, qualifier, relPath)
	case "function_definition":
		return p.lowerFunction(node, content, qualifier, relPath, inClass)
	}
	return nil
}

func (p *Parser) lowerClass(node *sitter.Node, content []byte, qualifier, relPath string) *element.Element {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := text(nameNode, content)

	el := &element.Element{
		Kind:          element.KindClass,
		Name:          name,
		QualifiedPath: qualifier + "." + name,
		Path:          relPath,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Language:      "python",
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return el
	}
	el.DocText = p.bodyDocstring(body, content)

	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "expression_statement":
			// Class-level annotated assignments declare attributes.
			if attr, ok := annotatedAttribute(child, content); ok {
				el.Attributes = append(el.Attributes, attr)
			}
		case "function_definition", "decorated_definition":
			if method := p.lowerDefinition(child, content, el.QualifiedPath, relPath, true); method != nil {
				el.Children = append(el.Children, method)
			}
		}
	}

	// Attributes first assigned in __init__ complete the class signature.
	for _, method := range el.Children {
		if method.Name == "__init__" {
			p.collectInitAttributes(el, method)
			break
		}
	}

	return el
}

// annotatedAttribute recognizes "name: Type" or "name: Type = value" at
// class-body level.
func annotatedAttribute(node *sitter.Node, content []byte) (element.Attribute, bool) {
	if node.NamedChildCount() == 0 {
		return element.Attribute{}, false
	}
	assign := node.NamedChild(0)
	if assign.Type() != "assignment" {
		return element.Attribute{}, false
	}
	left := assign.ChildByFieldName("left")
	typNode := assign.ChildByFieldName("type")
	if left == nil || typNode == nil || left.Type() != "identifier" {
		return element.Attribute{}, false
	}
	return element.Attribute{
		Name: text(left, content),
		Type: text(typNode, content),
	}, true
}

// collectInitAttributes folds self assignments from __init__ into the
// class signature. The type comes from a matching parameter annotation
// when the assigned value is that parameter.
func (p *Parser) collectInitAttributes(class, init *element.Element) {
	if init.Body == nil {
		return
	}
	have := make(map[string]bool, len(class.Attributes))
	for _, a := range class.Attributes {
		have[a.Name] = true
	}

	for _, stmt := range init.Body.Stmts {
		if stmt.Kind != element.StmtAssign || !stmt.OnSelf || have[stmt.Target] {
			continue
		}
		have[stmt.Target] = true

		typ := ""
		if stmt.Value != nil && stmt.Value.Shape == element.ShapeName {
			typ = init.ParamType(stmt.Value.Text)
		}
		class.Attributes = append(class.Attributes, element.Attribute{
			Name: stmt.Target,
			Type: typ,
		})
	}
}

func (p *Parser) lowerFunction(node *sitter.Node, content []byte, qualifier, relPath string, isMethod bool) *element.Element {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := text(nameNode, content)

	kind := element.KindFunction
	if isMethod {
		kind = element.KindMethod
	}

	el := &element.Element{
		Kind:          kind,
		Name:          name,
		QualifiedPath: qualifier + "." + name,
		Path:          relPath,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Language:      "python",
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		el.Params = lowerParams(params, content)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		el.ReturnType = text(ret, content)
	}

	if body := node.ChildByFieldName("body"); body != nil {
		el.DocText = p.bodyDocstring(body, content)
		el.Body = &element.Body{Stmts: p.lowerStmts(body, content, true)}
	}

	return el
}

func lowerParams(node *sitter.Node, content []byte) []element.Param {
	var params []element.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			params = append(params, element.Param{Name: text(child, content)})
		case "typed_parameter":
			p := element.Param{}
			if typ := child.ChildByFieldName("type"); typ != nil {
				p.Type = text(typ, content)
			}
			// The name is the first non-type named child.
			for j := 0; j < int(child.NamedChildCount()); j++ {
				c := child.NamedChild(j)
				if c.Type() == "identifier" {
					p.Name = text(c, content)
					break
				}
			}
			if p.Name != "" {
				params = append(params, p)
			}
		case "default_parameter":
			p := element.Param{HasDefault: true}
			if n := child.ChildByFieldName("name"); n != nil {
				p.Name = text(n, content)
			}
			if p.Name != "" {
				params = append(params, p)
			}
		case "typed_default_parameter":
			p := element.Param{HasDefault: true}
			if n := child.ChildByFieldName("name"); n != nil {
				p.Name = text(n, content)
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				p.Type = text(typ, content)
			}
			if p.Name != "" {
				params = append(params, p)
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			params = append(params, element.Param{Name: text(child, content)})
		}
	}
	return params
}

// lowerStmts lowers a statement block. skipDocstring drops a leading
// string expression, which is the docstring, not code.
func (p *Parser) lowerStmts(block *sitter.Node, content []byte, skipDocstring bool) []element.Stmt {
	var stmts []element.Stmt
	for i := 0; i < int(block.NamedChildCount()); i++ {
		child := block.NamedChild(i)
		if i == 0 && skipDocstring && isDocstringStmt(child) {
			continue
		}
		if s, ok := p.lowerStmt(child, content); ok {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func isDocstringStmt(node *sitter.Node) bool {
	return node.Type() == "expression_statement" &&
		node.NamedChildCount() > 0 &&
		node.NamedChild(0).Type() == "string"
}

func (p *Parser) lowerStmt(node *sitter.Node, content []byte) (element.Stmt, bool) {
	switch node.Type() {
	case "if_statement":
		return p.lowerIf(node, content), true

	case "raise_statement":
		return element.Stmt{
			Kind:      element.StmtRaise,
			Exception: exceptionName(node, content),
		}, true

	case "return_statement":
		s := element.Stmt{Kind: element.StmtReturn}
		if node.NamedChildCount() > 0 {
			s.Expr = lowerExpr(node.NamedChild(0), content)
		}
		return s, true

	case "expression_statement":
		if node.NamedChildCount() == 0 {
			return element.Stmt{}, false
		}
		return p.lowerAssignment(node.NamedChild(0), content)

	case "for_statement", "while_statement", "with_statement", "try_statement":
		// Grouped without finer shape; nested raises and writes stay visible.
		var body []element.Stmt
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "block" {
				body = append(body, p.lowerStmts(child, content, false)...)
			}
			// except and finally clauses wrap their own blocks.
			if child.Type() == "except_clause" || child.Type() == "finally_clause" {
				for j := 0; j < int(child.NamedChildCount()); j++ {
					if inner := child.NamedChild(j); inner.Type() == "block" {
						body = append(body, p.lowerStmts(inner, content, false)...)
					}
				}
			}
		}
		return element.Stmt{Kind: element.StmtBlock, Body: body}, true
	}
	return element.Stmt{}, false
}

func (p *Parser) lowerIf(node *sitter.Node, content []byte) element.Stmt {
	s := element.Stmt{Kind: element.StmtIf}

	if cond := node.ChildByFieldName("condition"); cond != nil {
		s.Cond = lowerCond(cond, content)
	}
	if cons := node.ChildByFieldName("consequence"); cons != nil {
		s.Then = p.lowerStmts(cons, content, false)
	}

	// elif chains become nested ifs in the else branch.
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "elif_clause":
			nested := element.Stmt{Kind: element.StmtIf}
			if cond := child.ChildByFieldName("condition"); cond != nil {
				nested.Cond = lowerCond(cond, content)
			}
			if cons := child.ChildByFieldName("consequence"); cons != nil {
				nested.Then = p.lowerStmts(cons, content, false)
			}
			s.Else = append(s.Else, nested)
		case "else_clause":
			if body := child.ChildByFieldName("body"); body != nil {
				s.Else = append(s.Else, p.lowerStmts(body, content, false)...)
			}
		}
	}
	return s
}

// lowerCond normalizes a test expression: None and falsiness tests become
// absence checks described by their subject.
func lowerCond(node *sitter.Node, content []byte) *element.Cond {
	raw := strings.TrimSpace(text(node, content))
	c := &element.Cond{Text: raw}

	switch node.Type() {
	case "parenthesized_expression":
		if node.NamedChildCount() > 0 {
			inner := lowerCond(node.NamedChild(0), content)
			inner.Text = raw
			return inner
		}

	case "comparison_operator":
		// "x is None" / "x is not None"
		if node.NamedChildCount() == 2 {
			left := node.NamedChild(0)
			right := node.NamedChild(1)
			if right.Type() == "none" {
				c.Subject = text(left, content)
				c.AbsenceCheck = true
				c.Negated = strings.Contains(raw, " is not ")
				return c
			}
			// Subject of a plain comparison, when the left side is simple.
			if left.Type() == "identifier" || left.Type() == "attribute" {
				c.Subject = text(left, content)
			}
		}

	case "not_operator":
		if node.NamedChildCount() == 1 {
			operand := node.NamedChild(0)
			switch operand.Type() {
			case "identifier", "attribute":
				// "not x" is a falsiness test: absent or empty.
				c.Subject = text(operand, content)
				c.AbsenceCheck = true
				return c
			}
			inner := lowerCond(operand, content)
			inner.Text = raw
			inner.Negated = !inner.Negated
			return inner
		}

	case "identifier", "attribute":
		// "if x:" presence test reads as the negation of absence.
		c.Subject = raw
		c.AbsenceCheck = true
		c.Negated = true
		return c
	}

	return c
}

// exceptionName extracts the raised error class name from a raise statement.
func exceptionName(node *sitter.Node, content []byte) string {
	if node.NamedChildCount() == 0 {
		return ""
	}
	expr := node.NamedChild(0)
	switch expr.Type() {
	case "call":
		if fn := expr.ChildByFieldName("function"); fn != nil {
			return text(fn, content)
		}
	case "identifier", "attribute":
		return text(expr, content)
	}
	return strings.TrimSpace(text(expr, content))
}

// lowerAssignment lowers assignment and augmented assignment expressions.
// Anything else inside an expression statement is discarded.
func (p *Parser) lowerAssignment(node *sitter.Node, content []byte) (element.Stmt, bool) {
	var left, right *sitter.Node
	augOp := ""

	switch node.Type() {
	case "assignment":
		left = node.ChildByFieldName("left")
		right = node.ChildByFieldName("right")
	case "augmented_assignment":
		left = node.ChildByFieldName("left")
		right = node.ChildByFieldName("right")
		if op := node.ChildByFieldName("operator"); op != nil {
			augOp = text(op, content)
		}
	default:
		return element.Stmt{}, false
	}
	if left == nil {
		return element.Stmt{}, false
	}

	s := element.Stmt{Kind: element.StmtAssign, AugOp: augOp}
	switch left.Type() {
	case "identifier":
		s.Target = text(left, content)
	case "attribute":
		full := text(left, content)
		if rest, ok := strings.CutPrefix(full, "self."); ok {
			s.Target = rest
			s.OnSelf = true
		} else {
			s.Target = full
		}
	default:
		return element.Stmt{}, false
	}

	if right != nil {
		s.Value = lowerExpr(right, content)
	}
	return s, true
}

// lowerExpr summarizes an expression as a shape plus its source text.
func lowerExpr(node *sitter.Node, content []byte) *element.Expr {
	raw := strings.TrimSpace(text(node, content))
	e := &element.Expr{Text: raw}

	switch node.Type() {
	case "string", "integer", "float", "true", "false", "none":
		e.Shape = element.ShapeLiteral
	case "attribute":
		e.Shape = element.ShapeAttribute
	case "call":
		e.Shape = element.ShapeCall
	case "identifier":
		e.Shape = element.ShapeName
	case "parenthesized_expression":
		if node.NamedChildCount() > 0 {
			inner := lowerExpr(node.NamedChild(0), content)
			inner.Text = raw
			return inner
		}
		e.Shape = element.ShapeComputed
	default:
		e.Shape = element.ShapeComputed
	}
	return e
}

// bodyDocstring extracts the leading string of a block, the docstring.
func (p *Parser) bodyDocstring(body *sitter.Node, content []byte) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() == "expression_statement" && first.NamedChildCount() > 0 {
		expr := first.NamedChild(0)
		if expr.Type() == "string" {
			return stringContent(text(expr, content))
		}
	}
	return ""
}

// stringContent strips quoting from a string literal.
func stringContent(raw string) string {
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			raw = strings.TrimPrefix(raw, q)
			raw = strings.TrimSuffix(raw, q)
			break
		}
	}
	return dedent(strings.TrimSpace(raw))
}

// dedent removes the common leading indentation of continuation lines so a
// docstring indented to match its def reads as column-zero text.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}

	common := -1
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if common == -1 || indent < common {
			common = indent
		}
	}
	if common <= 0 {
		return s
	}
	for i, line := range lines[1:] {
		if len(line) >= common {
			lines[i+1] = line[common:]
		} else {
			lines[i+1] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

func text(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}
