// Package tokenproc resolves the token list of one statement into typed expression trees.
//
// ProcessTokens runs a fixed sequence of rewrite passes over the list: define
// substitution, parenthesis nesting, comma grouping, variable definitions, function
// calls, memory accesses, casts, identifiers, unary and binary operators, and finally
// bottom-up type assignment. Tokens the passes do not understand, such as labels or
// separators, are left in place for the caller to interpret.
package tokenproc

import (
	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/program"
)

// MaxDefineDepth limits how deeply defines may refer to other defines.
const MaxDefineDepth = 16

// Globals resolves module level names.
type Globals interface {
	FunctionsByName(name string) []token.Function
	VariableByName(name string) token.Variable
	DefineByName(name string) *program.Define
}

// Scope resolves and declares local variables of the function being compiled.
type Scope interface {
	LookupLocal(name string) *program.LocalVariable
	DeclareLocal(name string, dt *datatype.Type, line int) (*program.LocalVariable, error)
}

// Context is what a Processor resolves names against. Scope is nil outside of functions.
type Context struct {
	Globals Globals
	Scope   Scope
}

// Processor turns token lists into statements.
type Processor struct {
	ctx  Context
	line int
}

// New creates a Processor.
func New(ctx Context) *Processor {
	return &Processor{ctx: ctx}
}

// ProcessTokens resolves tokens and returns the resulting list. Every statement root is
// type checked against expected, which may be nil when any type is acceptable.
func (p *Processor) ProcessTokens(tokens []token.Token, line int, expected *datatype.Type) ([]token.Token, error) {
	p.line = line

	tokens, err := p.substituteDefines(tokens, 0)
	if err != nil {
		return nil, err
	}
	tokens, err = p.nestParentheses(tokens)
	if err != nil {
		return nil, err
	}
	tokens, err = p.resolve(tokens)
	if err != nil {
		return nil, err
	}

	for _, t := range tokens {
		if s, ok := t.(token.Statement); ok {
			if err := p.assignRootType(s, expected); err != nil {
				return nil, err
			}
		}
	}
	return tokens, nil
}

func (p *Processor) errorf(code diag.Code, format string, args ...any) *diag.Error {
	return diag.New(code, p.line, format, args...)
}

func (p *Processor) substituteDefines(tokens []token.Token, depth int) ([]token.Token, error) {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		id, ok := t.(*token.IdentifierToken)
		if !ok {
			out = append(out, t)
			continue
		}
		d := p.ctx.Globals.DefineByName(id.Name)
		if d == nil {
			out = append(out, t)
			continue
		}
		if depth >= MaxDefineDepth {
			return nil, p.errorf(diag.CodeMalformedStatement, "Define '%s' is nested too deeply", d.Name)
		}
		content, err := p.substituteDefines(d.Content, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, expandDefine(d, content)...)
	}
	return out, nil
}

// expandDefine copies the content of a define for one use site. Constants are copied
// since type assignment writes to them, and multi-token content is parenthesized.
func expandDefine(d *program.Define, content []token.Token) []token.Token {
	if len(content) == 1 {
		if c, ok := content[0].(*token.ConstantToken); ok {
			dt := c.Type()
			if d.DataType != nil && d.DataType.Class == datatype.ClassInteger && dt == datatype.ConstInt {
				dt = d.DataType
			}
			return []token.Token{token.NewConstant(c.Value, dt)}
		}
	}

	out := make([]token.Token, 0, len(content)+2)
	if len(content) > 1 {
		out = append(out, &token.OperatorToken{Op: token.OpParenthesisLeft})
	}
	for _, t := range content {
		if c, ok := t.(*token.ConstantToken); ok {
			t = token.NewConstant(c.Value, c.Type())
		}
		out = append(out, t)
	}
	if len(content) > 1 {
		out = append(out, &token.OperatorToken{Op: token.OpParenthesisRight})
	}
	return out
}

func (p *Processor) nestParentheses(tokens []token.Token) ([]token.Token, error) {
	type frame struct {
		group *token.ParenthesisToken
		outer []token.Token
	}
	var stack []frame
	current := make([]token.Token, 0, len(tokens))

	for _, t := range tokens {
		op, ok := t.(*token.OperatorToken)
		if !ok {
			current = append(current, t)
			continue
		}
		switch op.Op {
		case token.OpParenthesisLeft, token.OpBracketLeft:
			group := &token.ParenthesisToken{Bracket: op.Op == token.OpBracketLeft}
			stack = append(stack, frame{group: group, outer: current})
			current = nil
		case token.OpParenthesisRight, token.OpBracketRight:
			if len(stack) == 0 {
				return nil, p.errorf(diag.CodeMalformedStatement, "'%s' without matching opening parenthesis", op.Op)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.group.Bracket != (op.Op == token.OpBracketRight) {
				return nil, p.errorf(diag.CodeMalformedStatement, "Mismatched '%s'", op.Op)
			}
			top.group.Content = current
			current = append(top.outer, top.group)
		default:
			current = append(current, t)
		}
	}
	if len(stack) > 0 {
		return nil, p.errorf(diag.CodeMalformedStatement, "Parenthesis is not closed")
	}
	return current, nil
}

// resolve runs the rewrite passes on one level of the token tree, innermost groups first.
func (p *Processor) resolve(tokens []token.Token) ([]token.Token, error) {
	for _, t := range tokens {
		if group, ok := t.(*token.ParenthesisToken); ok {
			content, err := p.resolveGroup(group.Content)
			if err != nil {
				return nil, err
			}
			group.Content = content
		}
	}

	passes := []func([]token.Token) ([]token.Token, error){
		p.processVariableDefinitions,
		p.processFunctionCalls,
		p.processMemoryAccesses,
		p.processExplicitCasts,
		p.processIdentifiers,
		p.processUnaryOperations,
		p.processBinaryOperations,
	}
	var err error
	for _, pass := range passes {
		if tokens, err = pass(tokens); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// resolveGroup resolves the content of a parenthesis. Content with top level commas
// becomes a single CommaListToken whose items are resolved separately.
func (p *Processor) resolveGroup(content []token.Token) ([]token.Token, error) {
	var items [][]token.Token
	start := 0
	for i, t := range content {
		if token.IsOperator(t, token.OpComma) {
			items = append(items, content[start:i])
			start = i + 1
		}
	}
	if items == nil {
		return p.resolve(content)
	}
	items = append(items, content[start:])

	list := &token.CommaListToken{Items: make([][]token.Token, len(items))}
	for i, item := range items {
		if len(item) == 0 {
			return nil, p.errorf(diag.CodeMalformedStatement, "Empty element in comma separated list")
		}
		resolved, err := p.resolve(item)
		if err != nil {
			return nil, err
		}
		if _, err := p.single(resolved, "Element of comma separated list"); err != nil {
			return nil, err
		}
		list.Items[i] = resolved
	}
	return []token.Token{list}, nil
}

// single returns the statement a resolved token list consists of.
func (p *Processor) single(tokens []token.Token, what string) (token.Statement, error) {
	if len(tokens) != 1 {
		return nil, p.errorf(diag.CodeMalformedStatement, "%s must be a single expression", what)
	}
	s, ok := tokens[0].(token.Statement)
	if !ok {
		return nil, p.errorf(diag.CodeMalformedStatement, "%s is not an expression", what)
	}
	return s, nil
}
