package tokenproc

import (
	"slices"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
)

func newVariable(v token.Variable) *token.VariableToken {
	t := &token.VariableToken{Variable: v}
	t.DataType = v.DataType()
	return t
}

func newCall(fn token.Function, args []token.Statement) *token.FunctionCallToken {
	t := &token.FunctionCallToken{Function: fn, Args: args}
	t.DataType = fn.ReturnType()
	return t
}

// processVariableDefinitions turns "u32 x" into a new local variable.
func (p *Processor) processVariableDefinitions(tokens []token.Token) ([]token.Token, error) {
	for i := 0; i+1 < len(tokens); i++ {
		vt, ok := tokens[i].(*token.VarTypeToken)
		if !ok {
			continue
		}
		id, ok := tokens[i+1].(*token.IdentifierToken)
		if !ok {
			continue
		}
		if p.ctx.Scope == nil {
			return nil, p.errorf(diag.CodeMalformedStatement, "Variable definition of '%s' outside of a function", id.Name)
		}
		if vt.DataType.IsVoid() {
			return nil, p.errorf(diag.CodeTypeMismatch, "Variable '%s' cannot be of type void", id.Name)
		}
		v, err := p.ctx.Scope.DeclareLocal(id.Name, vt.DataType, p.line)
		if err != nil {
			return nil, err
		}
		tokens[i] = newVariable(v)
		tokens = slices.Delete(tokens, i+1, i+2)
	}
	return tokens, nil
}

// processFunctionCalls turns "name(args)" into a call of the matching overload.
func (p *Processor) processFunctionCalls(tokens []token.Token) ([]token.Token, error) {
	for i := 0; i+1 < len(tokens); i++ {
		id, ok := tokens[i].(*token.IdentifierToken)
		if !ok {
			continue
		}
		group, ok := tokens[i+1].(*token.ParenthesisToken)
		if !ok || group.Bracket {
			continue
		}

		args, err := p.arguments(group)
		if err != nil {
			return nil, err
		}
		candidates := p.ctx.Globals.FunctionsByName(id.Name)
		if len(candidates) == 0 {
			return nil, p.errorf(diag.CodeUnknownIdentifier, "Unknown function '%s'", id.Name)
		}
		fn := selectOverload(candidates, args)
		if fn == nil {
			return nil, p.errorf(diag.CodeUnknownIdentifier, "No function '%s' takes %d arguments", id.Name, len(args))
		}
		tokens[i] = newCall(fn, args)
		tokens = slices.Delete(tokens, i+1, i+2)
	}
	return tokens, nil
}

func (p *Processor) arguments(group *token.ParenthesisToken) ([]token.Statement, error) {
	if len(group.Content) == 0 {
		return nil, nil
	}
	if list, ok := group.Content[0].(*token.CommaListToken); ok && len(group.Content) == 1 {
		args := make([]token.Statement, len(list.Items))
		for i, item := range list.Items {
			args[i] = item[0].(token.Statement)
		}
		return args, nil
	}
	arg, err := p.single(group.Content, "Function argument")
	if err != nil {
		return nil, err
	}
	return []token.Statement{arg}, nil
}

// selectOverload picks among functions with a matching parameter count, preferring one
// whose parameter types accept the arguments' already known types.
func selectOverload(candidates []token.Function, args []token.Statement) token.Function {
	var fallback token.Function
	for _, fn := range candidates {
		params := fn.ParameterTypes()
		if len(params) != len(args) {
			continue
		}
		if fallback == nil {
			fallback = fn
		}
		matches := true
		for i, arg := range args {
			if t := arg.Type(); t != nil && !datatype.Compatible(t, params[i]) {
				matches = false
				break
			}
		}
		if matches {
			return fn
		}
	}
	return fallback
}

// processMemoryAccesses turns "u16[address]" into a memory access.
func (p *Processor) processMemoryAccesses(tokens []token.Token) ([]token.Token, error) {
	for i := 0; i+1 < len(tokens); i++ {
		vt, ok := tokens[i].(*token.VarTypeToken)
		if !ok {
			continue
		}
		group, ok := tokens[i+1].(*token.ParenthesisToken)
		if !ok || !group.Bracket {
			continue
		}
		if vt.DataType.Class != datatype.ClassInteger {
			return nil, p.errorf(diag.CodeTypeMismatch, "Memory access of type %s is not possible", vt.DataType)
		}
		address, err := p.single(group.Content, "Memory address")
		if err != nil {
			return nil, err
		}
		access := &token.MemoryAccessToken{Address: address}
		access.DataType = vt.DataType
		tokens[i] = access
		tokens = slices.Delete(tokens, i+1, i+2)
	}
	return tokens, nil
}

// processExplicitCasts turns "s16(value)" into a value cast.
func (p *Processor) processExplicitCasts(tokens []token.Token) ([]token.Token, error) {
	for i := 0; i+1 < len(tokens); i++ {
		vt, ok := tokens[i].(*token.VarTypeToken)
		if !ok {
			continue
		}
		group, ok := tokens[i+1].(*token.ParenthesisToken)
		if !ok || group.Bracket {
			continue
		}
		arg, err := p.single(group.Content, "Cast argument")
		if err != nil {
			return nil, err
		}
		cast := &token.ValueCastToken{Argument: arg}
		cast.DataType = vt.DataType
		tokens[i] = cast
		tokens = slices.Delete(tokens, i+1, i+2)
	}
	return tokens, nil
}

// processIdentifiers resolves the remaining names and unwraps plain parentheses. Any
// keyword or data type still left cannot be part of an expression.
func (p *Processor) processIdentifiers(tokens []token.Token) ([]token.Token, error) {
	for i, t := range tokens {
		switch t := t.(type) {
		case *token.IdentifierToken:
			s, err := p.resolveIdentifier(t.Name)
			if err != nil {
				return nil, err
			}
			tokens[i] = s
		case *token.ParenthesisToken:
			if t.Bracket {
				return nil, p.errorf(diag.CodeMalformedStatement, "Unexpected brackets")
			}
			if len(t.Content) == 0 {
				return nil, p.errorf(diag.CodeMalformedStatement, "Empty parentheses")
			}
			if _, isList := t.Content[0].(*token.CommaListToken); isList {
				return nil, p.errorf(diag.CodeMalformedStatement, "Unexpected comma separated list")
			}
			s, err := p.single(t.Content, "Content of parentheses")
			if err != nil {
				return nil, err
			}
			tokens[i] = s
		case *token.KeywordToken:
			return nil, p.errorf(diag.CodeMalformedStatement, "Unexpected keyword '%s'", t.Keyword)
		case *token.VarTypeToken:
			return nil, p.errorf(diag.CodeMalformedStatement, "Unexpected data type '%s'", t.DataType)
		}
	}
	return tokens, nil
}

// resolveIdentifier looks a name up as local variable, then global or external
// variable, then as a function without parameters.
func (p *Processor) resolveIdentifier(name string) (token.Statement, error) {
	if p.ctx.Scope != nil {
		if v := p.ctx.Scope.LookupLocal(name); v != nil {
			return newVariable(v), nil
		}
	}
	if v := p.ctx.Globals.VariableByName(name); v != nil {
		return newVariable(v), nil
	}
	for _, fn := range p.ctx.Globals.FunctionsByName(name) {
		if len(fn.ParameterTypes()) == 0 {
			return newCall(fn, nil), nil
		}
	}
	return nil, p.errorf(diag.CodeUnknownIdentifier, "Unknown identifier '%s'", name)
}
