package compiler

import (
	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/node"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/compiler/tokenproc"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/program"
)

// processGlobalDefinitions handles the top level of the tree. Function headers are
// replaced by Function nodes owning the following block; global and define lines are
// registered and removed. Pragmas seen since the last other node go to the next function.
func (c *Compiler) processGlobalDefinitions(root *node.Block) ([]*node.Function, error) {
	var functions []*node.Function
	var pragmas []string
	var consumed []int

	for i := 0; i < len(root.Nodes); i++ {
		switch n := root.Nodes[i].(type) {
		case *node.Pragma:
			pragmas = append(pragmas, n.Content)
			continue

		case *node.Block:
			return nil, diag.New(diag.CodeMalformedStatement, n.Line(), "Block without function header")

		case *node.Undefined:
			switch {
			case token.IsKeyword(n.Tokens[0], token.KeywordFunction):
				if i+1 >= len(root.Nodes) {
					return nil, diag.New(diag.CodeMissingFunctionBody, n.Line(), "Function definition as last node is not allowed")
				}
				body, ok := root.Nodes[i+1].(*node.Block)
				if !ok {
					return nil, diag.New(diag.CodeMissingFunctionBody, n.Line(), "Expected block node after function header")
				}
				fn, err := c.processFunctionHeader(n.Tokens, n.Line())
				if err != nil {
					return nil, err
				}
				fn.Pragmas = pragmas

				fnNode := &node.Function{Pos: n.Pos, Function: fn, Content: body}
				root.Replace(i, fnNode)
				functions = append(functions, fnNode)
				consumed = append(consumed, i+1)
				i++

			case token.IsKeyword(n.Tokens[0], token.KeywordGlobal):
				if err := c.processGlobalVariable(n.Tokens, n.Line()); err != nil {
					return nil, err
				}
				consumed = append(consumed, i)

			case token.IsKeyword(n.Tokens[0], token.KeywordDefine):
				if err := c.processDefine(n.Tokens, n.Line()); err != nil {
					return nil, err
				}
				consumed = append(consumed, i)

			default:
				return nil, diag.New(diag.CodeMalformedStatement, n.Line(),
					"Only function, global and define definitions are allowed outside of functions")
			}
		}
		pragmas = nil
	}

	root.EraseIndices(consumed)
	return functions, nil
}

// processFunctionHeader handles "function <type> <name>(<type> <id>, ...)".
func (c *Compiler) processFunctionHeader(tokens []token.Token, line int) (*program.ScriptFunction, error) {
	if len(tokens) < 2 {
		return nil, diag.New(diag.CodeMalformedHeader, line, "Expected a typename after 'function' keyword")
	}
	returnType, ok := tokens[1].(*token.VarTypeToken)
	if !ok {
		return nil, diag.New(diag.CodeMalformedHeader, line, "Expected a typename after 'function' keyword")
	}
	if len(tokens) < 3 {
		return nil, diag.New(diag.CodeMalformedHeader, line, "Expected function name after return type")
	}
	name, ok := tokens[2].(*token.IdentifierToken)
	if !ok {
		return nil, diag.New(diag.CodeMalformedHeader, line, "Expected function name after return type")
	}
	if len(tokens) < 5 || !token.IsOperator(tokens[3], token.OpParenthesisLeft) || !token.IsOperator(tokens[len(tokens)-1], token.OpParenthesisRight) {
		return nil, diag.New(diag.CodeMalformedHeader, line, "Expected parameter list in parentheses after function name")
	}

	params, err := parseParameters(tokens[4:len(tokens)-1], line)
	if err != nil {
		return nil, err
	}

	fn := c.module.AddScriptFunction(name.Name, returnType.DataType, params)
	for _, p := range params {
		fn.AddLocalVariable(p.Name, p.Type, line)
	}
	if err := c.lookup.RegisterFunction(fn); err != nil {
		return nil, atLine(err, line)
	}

	filename, lineInFile := c.translation.Translate(line)
	fn.SourceFilename = filename
	fn.SourceBaseLineOffset = line - lineInFile
	fn.LineNumber = line
	return fn, nil
}

func parseParameters(tokens []token.Token, line int) ([]program.Parameter, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var params []program.Parameter
	for start := 0; start <= len(tokens); {
		end := start
		for end < len(tokens) && !token.IsOperator(tokens[end], token.OpComma) {
			end++
		}
		if end-start != 2 {
			return nil, diag.New(diag.CodeMalformedHeader, line, "Parameters must be given as '<type> <name>'")
		}
		vt, ok1 := tokens[start].(*token.VarTypeToken)
		id, ok2 := tokens[start+1].(*token.IdentifierToken)
		if !ok1 || !ok2 {
			return nil, diag.New(diag.CodeMalformedHeader, line, "Parameters must be given as '<type> <name>'")
		}
		if vt.DataType.IsVoid() {
			return nil, diag.New(diag.CodeMalformedHeader, line, "Parameter '%s' cannot be of type void", id.Name)
		}
		for _, p := range params {
			if p.Name == id.Name {
				return nil, diag.New(diag.CodeDuplicateParameterName, line, "Parameter name already used: '%s'", id.Name)
			}
		}
		params = append(params, program.Parameter{Name: id.Name, Type: vt.DataType})
		start = end + 1
	}
	return params, nil
}

// processGlobalVariable handles "global <type> <name> [= <constant>]".
func (c *Compiler) processGlobalVariable(tokens []token.Token, line int) error {
	if len(tokens) < 3 {
		return diag.New(diag.CodeMalformedHeader, line, "Expected type and name after 'global' keyword")
	}
	vt, ok := tokens[1].(*token.VarTypeToken)
	if !ok {
		return diag.New(diag.CodeMalformedHeader, line, "Expected a typename after 'global' keyword")
	}
	if vt.DataType.IsVoid() {
		return diag.New(diag.CodeMalformedHeader, line, "Global variable cannot be of type void")
	}
	id, ok := tokens[2].(*token.IdentifierToken)
	if !ok {
		return diag.New(diag.CodeMalformedHeader, line, "Expected an identifier after type of global variable")
	}

	var initial uint64
	if len(tokens) > 3 {
		if !token.IsOperator(tokens[3], token.OpAssign) || len(tokens) == 4 {
			return diag.New(diag.CodeMalformedHeader, line, "Expected '= <constant>' after name of global variable")
		}
		value, err := c.constantValue(tokens[4:], line, vt.DataType)
		if err != nil {
			return err
		}
		initial = vt.DataType.Mask(value)
	}

	v := c.module.AddGlobalVariable(id.Name, vt.DataType)
	v.InitialValue = initial
	if err := c.lookup.RegisterVariable(v); err != nil {
		return atLine(err, line)
	}
	return nil
}

// constantValue evaluates tokens that must reduce to a single constant, such as
// "-1" or the name of a define.
func (c *Compiler) constantValue(tokens []token.Token, line int, dt *datatype.Type) (uint64, error) {
	processed, err := tokenproc.New(tokenproc.Context{Globals: c.lookup}).ProcessTokens(tokens, line, dt)
	if err != nil {
		return 0, err
	}
	if len(processed) == 1 {
		if constant, ok := processed[0].(*token.ConstantToken); ok {
			return constant.Value, nil
		}
	}
	return 0, diag.New(diag.CodeMalformedHeader, line, "Initial value of global variable must be a constant")
}

// processDefine handles "define [<type>] <name> = <tokens>". Without an explicit type
// the content has to start with one, as in "define SCORE = u16[0xffff0010]".
func (c *Compiler) processDefine(tokens []token.Token, line int) error {
	rest := tokens[1:]
	var dt *datatype.Type
	if len(rest) > 0 {
		if vt, ok := rest[0].(*token.VarTypeToken); ok {
			dt = vt.DataType
			rest = rest[1:]
		}
	}
	if len(rest) < 3 || !token.IsOperator(rest[1], token.OpAssign) {
		return diag.New(diag.CodeMalformedHeader, line, "Expected '<name> = <content>' after 'define' keyword")
	}
	id, ok := rest[0].(*token.IdentifierToken)
	if !ok {
		return diag.New(diag.CodeMalformedHeader, line, "Expected an identifier as name of define")
	}
	content := rest[2:]

	if dt == nil {
		vt, ok := content[0].(*token.VarTypeToken)
		if !ok {
			return diag.New(diag.CodeUndeterminedType, line, "Data type of define '%s' could not be determined", id.Name)
		}
		dt = vt.DataType
	}

	d := c.module.AddDefine(id.Name, dt)
	d.Content = content
	if err := c.lookup.RegisterDefine(d); err != nil {
		return atLine(err, line)
	}
	return nil
}
