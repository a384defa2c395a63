package compiler

import (
	"github.com/zurustar/lemonscript/pkg/compiler/codegen"
	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/node"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/compiler/tokenproc"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/program"
)

// processFunctionBody classifies the statements of a function and generates its opcodes.
func (c *Compiler) processFunctionBody(fnNode *node.Function) error {
	fn := fnNode.Function
	scope := NewScopeContext(fn)
	if err := c.processBlock(fnNode.Content, fn, scope); err != nil {
		return err
	}

	fc := codegen.New(fn, codegen.Config{ExternalAddressType: c.options.ExternalAddressType})
	fc.ProcessParameters()
	return fc.BuildOpcodesForFunction(fnNode.Content)
}

// processBlock replaces the undefined nodes of a block, recursing into nested blocks,
// then merges control flow headers with the statements they own.
func (c *Compiler) processBlock(block *node.Block, fn *program.ScriptFunction, scope *ScopeContext) error {
	scope.BeginScope()

	// control flow headers of this block still waiting for their body
	var pending []node.Node
	for i := 0; i < len(block.Nodes); i++ {
		switch n := block.Nodes[i].(type) {
		case *node.Block:
			if err := c.processBlock(n, fn, scope); err != nil {
				return err
			}

		case *node.Undefined:
			classified, err := c.processUndefined(n, fn, scope)
			if err != nil {
				return err
			}
			block.Replace(i, classified)

			// "else if ..." and the like: the rest of the line is the next statement
			if _, isElse := classified.(*node.Else); isElse && len(n.Tokens) > 1 {
				block.Insert(i+1, &node.Undefined{Pos: n.Pos, Tokens: n.Tokens[1:]})
			}
		}

		switch n := block.Nodes[i].(type) {
		case *node.If, *node.While, *node.For:
			pending = append(pending, n)
		case *node.Else:
			if len(pending) > 0 {
				if _, isIf := pending[len(pending)-1].(*node.If); isIf {
					pending = pending[:len(pending)-1]
				}
			}
			pending = append(pending, n)
		case *node.Pragma:
		default:
			pending = completeStatement(block, i, pending, scope)
		}
	}

	if err := mergeControlFlow(block); err != nil {
		return err
	}
	scope.EndScope()
	return nil
}

// completeStatement is called for the statement at index. It completes the innermost
// pending header, which in turn completes the one before it, and so on. An if stops
// the chain when an else line follows, and a completed for closes its header scope.
func completeStatement(block *node.Block, index int, pending []node.Node, scope *ScopeContext) []node.Node {
	for len(pending) > 0 {
		top := pending[len(pending)-1]
		if _, isIf := top.(*node.If); isIf && followedByElse(block, index) {
			break
		}
		pending = pending[:len(pending)-1]
		if _, isFor := top.(*node.For); isFor {
			scope.StatementCompleted()
		}
	}
	return pending
}

func followedByElse(block *node.Block, index int) bool {
	if index+1 >= len(block.Nodes) {
		return false
	}
	switch next := block.Nodes[index+1].(type) {
	case *node.Else:
		return true
	case *node.Undefined:
		return token.IsKeyword(next.Tokens[0], token.KeywordElse)
	}
	return false
}

func (c *Compiler) processTokens(tokens []token.Token, line int, scope *ScopeContext, expected *datatype.Type) ([]token.Token, error) {
	p := tokenproc.New(tokenproc.Context{Globals: c.lookup, Scope: scope})
	return p.ProcessTokens(tokens, line, expected)
}

// processUndefined determines the kind of statement a line is.
func (c *Compiler) processUndefined(n *node.Undefined, fn *program.ScriptFunction, scope *ScopeContext) (node.Node, error) {
	line := n.Line()
	tokens := n.Tokens

	if len(tokens) == 2 && token.IsOperator(tokens[1], token.OpColon) {
		switch label := tokens[0].(type) {
		case *token.LabelToken:
			return &node.Label{Pos: n.Pos, Name: label.Name}, nil
		case *token.IdentifierToken:
			return &node.Label{Pos: n.Pos, Name: label.Name}, nil
		}
	}

	switch first := tokens[0].(type) {
	case *token.LabelToken:
		return nil, diag.New(diag.CodeMalformedStatement, line, "Expected only colon after label")

	case *token.KeywordToken:
		switch first.Keyword {
		case token.KeywordReturn:
			return c.processReturn(n, fn, scope)

		case token.KeywordCall, token.KeywordJump:
			return c.processExternal(n, first.Keyword, scope)

		case token.KeywordBreak, token.KeywordContinue:
			if len(tokens) != 1 {
				return nil, diag.New(diag.CodeMalformedStatement, line, "There must be no token after '%s' keyword", first.Keyword)
			}
			if first.Keyword == token.KeywordBreak {
				return &node.Break{Pos: n.Pos}, nil
			}
			return &node.Continue{Pos: n.Pos}, nil

		case token.KeywordIf, token.KeywordWhile:
			condition, err := c.singleStatement(tokens[1:], line, scope, datatype.Bool, "Expected single statement after '"+first.Keyword.String()+"' keyword")
			if err != nil {
				return nil, err
			}
			if first.Keyword == token.KeywordIf {
				return &node.If{Pos: n.Pos, Condition: condition}, nil
			}
			return &node.While{Pos: n.Pos, Condition: condition}, nil

		case token.KeywordElse:
			return &node.Else{Pos: n.Pos}, nil

		case token.KeywordFor:
			return c.processFor(n, scope)

		default:
			return nil, diag.New(diag.CodeMalformedStatement, line, "Keyword '%s' is not allowed inside a function", first.Keyword)
		}
	}

	statement, err := c.singleStatement(tokens, line, scope, nil, "Statement does not evaluate to a single expression")
	if err != nil {
		return nil, err
	}
	return &node.Statement{Pos: n.Pos, Statement: statement}, nil
}

// singleStatement processes tokens that have to reduce to exactly one statement of a
// type usable as expected (nil accepts any type).
func (c *Compiler) singleStatement(tokens []token.Token, line int, scope *ScopeContext, expected *datatype.Type, message string) (token.Statement, error) {
	processed, err := c.processTokens(tokens, line, scope, expected)
	if err != nil {
		return nil, err
	}
	if len(processed) != 1 {
		return nil, diag.New(diag.CodeMalformedStatement, line, "%s", message)
	}
	s, ok := processed[0].(token.Statement)
	if !ok {
		return nil, diag.New(diag.CodeMalformedStatement, line, "%s", message)
	}
	return s, nil
}

func (c *Compiler) processReturn(n *node.Undefined, fn *program.ScriptFunction, scope *ScopeContext) (node.Node, error) {
	ret := &node.Return{Pos: n.Pos}
	if len(n.Tokens) == 1 {
		return ret, nil
	}

	processed, err := c.processTokens(n.Tokens[1:], n.Line(), scope, fn.ReturnType())
	if err != nil {
		return nil, err
	}
	if len(processed) > 1 {
		return nil, diag.New(diag.CodeTooManyReturnValues, n.Line(), "Return can have up to one statement")
	}
	value, ok := processed[0].(token.Statement)
	if !ok {
		return nil, diag.New(diag.CodeMalformedStatement, n.Line(), "Token after 'return' must be a statement")
	}
	ret.Value = value
	return ret, nil
}

// processExternal handles "call <address>", "jump <address>" and "jump @label".
func (c *Compiler) processExternal(n *node.Undefined, keyword token.Keyword, scope *ScopeContext) (node.Node, error) {
	line := n.Line()
	processed, err := c.processTokens(n.Tokens[1:], line, scope, c.options.ExternalAddressType)
	if err != nil {
		return nil, err
	}
	if len(processed) != 1 {
		return nil, diag.New(diag.CodeMalformedStatement, line, "'call' and 'jump' need exactly one token after them")
	}

	switch target := processed[0].(type) {
	case *token.LabelToken:
		if keyword == token.KeywordCall {
			return nil, diag.New(diag.CodeLabelAfterCall, line, "Label is not allowed after 'call' keyword")
		}
		return &node.Jump{Pos: n.Pos, Label: target.Name}, nil
	case token.Statement:
		kind := node.ExternalCall
		if keyword == token.KeywordJump {
			kind = node.ExternalJump
		}
		return &node.External{Pos: n.Pos, Kind: kind, Target: target}, nil
	}
	return nil, diag.New(diag.CodeMalformedStatement, line, "Token after 'call' and 'jump' must be a statement or a label")
}

// processFor handles "for (<initial>; <condition>; <iteration>)". Variables declared in
// the header stay visible until the loop body is complete.
func (c *Compiler) processFor(n *node.Undefined, scope *ScopeContext) (node.Node, error) {
	line := n.Line()
	tokens := n.Tokens
	if len(tokens) < 3 {
		return nil, diag.New(diag.CodeMalformedStatement, line, "Not enough tokens found after 'for' keyword")
	}
	if !token.IsOperator(tokens[1], token.OpParenthesisLeft) {
		return nil, diag.New(diag.CodeMalformedStatement, line, "Expected opening parenthesis after 'for' keyword")
	}
	if !token.IsOperator(tokens[len(tokens)-1], token.OpParenthesisRight) {
		return nil, diag.New(diag.CodeMalformedStatement, line, "Expected closing parenthesis as last token after 'for' keyword")
	}

	inner := tokens[2 : len(tokens)-1]
	var parts [][]token.Token
	start := 0
	for i, t := range inner {
		if token.IsOperator(t, token.OpSemicolon) {
			parts = append(parts, inner[start:i])
			start = i + 1
		}
	}
	parts = append(parts, inner[start:])
	if len(parts) != 3 {
		return nil, diag.New(diag.CodeMalformedStatement, line, "Expected exactly two semicolons in 'for' loop header")
	}

	scope.BeginScopeFor(1)

	var statements [3]token.Statement
	for i, part := range parts {
		if len(part) == 0 {
			continue
		}
		var expected *datatype.Type
		if i == 1 {
			expected = datatype.Bool
		}
		s, err := c.singleStatement(part, line, scope, expected, "Tokens in 'for' loop header do not evaluate to a single statement")
		if err != nil {
			return nil, err
		}
		statements[i] = s
	}
	return &node.For{Pos: n.Pos, Initial: statements[0], Condition: statements[1], Iteration: statements[2]}, nil
}

// mergeControlFlow attaches the statements following if, while and for headers to them.
func mergeControlFlow(block *node.Block) error {
	for i := 0; i < len(block.Nodes); i++ {
		switch n := block.Nodes[i].(type) {
		case *node.If, *node.While, *node.For:
			if err := formSingleStatement(block, i); err != nil {
				return err
			}
		case *node.Else:
			return diag.New(diag.CodeDanglingElse, n.Line(), "Else in wrong location")
		}
	}
	return nil
}

// formSingleStatement makes the node at index a complete statement, recursively
// consuming the nodes that follow a control flow header.
func formSingleStatement(block *node.Block, index int) error {
	switch n := block.Nodes[index].(type) {
	case *node.If:
		if err := formBody(block, index, "if"); err != nil {
			return err
		}
		n.Then = block.Nodes[index+1]
		count := 1
		if index+2 < len(block.Nodes) {
			if _, isElse := block.Nodes[index+2].(*node.Else); isElse {
				if err := formBody(block, index+2, "else"); err != nil {
					return err
				}
				n.Else = block.Nodes[index+3]
				count = 3
			}
		}
		block.Erase(index+1, count)

	case *node.Else:
		return diag.New(diag.CodeDanglingElse, n.Line(), "Else in wrong location")

	case *node.While:
		if err := formBody(block, index, "while"); err != nil {
			return err
		}
		n.Content = block.Nodes[index+1]
		block.Erase(index+1, 1)

	case *node.For:
		if err := formBody(block, index, "for"); err != nil {
			return err
		}
		n.Content = block.Nodes[index+1]
		block.Erase(index+1, 1)
	}
	return nil
}

// formBody completes the statement following the header at index.
func formBody(block *node.Block, index int, keyword string) error {
	if index+1 >= len(block.Nodes) {
		return diag.New(diag.CodeMalformedStatement, block.Nodes[index].Line(), "Expected a statement after '%s'", keyword)
	}
	return formSingleStatement(block, index+1)
}
