package compiler

import (
	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/lexer"
	"github.com/zurustar/lemonscript/pkg/compiler/node"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/program"
)

// buildNodes converts the flattened lines into a tree of blocks holding pragma and
// undefined nodes. Line numbers are 1-based indices into lines.
func (c *Compiler) buildNodes(lines []string) (*node.Block, error) {
	root := &node.Block{}
	stack := []*node.Block{root}

	for i, line := range lines {
		lineNumber := i + 1
		parserTokens, err := lexer.SplitLine(line, lineNumber)
		if err != nil {
			return nil, err
		}
		if len(parserTokens) == 0 {
			continue
		}

		current := stack[len(stack)-1]
		first := parserTokens[0]
		switch {
		case isBlockKeyword(first, token.KeywordBlockBegin):
			if len(parserTokens) != 1 {
				return nil, diag.New(diag.CodeUnbalancedBlocks, lineNumber, "Curly brace must use its own line")
			}
			block := &node.Block{Pos: node.At(lineNumber)}
			current.Add(block)
			stack = append(stack, block)

		case isBlockKeyword(first, token.KeywordBlockEnd):
			if len(parserTokens) != 1 {
				return nil, diag.New(diag.CodeUnbalancedBlocks, lineNumber, "Curly brace must use its own line")
			}
			if len(stack) <= 1 {
				return nil, diag.New(diag.CodeUnbalancedBlocks, lineNumber, "Closed too many blocks")
			}
			stack = stack[:len(stack)-1]

		case first.Kind == lexer.KindPragma:
			current.Add(&node.Pragma{Pos: node.At(lineNumber), Content: first.Text})

		default:
			tokens, err := c.translateTokens(parserTokens, lineNumber)
			if err != nil {
				return nil, err
			}
			if len(tokens) > 0 {
				current.Add(&node.Undefined{Pos: node.At(lineNumber), Tokens: tokens})
			}
		}
	}

	if len(stack) != 1 {
		open := stack[len(stack)-1]
		return nil, diag.New(diag.CodeUnclosedBlock, open.Line(), "More blocks opened than closed")
	}
	return root, nil
}

func isBlockKeyword(t lexer.Token, k token.Keyword) bool {
	return t.Kind == lexer.KindKeyword && t.Keyword == k
}

// translateTokens converts parser tokens into compiler tokens. String literals are
// interned in the module and replaced by constants holding their hash.
func (c *Compiler) translateTokens(parserTokens []lexer.Token, lineNumber int) ([]token.Token, error) {
	tokens := make([]token.Token, 0, len(parserTokens))
	for _, pt := range parserTokens {
		switch pt.Kind {
		case lexer.KindKeyword:
			if pt.Keyword == token.KeywordBlockBegin || pt.Keyword == token.KeywordBlockEnd {
				return nil, diag.New(diag.CodeUnbalancedBlocks, lineNumber, "Curly brace must use its own line")
			}
			tokens = append(tokens, &token.KeywordToken{Keyword: pt.Keyword})
		case lexer.KindVarType:
			tokens = append(tokens, &token.VarTypeToken{DataType: pt.DataType})
		case lexer.KindOperator:
			tokens = append(tokens, &token.OperatorToken{Op: pt.Op})
		case lexer.KindLabel:
			tokens = append(tokens, &token.LabelToken{Name: pt.Text})
		case lexer.KindConstant:
			tokens = append(tokens, token.NewConstant(pt.Value, pt.DataType))
		case lexer.KindStringLiteral:
			hash, err := c.internString(pt.Text, lineNumber)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token.NewConstant(hash, datatype.String))
		case lexer.KindIdentifier:
			tokens = append(tokens, &token.IdentifierToken{Name: pt.Text})
		case lexer.KindPragma:
			// only meaningful at the start of a line
		}
	}
	return tokens, nil
}

func (c *Compiler) internString(s string, lineNumber int) (uint64, error) {
	hash := program.HashString(s)
	if c.lookup.StringLiteralByHash(hash) != nil {
		return hash, nil
	}
	stored, err := c.module.AddStringLiteral(s)
	if err != nil {
		return 0, atLine(err, lineNumber)
	}
	return stored.Hash, nil
}
